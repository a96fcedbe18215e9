package element

import (
	"errors"
	"fmt"
	"strconv"
)

// ContentPath addresses a field inside ElementContents. It is either a single
// field name, or (collection, index) pairs leading to nested contents followed
// by a field name.
type ContentPath []string

// ErrBadPath is returned for malformed or unresolvable content paths.
var ErrBadPath = errors.New("invalid content path")

// Split separates the nested-contents prefix from the final field name.
func (p ContentPath) Split() (ContentPath, string, error) {
	if len(p) == 0 || len(p)%2 == 0 {
		return nil, "", fmt.Errorf("%w: %v", ErrBadPath, []string(p))
	}
	return p[:len(p)-1], p[len(p)-1], nil
}

// ValidateNesting checks that p is a sequence of (collection, index) pairs.
func (p ContentPath) ValidateNesting() error {
	if len(p)%2 != 0 {
		return fmt.Errorf("%w: %v", ErrBadPath, []string(p))
	}
	for i := 0; i < len(p); i += 2 {
		if p[i] == "" {
			return fmt.Errorf("%w: empty collection name", ErrBadPath)
		}
		if n, err := strconv.Atoi(p[i+1]); err != nil || n < 0 {
			return fmt.Errorf("%w: bad index %q", ErrBadPath, p[i+1])
		}
	}
	return nil
}

// Descend walks (collection, index) pairs and returns the nested contents.
func (c *ElementContents) Descend(nesting ContentPath) (*ElementContents, error) {
	if err := nesting.ValidateNesting(); err != nil {
		return nil, err
	}
	cur := c
	for i := 0; i < len(nesting); i += 2 {
		if cur == nil {
			return nil, fmt.Errorf("%w: missing contents", ErrBadPath)
		}
		idx, _ := strconv.Atoi(nesting[i+1])
		items := cur.SubElements[nesting[i]]
		if idx >= len(items) {
			return nil, fmt.Errorf("%w: index %d out of range for %q", ErrBadPath, idx, nesting[i])
		}
		cur = items[idx]
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: missing contents", ErrBadPath)
	}
	return cur, nil
}

// Lookup returns the value at path and whether it is set.
func (c *ElementContents) Lookup(path ContentPath) (string, bool) {
	nesting, field, err := path.Split()
	if err != nil || c == nil {
		return "", false
	}
	target, err := c.Descend(nesting)
	if err != nil {
		return "", false
	}
	v, ok := target.Fields[field]
	return v, ok
}

// Set writes value at path. Nested contents must already exist.
func (c *ElementContents) Set(path ContentPath, value string) error {
	nesting, field, err := path.Split()
	if err != nil {
		return err
	}
	target, err := c.Descend(nesting)
	if err != nil {
		return err
	}
	if target.Fields == nil {
		target.Fields = make(map[string]string)
	}
	target.Fields[field] = value
	return nil
}

// Unset removes the field at path.
func (c *ElementContents) Unset(path ContentPath) error {
	nesting, field, err := path.Split()
	if err != nil {
		return err
	}
	target, err := c.Descend(nesting)
	if err != nil {
		return err
	}
	delete(target.Fields, field)
	return nil
}

// InsertSub inserts item into collection at position; a negative or
// out-of-range position appends. It returns the index used.
func (c *ElementContents) InsertSub(collection string, position int, item *ElementContents) int {
	if c.SubElements == nil {
		c.SubElements = make(map[string][]*ElementContents)
	}
	items := c.SubElements[collection]
	if position < 0 || position > len(items) {
		position = len(items)
	}
	items = append(items, nil)
	copy(items[position+1:], items[position:])
	items[position] = item
	c.SubElements[collection] = items
	return position
}

// RemoveSub removes the item at index from collection.
func (c *ElementContents) RemoveSub(collection string, index int) error {
	items := c.SubElements[collection]
	if index < 0 || index >= len(items) {
		return fmt.Errorf("%w: index %d out of range for %q", ErrBadPath, index, collection)
	}
	items = append(items[:index], items[index+1:]...)
	if len(items) == 0 {
		delete(c.SubElements, collection)
	} else {
		c.SubElements[collection] = items
	}
	return nil
}
