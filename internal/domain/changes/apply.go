package changes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// applyChange mutates the session's working copies. Validation has already
// passed, so errors here mean the persisted state moved underneath the
// transaction.
func applyChange(s *session, change Change, res *Result) error {
	switch ch := change.(type) {
	case *AddFileMeta:
		return s.addFileMeta(ch, res)
	case *ElementCreate:
		return s.create(ch, res)
	case *ElementAddVersion:
		return s.addVersion(ch, res)
	case *ElementContentsChange:
		return s.contentsChange(ch, res)
	case *ElementCopyContents:
		return s.copyContents(ch, res)
	case *ElementDefinitionChange:
		return s.definitionChange(ch, res)
	case *ElementAttachChildElement:
		return s.attach(ch, res)
	case *ElementDetachChildElement:
		return s.detach(ch, res)
	case *ElementSetParent:
		return s.setParent(ch, res)
	case *ElementSetReference:
		return s.setReference(ch, res)
	case *ElementSetSlugs:
		return s.setSlugs(ch, res)
	case *ElementStateChange:
		return s.stateChange(ch, res)
	case *ElementAddSubElement:
		return s.addSubElement(ch, res)
	case *ElementRemoveSubElement:
		return s.removeSubElement(ch, res)
	}
	return fmt.Errorf("%w: %T", ErrUnknownKind, change)
}

func (s *session) touched(e *element.Element, res *Result) {
	e.Touch()
	res.touch(Storable{Element: e})
}

func (s *session) addFileMeta(ch *AddFileMeta, res *Result) error {
	meta := &element.FileMeta{
		ID:       ch.FileID,
		Name:     ch.Name,
		MimeType: ch.MimeType,
		Size:     ch.Size,
		Width:    ch.Width,
		Height:   ch.Height,
		Checksum: ch.Checksum,
		Created:  time.Now().UTC(),
	}
	s.files[ch.FileID] = meta
	res.touch(Storable{File: meta})
	res.client(ch.FileID, ClientInfo{Type: InfoFile, Value: ch.Name})
	return nil
}

func (s *session) create(ch *ElementCreate, res *Result) error {
	if _, ok := s.elements[ch.ElementID]; ok {
		return fmt.Errorf("element %s already exists", ch.ElementID)
	}
	existing, err := s.env.Elements.LoadElement(ch.ElementID)
	if err != nil {
		return fmt.Errorf("failed to load element %s: %w", ch.ElementID, err)
	}
	if existing != nil {
		return fmt.Errorf("element %s already exists", ch.ElementID)
	}

	e := element.New(ch.ElementID, ch.Type, ch.ParentID, ch.Definition)
	s.elements[ch.ElementID] = e
	s.touched(e, res)
	res.touchURL(ch.ElementID)
	res.client(ch.ElementID, ClientInfo{Type: InfoCreated, Version: 1, Value: string(ch.Type)})
	res.Changes[ch.ElementID] = InfoCreated
	return nil
}

func (s *session) addVersion(ch *ElementAddVersion, res *Result) error {
	e, prev, err := s.version(ch.ElementID, ch.Version-1)
	if err != nil {
		return err
	}
	if e.Version(ch.Version) != nil {
		return fmt.Errorf("element %s already has version %d", ch.ElementID, ch.Version)
	}
	v := prev.Clone()
	v.Version = ch.Version
	v.State = element.StateEditing
	e.Versions[ch.Version] = v

	s.touched(e, res)
	res.touchURL(ch.ElementID)
	res.client(ch.ElementID, ClientInfo{Type: InfoVersion, Version: ch.Version})
	res.Changes[ch.ElementID+".version"] = strconv.Itoa(ch.Version)
	return nil
}

func (s *session) contentsChange(ch *ElementContentsChange, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	contents := v.Contents[ch.Language]
	if contents == nil {
		if len(ch.Path) != 1 {
			return fmt.Errorf("element %s has no %s contents", ch.ElementID, ch.Language)
		}
		contents = &element.ElementContents{}
		if v.Contents == nil {
			v.Contents = make(map[string]*element.ElementContents)
		}
		v.Contents[ch.Language] = contents
	}
	if err := contents.Set(ch.Path, ch.Value); err != nil {
		return err
	}

	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoContents, Version: ch.Version, Value: ch.Language + ":" + strings.Join(ch.Path, ".")})
	return nil
}

func (s *session) copyContents(ch *ElementCopyContents, res *Result) error {
	_, src, err := s.version(ch.SourceElementID, ch.SourceVersion)
	if err != nil {
		return err
	}
	contents := src.Contents[ch.SourceLanguage]
	if contents == nil {
		return fmt.Errorf("element %s version %d has no %s contents", ch.SourceElementID, ch.SourceVersion, ch.SourceLanguage)
	}
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	if v.Contents == nil {
		v.Contents = make(map[string]*element.ElementContents)
	}
	v.Contents[ch.Language] = contents.Clone()

	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoContents, Version: ch.Version, Value: ch.Language})
	return nil
}

func (s *session) definitionChange(ch *ElementDefinitionChange, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	v.Definition = ch.Definition
	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoDefinition, Version: ch.Version, Value: ch.Definition})
	return nil
}

// attachVersions lists the versions from..newest of e that exist and do not
// yet hold child.
func attachVersions(e *element.Element, from int, child string) []int {
	var out []int
	for n := from; n <= e.NewestVersionNumber(); n++ {
		if v := e.Versions[n]; v != nil && !v.HasChild(child) {
			out = append(out, n)
		}
	}
	return out
}

func (s *session) attach(ch *ElementAttachChildElement, res *Result) error {
	e, err := s.element(ch.ParentID)
	if err != nil {
		return err
	}
	versions := attachVersions(e, ch.FromVersion, ch.ChildID)
	for _, n := range versions {
		v := e.Versions[n]
		pos := ch.Position
		if pos < 0 || pos > len(v.Children) {
			pos = len(v.Children)
		}
		v.Children = append(v.Children, "")
		copy(v.Children[pos+1:], v.Children[pos:])
		v.Children[pos] = ch.ChildID
	}

	s.touched(e, res)
	res.touchURL(ch.ChildID)
	res.client(ch.ParentID, ClientInfo{Type: InfoChildren, Version: ch.FromVersion, Value: "+" + ch.ChildID})
	if len(versions) == 0 {
		res.info("element is already attached in every remaining version")
	}
	return nil
}

func (s *session) detach(ch *ElementDetachChildElement, res *Result) error {
	e, err := s.element(ch.ParentID)
	if err != nil {
		return err
	}
	for n := ch.FromVersion; n <= e.NewestVersionNumber(); n++ {
		v := e.Versions[n]
		if v == nil {
			continue
		}
		if i := v.ChildIndex(ch.ChildID); i >= 0 {
			v.Children = append(v.Children[:i], v.Children[i+1:]...)
		}
	}

	s.touched(e, res)
	res.touchURL(ch.ChildID)
	res.client(ch.ParentID, ClientInfo{Type: InfoChildren, Version: ch.FromVersion, Value: "-" + ch.ChildID})
	return nil
}

func (s *session) setParent(ch *ElementSetParent, res *Result) error {
	e, err := s.element(ch.ElementID)
	if err != nil {
		return err
	}
	e.ParentID = ch.ParentID
	s.touched(e, res)
	res.touchURL(ch.ElementID)
	res.client(ch.ElementID, ClientInfo{Type: InfoParent, Value: ch.ParentID})
	return nil
}

func (s *session) setReference(ch *ElementSetReference, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	if ch.TargetID == "" {
		delete(v.References, ch.Name)
		if len(v.References) == 0 {
			v.References = nil
		}
	} else {
		if v.References == nil {
			v.References = make(map[string]string)
		}
		v.References[ch.Name] = ch.TargetID
	}
	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoReference, Version: ch.Version, Value: ch.Name})
	return nil
}

func (s *session) setSlugs(ch *ElementSetSlugs, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	previous := v.Slugs
	v.Slugs = element.MergeSlugs(previous, ch.Slugs)

	s.touched(e, res)
	res.touchURL(ch.ElementID)
	res.client(ch.ElementID, ClientInfo{Type: InfoSlugs, Version: ch.Version, Slugs: append([]element.Slug(nil), v.Slugs...)})
	if n := newlyDeprecated(previous, ch.Slugs); n > 0 {
		res.info("%d previous url(s) kept as deprecated", n)
	}
	return nil
}

func newlyDeprecated(previous, next []element.Slug) int {
	incoming := make(map[string]bool, len(next))
	for _, s := range next {
		incoming[s.Key()] = true
	}
	n := 0
	for _, s := range previous {
		if s.Active() && !incoming[s.Key()] {
			n++
		}
	}
	return n
}

func (s *session) stateChange(ch *ElementStateChange, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	v.State = ch.State
	s.touched(e, res)
	res.touchURL(ch.ElementID)
	res.client(ch.ElementID, ClientInfo{Type: InfoState, Version: ch.Version, Value: ch.State})
	res.Changes[ch.ElementID+".state"] = ch.State
	return nil
}

// subElementTarget returns the contents addressed by path, creating the
// language contents when path is empty.
func subElementTarget(v *element.ElementVersion, language string, path element.ContentPath, create bool) (*element.ElementContents, error) {
	contents := v.Contents[language]
	if contents == nil {
		if !create || len(path) > 0 {
			return nil, fmt.Errorf("no %s contents", language)
		}
		contents = &element.ElementContents{}
		if v.Contents == nil {
			v.Contents = make(map[string]*element.ElementContents)
		}
		v.Contents[language] = contents
	}
	return contents.Descend(path)
}

func (s *session) addSubElement(ch *ElementAddSubElement, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	target, err := subElementTarget(v, ch.Language, ch.Path, true)
	if err != nil {
		return err
	}
	item := &element.ElementContents{}
	if len(ch.Fields) > 0 {
		item.Fields = make(map[string]string, len(ch.Fields))
		for k, val := range ch.Fields {
			item.Fields[k] = val
		}
	}
	idx := target.InsertSub(ch.Collection, ch.Position, item)

	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoContents, Version: ch.Version, Value: fmt.Sprintf("%s:%s[%d]", ch.Language, ch.Collection, idx)})
	return nil
}

func (s *session) removeSubElement(ch *ElementRemoveSubElement, res *Result) error {
	e, v, err := s.version(ch.ElementID, ch.Version)
	if err != nil {
		return err
	}
	target, err := subElementTarget(v, ch.Language, ch.Path, false)
	if err != nil {
		return err
	}
	if err := target.RemoveSub(ch.Collection, ch.Index); err != nil {
		return err
	}
	s.touched(e, res)
	res.client(ch.ElementID, ClientInfo{Type: InfoContents, Version: ch.Version, Value: fmt.Sprintf("%s:%s", ch.Language, ch.Collection)})
	return nil
}
