package changes

import (
	"errors"
	"fmt"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
)

// ErrRevertNotImplemented is returned by Revert for change kinds that have
// no inverse operation.
var ErrRevertNotImplemented = errors.New("revert not implemented")

var revertible = map[Kind]bool{
	KindAddFileMeta:        true,
	KindAddVersion:         true,
	KindContentsChange:     true,
	KindDefinitionChange:   true,
	KindAttachChildElement: true,
	KindSetReference:       true,
	KindSetSlugs:           true,
	KindStateChange:        true,
	KindAddSubElement:      true,
}

// Revertible reports whether changes of kind can be reverted.
func Revertible(kind Kind) bool {
	return revertible[kind]
}

// RevertStore is the storage a revert reads from and writes to.
type RevertStore interface {
	repositories.ElementRepository
	repositories.FileMetaRepository
}

// RollbackInfo is the pre-apply state a change needs to undo itself.
type RollbackInfo interface {
	rollbackKind() Kind
}

type FileRollback struct {
	FileID   string
	Previous *element.FileMeta
}

type VersionRollback struct {
	ElementID string
	Version   int
}

type ContentsRollback struct {
	ElementID       string
	Version         int
	Language        string
	Path            element.ContentPath
	Previous        string
	WasSet          bool
	LanguageExisted bool
}

type DefinitionRollback struct {
	ElementID string
	Version   int
	Previous  string
}

// AttachRollback lists the versions the child was inserted into.
type AttachRollback struct {
	ParentID string
	ChildID  string
	Versions []int
}

type ReferenceRollback struct {
	ElementID string
	Version   int
	Name      string
	Previous  string
	WasSet    bool
}

type SlugsRollback struct {
	ElementID string
	Version   int
	Previous  []element.Slug
}

type StateRollback struct {
	ElementID string
	Version   int
	Previous  string
}

type SubElementRollback struct {
	ElementID       string
	Version         int
	Language        string
	Path            element.ContentPath
	Collection      string
	Index           int
	LanguageExisted bool
}

func (FileRollback) rollbackKind() Kind       { return KindAddFileMeta }
func (VersionRollback) rollbackKind() Kind    { return KindAddVersion }
func (ContentsRollback) rollbackKind() Kind   { return KindContentsChange }
func (DefinitionRollback) rollbackKind() Kind { return KindDefinitionChange }
func (AttachRollback) rollbackKind() Kind     { return KindAttachChildElement }
func (ReferenceRollback) rollbackKind() Kind  { return KindSetReference }
func (SlugsRollback) rollbackKind() Kind      { return KindSetSlugs }
func (StateRollback) rollbackKind() Kind      { return KindStateChange }
func (SubElementRollback) rollbackKind() Kind { return KindAddSubElement }

// collectRollbackInfo captures what change will overwrite, reading the
// session before the change is applied. It returns nil for kinds that
// cannot be reverted.
func collectRollbackInfo(s *session, change Change) (RollbackInfo, error) {
	switch ch := change.(type) {
	case *AddFileMeta:
		info := FileRollback{FileID: ch.FileID}
		if prev, ok := s.files[ch.FileID]; ok {
			cp := *prev
			info.Previous = &cp
		} else if s.env.Files != nil {
			prev, err := s.env.Files.LoadFileMeta(ch.FileID)
			if err != nil {
				return nil, fmt.Errorf("failed to load file %s: %w", ch.FileID, err)
			}
			info.Previous = prev
		}
		return info, nil

	case *ElementAddVersion:
		return VersionRollback{ElementID: ch.ElementID, Version: ch.Version}, nil

	case *ElementContentsChange:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		info := ContentsRollback{ElementID: ch.ElementID, Version: ch.Version, Language: ch.Language, Path: ch.Path}
		if contents := v.Contents[ch.Language]; contents != nil {
			info.LanguageExisted = true
			info.Previous, info.WasSet = contents.Lookup(ch.Path)
		}
		return info, nil

	case *ElementDefinitionChange:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		return DefinitionRollback{ElementID: ch.ElementID, Version: ch.Version, Previous: v.Definition}, nil

	case *ElementAttachChildElement:
		e, err := s.element(ch.ParentID)
		if err != nil {
			return nil, err
		}
		return AttachRollback{ParentID: ch.ParentID, ChildID: ch.ChildID, Versions: attachVersions(e, ch.FromVersion, ch.ChildID)}, nil

	case *ElementSetReference:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		prev, ok := v.References[ch.Name]
		return ReferenceRollback{ElementID: ch.ElementID, Version: ch.Version, Name: ch.Name, Previous: prev, WasSet: ok}, nil

	case *ElementSetSlugs:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		return SlugsRollback{ElementID: ch.ElementID, Version: ch.Version, Previous: append([]element.Slug(nil), v.Slugs...)}, nil

	case *ElementStateChange:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		return StateRollback{ElementID: ch.ElementID, Version: ch.Version, Previous: v.State}, nil

	case *ElementAddSubElement:
		_, v, err := s.version(ch.ElementID, ch.Version)
		if err != nil {
			return nil, err
		}
		info := SubElementRollback{
			ElementID:  ch.ElementID,
			Version:    ch.Version,
			Language:   ch.Language,
			Path:       ch.Path,
			Collection: ch.Collection,
		}
		contents := v.Contents[ch.Language]
		if contents == nil {
			return info, nil
		}
		info.LanguageExisted = true
		target, err := contents.Descend(ch.Path)
		if err != nil {
			return nil, err
		}
		n := len(target.SubElements[ch.Collection])
		info.Index = ch.Position
		if info.Index < 0 || info.Index > n {
			info.Index = n
		}
		return info, nil
	}
	return nil, nil
}

// Revert undoes a persisted change using the rollback info captured before
// it was applied. Kinds without revert support fail with
// ErrRevertNotImplemented. Reverting a change whose effects never reached
// storage is a no-op.
func Revert(store RevertStore, rb Rollback) error {
	if !Revertible(rb.Kind) || rb.Info == nil {
		return fmt.Errorf("%w: %s", ErrRevertNotImplemented, rb.Kind)
	}

	switch info := rb.Info.(type) {
	case FileRollback:
		if info.Previous == nil {
			return store.DeleteFileMeta(info.FileID)
		}
		return store.StoreFileMeta(info.Previous)

	case VersionRollback:
		return revertElement(store, info.ElementID, func(e *element.Element) (bool, error) {
			if e.Version(info.Version) == nil {
				return false, nil
			}
			delete(e.Versions, info.Version)
			return true, nil
		})

	case ContentsRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			if !info.LanguageExisted {
				if _, ok := v.Contents[info.Language]; !ok {
					return false, nil
				}
				delete(v.Contents, info.Language)
				return true, nil
			}
			contents := v.Contents[info.Language]
			if contents == nil {
				return false, fmt.Errorf("element %s version %d lost its %s contents", info.ElementID, info.Version, info.Language)
			}
			if info.WasSet {
				return true, contents.Set(info.Path, info.Previous)
			}
			return true, contents.Unset(info.Path)
		})

	case DefinitionRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			v.Definition = info.Previous
			return true, nil
		})

	case AttachRollback:
		return revertElement(store, info.ParentID, func(e *element.Element) (bool, error) {
			changed := false
			for _, n := range info.Versions {
				v := e.Versions[n]
				if v == nil {
					continue
				}
				if i := v.ChildIndex(info.ChildID); i >= 0 {
					v.Children = append(v.Children[:i], v.Children[i+1:]...)
					changed = true
				}
			}
			return changed, nil
		})

	case ReferenceRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			if !info.WasSet {
				delete(v.References, info.Name)
				if len(v.References) == 0 {
					v.References = nil
				}
				return true, nil
			}
			if v.References == nil {
				v.References = make(map[string]string)
			}
			v.References[info.Name] = info.Previous
			return true, nil
		})

	case SlugsRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			v.Slugs = append([]element.Slug(nil), info.Previous...)
			return true, nil
		})

	case StateRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			v.State = info.Previous
			return true, nil
		})

	case SubElementRollback:
		return revertVersion(store, info.ElementID, info.Version, func(v *element.ElementVersion) (bool, error) {
			if !info.LanguageExisted {
				delete(v.Contents, info.Language)
				return true, nil
			}
			contents := v.Contents[info.Language]
			if contents == nil {
				return false, nil
			}
			target, err := contents.Descend(info.Path)
			if err != nil {
				return false, err
			}
			return true, target.RemoveSub(info.Collection, info.Index)
		})
	}
	return fmt.Errorf("%w: %s", ErrRevertNotImplemented, rb.Kind)
}

func revertElement(store RevertStore, id string, fn func(e *element.Element) (bool, error)) error {
	e, err := store.LoadElement(id)
	if err != nil {
		return fmt.Errorf("failed to load element %s: %w", id, err)
	}
	if e == nil {
		return nil
	}
	e = e.Clone()
	changed, err := fn(e)
	if err != nil {
		return fmt.Errorf("failed to revert element %s: %w", id, err)
	}
	if !changed {
		return nil
	}
	e.Touch()
	return store.StoreElement(e)
}

func revertVersion(store RevertStore, id string, version int, fn func(v *element.ElementVersion) (bool, error)) error {
	return revertElement(store, id, func(e *element.Element) (bool, error) {
		v := e.Version(version)
		if v == nil {
			return false, nil
		}
		return fn(v)
	})
}
