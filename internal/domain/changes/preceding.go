package changes

import (
	"slices"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
)

// The txn* helpers answer questions about the state an element would have
// after the preceding changes of a transaction, falling back to persisted
// state where the preceding changes say nothing.

func txnCreatesElement(preceding []Change, id string) *ElementCreate {
	for _, c := range preceding {
		if cc, ok := c.(*ElementCreate); ok && cc.ElementID == id {
			return cc
		}
	}
	return nil
}

// txnAddsVersion reports whether a preceding change brings version into
// existence. Creating an element adds its version 1.
func txnAddsVersion(preceding []Change, id string, version int) bool {
	return txnAddVersionIndex(preceding, id, version) >= 0
}

// txnAddVersionIndex returns the position of the preceding change that
// adds version, or -1. Later changes to the predecessor are not copied into
// the added version.
func txnAddVersionIndex(preceding []Change, id string, version int) int {
	for i, c := range preceding {
		switch cc := c.(type) {
		case *ElementAddVersion:
			if cc.ElementID == id && cc.Version == version {
				return i
			}
		case *ElementCreate:
			if cc.ElementID == id && version == 1 {
				return i
			}
		}
	}
	return -1
}

// txnAddsLanguage reports whether a preceding change creates contents for
// language in the given version.
func txnAddsLanguage(preceding []Change, id string, version int, language string) bool {
	for _, c := range preceding {
		switch cc := c.(type) {
		case *ElementContentsChange:
			if cc.ElementID == id && cc.Version == version && cc.Language == language {
				return true
			}
		case *ElementCopyContents:
			if cc.ElementID == id && cc.Version == version && cc.Language == language {
				return true
			}
		case *ElementAddSubElement:
			if cc.ElementID == id && cc.Version == version && cc.Language == language && len(cc.Path) == 0 {
				return true
			}
		}
	}
	return false
}

// txnTouchesContents reports whether a preceding change edits the contents
// of language in version, which makes the persisted structure stale.
func txnTouchesContents(preceding []Change, id string, version int, language string) bool {
	for _, c := range preceding {
		switch cc := c.(type) {
		case *ElementAddSubElement:
			if cc.ElementID == id && cc.Version == version && cc.Language == language {
				return true
			}
		case *ElementRemoveSubElement:
			if cc.ElementID == id && cc.Version == version && cc.Language == language {
				return true
			}
		case *ElementCopyContents:
			if cc.ElementID == id && cc.Version == version && cc.Language == language {
				return true
			}
		}
	}
	return false
}

// txnFieldValue returns the value the field at path holds after the
// preceding changes. The second result is false when the field is unset or
// its value cannot be told without applying the changes: the version or
// language is new, or a structural edit has reshaped the contents.
func txnFieldValue(v *view, preceding []Change, id string, version int, language string, path element.ContentPath) (string, bool, error) {
	if txnAddsVersion(preceding, id, version) {
		return "", false, nil
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return "", false, err
	}
	ver := e.Version(version)
	if ver == nil {
		return "", false, nil
	}
	contents, ok := ver.Contents[language]
	if !ok {
		return "", false, nil
	}
	value, known := contents.Lookup(path)
	for _, c := range preceding {
		if cc, ok := c.(*ElementContentsChange); ok {
			if cc.ElementID == id && cc.Version == version && cc.Language == language && slices.Equal(cc.Path, path) {
				value, known = cc.Value, true
			}
			continue
		}
		if txnTouchesContents([]Change{c}, id, version, language) {
			value, known = "", false
		}
	}
	return value, known, nil
}

// txnGetSlugs returns the slugs of version after the preceding changes.
// Merging leaves exactly the slugs of the latest set active.
func txnGetSlugs(v *view, preceding []Change, id string, version int) ([]element.Slug, error) {
	for i := len(preceding) - 1; i >= 0; i-- {
		if sc, ok := preceding[i].(*ElementSetSlugs); ok && sc.ElementID == id && sc.Version == version {
			return sc.Slugs, nil
		}
	}
	if i := txnAddVersionIndex(preceding, id, version); i >= 0 {
		if version <= 1 {
			return nil, nil
		}
		return txnGetSlugs(v, preceding[:i], id, version-1)
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return nil, err
	}
	if ver := e.Version(version); ver != nil {
		return ver.Slugs, nil
	}
	return nil, nil
}

// txnElementExists reports whether id exists in storage or is created by a
// preceding change.
func txnElementExists(v *view, preceding []Change, id string) (bool, error) {
	if txnCreatesElement(preceding, id) != nil {
		return true, nil
	}
	e, err := v.persisted(id)
	return e != nil, err
}

func txnGetElementType(v *view, preceding []Change, id string) (element.Type, bool, error) {
	if cc := txnCreatesElement(preceding, id); cc != nil {
		return cc.Type, true, nil
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.Type, true, nil
}

// txnGetElementParent returns the parent id element id would have after
// the preceding changes.
func txnGetElementParent(v *view, preceding []Change, id string) (string, bool, error) {
	parent, found := "", false
	for _, c := range preceding {
		switch cc := c.(type) {
		case *ElementCreate:
			if cc.ElementID == id {
				parent, found = cc.ParentID, true
			}
		case *ElementSetParent:
			if cc.ElementID == id {
				parent, found = cc.ParentID, true
			}
		}
	}
	if found {
		return parent, true, nil
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.ParentID, true, nil
}

// txnNewestVersion returns the highest version number after the preceding
// changes, or 0 when the element does not exist.
func txnNewestVersion(v *view, preceding []Change, id string) (int, error) {
	newest := 0
	if txnCreatesElement(preceding, id) != nil {
		newest = 1
	} else {
		e, err := v.persisted(id)
		if err != nil {
			return 0, err
		}
		if e != nil {
			newest = e.NewestVersionNumber()
		}
	}
	for _, c := range preceding {
		if av, ok := c.(*ElementAddVersion); ok && av.ElementID == id && av.Version > newest {
			newest = av.Version
		}
	}
	return newest, nil
}

func txnVersionExists(v *view, preceding []Change, id string, version int) (bool, error) {
	if txnAddsVersion(preceding, id, version) {
		return true, nil
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return false, err
	}
	return e.Version(version) != nil, nil
}

// txnGetVersionState returns the lifecycle state of version after the
// preceding changes. Added versions start out editing.
func txnGetVersionState(v *view, preceding []Change, id string, version int) (string, bool, error) {
	exists, err := txnVersionExists(v, preceding, id, version)
	if err != nil || !exists {
		return "", false, err
	}
	state := element.StateEditing
	if !txnAddsVersion(preceding, id, version) {
		e, _ := v.persisted(id)
		state = e.Version(version).State
	}
	for _, c := range preceding {
		if sc, ok := c.(*ElementStateChange); ok && sc.ElementID == id && sc.Version == version {
			state = sc.State
		}
	}
	return state, true, nil
}

// txnGetDefinition returns the definition id of version after the
// preceding changes. An added version inherits its predecessor's.
func txnGetDefinition(v *view, preceding []Change, id string, version int) (string, error) {
	def := ""
	for _, c := range preceding {
		if dc, ok := c.(*ElementDefinitionChange); ok && dc.ElementID == id && dc.Version == version {
			def = dc.Definition
		}
	}
	if def != "" {
		return def, nil
	}
	if cc := txnCreatesElement(preceding, id); cc != nil && version == 1 {
		return cc.Definition, nil
	}
	if i := txnAddVersionIndex(preceding, id, version); i >= 0 && version > 1 {
		return txnGetDefinition(v, preceding[:i], id, version-1)
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return "", err
	}
	if ver := e.Version(version); ver != nil {
		return ver.Definition, nil
	}
	return "", nil
}

// txnLanguageExists reports whether version has contents in language after
// the preceding changes. Added versions carry their predecessor's languages.
func txnLanguageExists(v *view, preceding []Change, id string, version int, language string) (bool, error) {
	if txnAddsLanguage(preceding, id, version, language) {
		return true, nil
	}
	if i := txnAddVersionIndex(preceding, id, version); i >= 0 {
		if version <= 1 {
			return false, nil
		}
		return txnLanguageExists(v, preceding[:i], id, version-1, language)
	}
	e, err := v.persisted(id)
	if err != nil || e == nil {
		return false, err
	}
	ver := e.Version(version)
	return ver != nil && ver.Contents[language] != nil, nil
}

// txnContentLanguages returns every language version has contents in after
// the preceding changes.
func txnContentLanguages(v *view, preceding []Change, id string, version int) (map[string]bool, error) {
	langs := make(map[string]bool)
	if i := txnAddVersionIndex(preceding, id, version); i >= 0 {
		if version > 1 {
			prev, err := txnContentLanguages(v, preceding[:i], id, version-1)
			if err != nil {
				return nil, err
			}
			langs = prev
		}
	} else {
		e, err := v.persisted(id)
		if err != nil {
			return nil, err
		}
		if ver := e.Version(version); ver != nil {
			for lang := range ver.Contents {
				langs[lang] = true
			}
		}
	}
	for _, c := range preceding {
		switch cc := c.(type) {
		case *ElementContentsChange:
			if cc.ElementID == id && cc.Version == version {
				langs[cc.Language] = true
			}
		case *ElementCopyContents:
			if cc.ElementID == id && cc.Version == version {
				langs[cc.Language] = true
			}
		case *ElementAddSubElement:
			if cc.ElementID == id && cc.Version == version && len(cc.Path) == 0 {
				langs[cc.Language] = true
			}
		}
	}
	return langs, nil
}

// txnChildPresent reports whether childID is among the children of version
// of parentID after replaying preceding attach and detach changes.
func txnChildPresent(v *view, preceding []Change, parentID, childID string, version int) (bool, error) {
	present := false
	if txnCreatesElement(preceding, parentID) == nil {
		e, err := v.persisted(parentID)
		if err != nil {
			return false, err
		}
		if e != nil {
			base := e.Version(version)
			if base == nil {
				base = e.NewestVersion()
			}
			present = base != nil && base.HasChild(childID)
		}
	}
	for _, c := range preceding {
		switch cc := c.(type) {
		case *ElementAttachChildElement:
			if cc.ParentID == parentID && cc.ChildID == childID && cc.FromVersion <= version {
				present = true
			}
		case *ElementDetachChildElement:
			if cc.ParentID == parentID && cc.ChildID == childID && cc.FromVersion <= version {
				present = false
			}
		}
	}
	return present, nil
}

// txnCreatesCycle reports whether making parentID the parent of id would
// close a loop in the parent chain.
func txnCreatesCycle(v *view, preceding []Change, id, parentID string) (bool, error) {
	seen := map[string]bool{id: true}
	cur := parentID
	for !element.IsTopLevel(cur) {
		if seen[cur] {
			return true, nil
		}
		seen[cur] = true
		next, exists, err := txnGetElementParent(v, preceding, cur)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		cur = next
	}
	return false, nil
}
