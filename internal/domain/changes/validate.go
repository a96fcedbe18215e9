package changes

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/definition"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
)

var referenceName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// checker validates one change against persisted state and the changes
// that precede it. Failures are recorded on the result, never returned.
type checker struct {
	v         *view
	preceding []Change
	res       *Result
	index     int
	kind      Kind
	failed    bool
}

func (c *checker) fail(format string, args ...any) {
	c.failed = true
	c.res.fail(c.index, c.kind, format, args...)
}

func (c *checker) storageErr(err error) bool {
	if err != nil {
		c.fail("%v", err)
		return true
	}
	return false
}

func (c *checker) validID(id, what string) bool {
	if !element.IsValidID(id) {
		c.fail("%s id %q is malformed", what, id)
		return false
	}
	return true
}

// elementType requires the element to exist and returns its type.
func (c *checker) elementType(id string) (element.Type, bool) {
	if !c.validID(id, "element") {
		return "", false
	}
	t, exists, err := txnGetElementType(c.v, c.preceding, id)
	if c.storageErr(err) {
		return "", false
	}
	if !exists {
		c.fail("element %s does not exist", id)
		return "", false
	}
	return t, true
}

func (c *checker) version(id string, version int) bool {
	if _, ok := c.elementType(id); !ok {
		return false
	}
	exists, err := txnVersionExists(c.v, c.preceding, id, version)
	if c.storageErr(err) {
		return false
	}
	if !exists {
		c.fail("element %s has no version %d", id, version)
		return false
	}
	return true
}

func (c *checker) editable(id string, version int) bool {
	state, _, err := txnGetVersionState(c.v, c.preceding, id, version)
	if c.storageErr(err) {
		return false
	}
	if state != element.StateEditing {
		c.fail("version %d is %s and cannot be edited", version, state)
		return false
	}
	return true
}

func (c *checker) language(lang string) bool {
	if !element.IsValidLanguage(lang) {
		c.fail("invalid language %q", lang)
		return false
	}
	return true
}

func (c *checker) definition(id string, version int) (*definition.Definition, bool) {
	defID, err := txnGetDefinition(c.v, c.preceding, id, version)
	if c.storageErr(err) {
		return nil, false
	}
	def, ok := c.v.env.Definitions.Lookup(defID)
	if !ok {
		c.fail("unknown definition %q", defID)
		return nil, false
	}
	return def, true
}

// persistedContents returns the stored contents of a language when the
// preceding changes leave them untouched.
func (c *checker) persistedContents(id string, version int, lang string) (*element.ElementContents, bool) {
	if txnAddsVersion(c.preceding, id, version) ||
		txnAddsLanguage(c.preceding, id, version, lang) ||
		txnTouchesContents(c.preceding, id, version, lang) {
		return nil, false
	}
	e, err := c.v.persisted(id)
	if err != nil || e == nil {
		return nil, false
	}
	ver := e.Version(version)
	if ver == nil {
		return nil, false
	}
	contents, ok := ver.Contents[lang]
	return contents, ok
}

func validateChange(v *view, preceding []Change, index int, change Change, res *Result) bool {
	c := &checker{v: v, preceding: preceding, res: res, index: index, kind: change.Kind()}
	switch ch := change.(type) {
	case *AddFileMeta:
		c.addFileMeta(ch)
	case *ElementCreate:
		c.create(ch)
	case *ElementAddVersion:
		c.addVersion(ch)
	case *ElementContentsChange:
		c.contentsChange(ch)
	case *ElementCopyContents:
		c.copyContents(ch)
	case *ElementDefinitionChange:
		c.definitionChange(ch)
	case *ElementAttachChildElement:
		c.attach(ch)
	case *ElementDetachChildElement:
		c.detach(ch)
	case *ElementSetParent:
		c.setParent(ch)
	case *ElementSetReference:
		c.setReference(ch)
	case *ElementSetSlugs:
		c.setSlugs(ch)
	case *ElementStateChange:
		c.stateChange(ch)
	case *ElementAddSubElement:
		c.addSubElement(ch)
	case *ElementRemoveSubElement:
		c.removeSubElement(ch)
	default:
		c.fail("unsupported change")
	}
	return !c.failed
}

func (c *checker) addFileMeta(ch *AddFileMeta) {
	c.validID(ch.FileID, "file")
	if ch.Name == "" {
		c.fail("file name is empty")
	}
	if ch.MimeType == "" {
		c.fail("file mime type is empty")
	}
	if ch.Size <= 0 {
		c.fail("file size must be positive")
	}
	if ch.Width < 0 || ch.Height < 0 {
		c.fail("file dimensions must not be negative")
	}
}

func (c *checker) create(ch *ElementCreate) {
	if !c.validID(ch.ElementID, "element") {
		return
	}
	exists, err := txnElementExists(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	if exists {
		c.fail("element %s already exists", ch.ElementID)
	}
	if !ch.Type.IsValid() || ch.Type == element.TypeRoot {
		c.fail("element type %q cannot be created", ch.Type)
		return
	}
	if parentType, ok := c.elementType(ch.ParentID); ok && !parentType.IsContainer() {
		c.fail("parent %s of type %s cannot hold children", ch.ParentID, parentType)
	}
	def, ok := c.v.env.Definitions.Lookup(ch.Definition)
	switch {
	case !ok:
		c.fail("unknown definition %q", ch.Definition)
	case !def.AllowsType(ch.Type):
		c.fail("definition %q does not apply to %s elements", ch.Definition, ch.Type)
	}
}

func (c *checker) addVersion(ch *ElementAddVersion) {
	if _, ok := c.elementType(ch.ElementID); !ok {
		return
	}
	if ch.Version < 2 {
		c.fail("version %d cannot be added", ch.Version)
		return
	}
	exists, err := txnVersionExists(c.v, c.preceding, ch.ElementID, ch.Version)
	if c.storageErr(err) {
		return
	}
	if exists {
		c.fail("version %d already exists", ch.Version)
		return
	}
	prev, err := txnVersionExists(c.v, c.preceding, ch.ElementID, ch.Version-1)
	if c.storageErr(err) {
		return
	}
	newest, err := txnNewestVersion(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	if !prev || newest != ch.Version-1 {
		c.fail("version %d must directly follow the newest version %d", ch.Version, newest)
	}
}

func (c *checker) contentsChange(ch *ElementContentsChange) {
	if !c.version(ch.ElementID, ch.Version) || !c.language(ch.Language) {
		return
	}
	nesting, field, err := ch.Path.Split()
	if err == nil {
		err = nesting.ValidateNesting()
	}
	if err != nil {
		c.fail("%v", err)
		return
	}
	if !c.editable(ch.ElementID, ch.Version) {
		return
	}
	if def, ok := c.definition(ch.ElementID, ch.Version); ok && !def.AllowsField(nesting, field) {
		c.fail("definition %q has no field %q at %v", def.ID, field, []string(nesting))
		return
	}

	langExists, err := txnLanguageExists(c.v, c.preceding, ch.ElementID, ch.Version, ch.Language)
	if c.storageErr(err) {
		return
	}
	if len(nesting) > 0 && !langExists {
		c.fail("no %s contents to descend into", ch.Language)
		return
	}

	if contents, ok := c.persistedContents(ch.ElementID, ch.Version, ch.Language); ok && len(nesting) > 0 {
		if _, err := contents.Descend(nesting); err != nil {
			c.fail("%v", err)
			return
		}
	}
	current, known, err := txnFieldValue(c.v, c.preceding, ch.ElementID, ch.Version, ch.Language, ch.Path)
	if c.storageErr(err) {
		return
	}
	if known && current == ch.Value {
		c.fail("nothing to save: %s already has this value", field)
	}
}

func (c *checker) copyContents(ch *ElementCopyContents) {
	if !c.version(ch.ElementID, ch.Version) || !c.language(ch.Language) {
		return
	}
	if !c.editable(ch.ElementID, ch.Version) {
		return
	}
	if !c.version(ch.SourceElementID, ch.SourceVersion) || !c.language(ch.SourceLanguage) {
		return
	}
	if ch.SourceElementID == ch.ElementID && ch.SourceVersion == ch.Version && ch.SourceLanguage == ch.Language {
		c.fail("nothing to save: source and target are the same")
		return
	}
	exists, err := txnLanguageExists(c.v, c.preceding, ch.SourceElementID, ch.SourceVersion, ch.SourceLanguage)
	if c.storageErr(err) {
		return
	}
	if !exists {
		c.fail("element %s version %d has no %s contents", ch.SourceElementID, ch.SourceVersion, ch.SourceLanguage)
	}
}

func (c *checker) definitionChange(ch *ElementDefinitionChange) {
	if !c.version(ch.ElementID, ch.Version) {
		return
	}
	t, _, err := txnGetElementType(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	def, ok := c.v.env.Definitions.Lookup(ch.Definition)
	if !ok {
		c.fail("unknown definition %q", ch.Definition)
		return
	}
	if !def.AllowsType(t) {
		c.fail("definition %q does not apply to %s elements", ch.Definition, t)
		return
	}
	current, err := txnGetDefinition(c.v, c.preceding, ch.ElementID, ch.Version)
	if c.storageErr(err) {
		return
	}
	if current == ch.Definition {
		c.fail("nothing to save: definition is already %q", ch.Definition)
	}
}

func (c *checker) attach(ch *ElementAttachChildElement) {
	parentType, ok := c.elementType(ch.ParentID)
	if !ok {
		return
	}
	if !parentType.IsContainer() {
		c.fail("element %s of type %s cannot hold children", ch.ParentID, parentType)
		return
	}
	if _, ok := c.elementType(ch.ChildID); !ok {
		return
	}
	if ch.ChildID == ch.ParentID {
		c.fail("element cannot be its own child")
		return
	}
	if ch.Position < -1 {
		c.fail("invalid position %d", ch.Position)
		return
	}
	if !c.version(ch.ParentID, ch.FromVersion) {
		return
	}
	parent, _, err := txnGetElementParent(c.v, c.preceding, ch.ChildID)
	if c.storageErr(err) {
		return
	}
	if parent != ch.ParentID {
		c.fail("element %s is not parented to %s", ch.ChildID, ch.ParentID)
		return
	}
	present, err := txnChildPresent(c.v, c.preceding, ch.ParentID, ch.ChildID, ch.FromVersion)
	if c.storageErr(err) {
		return
	}
	if present {
		c.fail("element %s is already a child in version %d", ch.ChildID, ch.FromVersion)
		return
	}
	cycle, err := txnCreatesCycle(c.v, c.preceding, ch.ChildID, ch.ParentID)
	if c.storageErr(err) {
		return
	}
	if cycle {
		c.fail("attaching %s would create a cycle", ch.ChildID)
	}
}

func (c *checker) detach(ch *ElementDetachChildElement) {
	if !c.version(ch.ParentID, ch.FromVersion) || !c.validID(ch.ChildID, "child") {
		return
	}
	present, err := txnChildPresent(c.v, c.preceding, ch.ParentID, ch.ChildID, ch.FromVersion)
	if c.storageErr(err) {
		return
	}
	if !present {
		c.fail("element %s is not a child in version %d", ch.ChildID, ch.FromVersion)
	}
}

func (c *checker) setParent(ch *ElementSetParent) {
	t, ok := c.elementType(ch.ElementID)
	if !ok {
		return
	}
	if t == element.TypeRoot {
		c.fail("the root element cannot be moved")
		return
	}
	parentType, ok := c.elementType(ch.ParentID)
	if !ok {
		return
	}
	if ch.ParentID == ch.ElementID {
		c.fail("element cannot be its own parent")
		return
	}
	if !parentType.IsContainer() {
		c.fail("element %s of type %s cannot hold children", ch.ParentID, parentType)
		return
	}
	cycle, err := txnCreatesCycle(c.v, c.preceding, ch.ElementID, ch.ParentID)
	if c.storageErr(err) {
		return
	}
	if cycle {
		c.fail("moving %s below %s would create a cycle", ch.ElementID, ch.ParentID)
		return
	}
	if !t.HasSlugs() {
		return
	}
	newest, err := txnNewestVersion(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	slugs, err := txnGetSlugs(c.v, c.preceding, ch.ElementID, newest)
	if c.storageErr(err) {
		return
	}
	c.claimURLs(ch.ElementID, ch.ParentID, slugs, true)
}

func (c *checker) setReference(ch *ElementSetReference) {
	if !c.version(ch.ElementID, ch.Version) {
		return
	}
	if !referenceName.MatchString(ch.Name) {
		c.fail("invalid reference name %q", ch.Name)
		return
	}
	if ch.TargetID != "" {
		c.elementType(ch.TargetID)
	}
}

func (c *checker) setSlugs(ch *ElementSetSlugs) {
	t, ok := c.elementType(ch.ElementID)
	if !ok {
		return
	}
	if !t.HasSlugs() {
		c.fail("%s elements do not have urls", t)
		return
	}
	if !c.version(ch.ElementID, ch.Version) {
		return
	}
	if len(ch.Slugs) == 0 {
		c.fail("at least one url is required")
		return
	}

	seen := make(map[string]bool, len(ch.Slugs))
	defaults := make(map[string]int)
	for _, s := range ch.Slugs {
		if err := s.Validate(); err != nil {
			c.fail("url %q (%s): %v", s.URL, s.Language, err)
			continue
		}
		if seen[s.Key()] {
			c.fail("url %q (%s) is listed twice", s.URL, s.Language)
			continue
		}
		seen[s.Key()] = true
		if s.Default && !s.Deprecated {
			defaults[s.Language]++
		}
	}
	for lang, n := range defaults {
		if n > 1 {
			c.fail("more than one default url for %s", lang)
		}
	}
	langs, err := txnContentLanguages(c.v, c.preceding, ch.ElementID, ch.Version)
	if c.storageErr(err) {
		return
	}
	for _, lang := range sortedLanguages(langs) {
		if defaults[lang] == 0 {
			c.fail("a default url is required for %s", lang)
		}
	}
	if c.failed {
		return
	}
	c.slugsAvailable(ch)
}

func (c *checker) slugsAvailable(ch *ElementSetSlugs) {
	parent, _, err := txnGetElementParent(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	newest, err := txnNewestVersion(c.v, c.preceding, ch.ElementID)
	if c.storageErr(err) {
		return
	}
	c.claimURLs(ch.ElementID, parent, ch.Slugs, ch.Version == newest)
}

// claimURLs resolves the active slugs of id below parent and rejects any
// URL owned by another live element, either in the current mapping or by
// an earlier change of the transaction. When record is set the URLs become
// id's claims for the rest of the validation pass.
func (c *checker) claimURLs(id, parent string, slugs []element.Slug, record bool) {
	sc := c.v.env.Slugs
	if sc == nil {
		return
	}

	// Relative slugs below an element created in this transaction cannot be
	// resolved against the current mapping yet.
	newParent := !element.IsTopLevel(parent) && txnCreatesElement(c.preceding, parent) != nil
	if newParent {
		parent = element.RootID
	}
	proposed := make(map[string]element.Slug, len(slugs))
	for i, s := range slugs {
		if s.Deprecated || (newParent && !s.IsAbsolute()) {
			continue
		}
		proposed[slugKey(i)] = s
	}
	if len(proposed) == 0 {
		return
	}
	existing := id
	if txnCreatesElement(c.preceding, id) != nil {
		existing = ""
	}
	checks, err := sc.CheckSlugs(parent, proposed, existing)
	if c.storageErr(err) {
		return
	}

	failed := false
	var urls []string
	for i, s := range slugs {
		check, ok := checks[slugKey(i)]
		if !ok {
			continue
		}
		if check.Status == urlmap.SlugTaken {
			c.fail("url %q (%s) is taken: %s", s.URL, s.Language, check.Message)
			failed = true
			continue
		}
		for _, url := range check.URLs {
			if owner, claimed := c.v.claims[url]; claimed && owner != id {
				c.fail("url %q (%s) is taken: %s is claimed by element %s in this transaction", s.URL, s.Language, url, owner)
				failed = true
			}
			urls = append(urls, url)
		}
	}
	if failed || !record {
		return
	}
	for url, owner := range c.v.claims {
		if owner == id {
			delete(c.v.claims, url)
		}
	}
	for _, url := range urls {
		c.v.claims[url] = id
	}
}

func (c *checker) stateChange(ch *ElementStateChange) {
	if !c.version(ch.ElementID, ch.Version) {
		return
	}
	if !element.IsKnownState(ch.State) {
		c.fail("unknown state %q", ch.State)
		return
	}
	current, _, err := txnGetVersionState(c.v, c.preceding, ch.ElementID, ch.Version)
	if c.storageErr(err) {
		return
	}
	if current == ch.State {
		c.fail("nothing to save: version %d is already %s", ch.Version, ch.State)
	}
}

func (c *checker) addSubElement(ch *ElementAddSubElement) {
	if !c.version(ch.ElementID, ch.Version) || !c.language(ch.Language) {
		return
	}
	if err := ch.Path.ValidateNesting(); err != nil {
		c.fail("%v", err)
		return
	}
	if ch.Collection == "" {
		c.fail("collection name is empty")
		return
	}
	if ch.Position < -1 {
		c.fail("invalid position %d", ch.Position)
		return
	}
	if !c.editable(ch.ElementID, ch.Version) {
		return
	}
	if def, ok := c.definition(ch.ElementID, ch.Version); ok {
		if !def.AllowsCollection(ch.Path, ch.Collection) {
			c.fail("definition %q has no collection %q at %v", def.ID, ch.Collection, []string(ch.Path))
			return
		}
		itemScope := append(append(element.ContentPath{}, ch.Path...), ch.Collection, "0")
		for _, field := range sortedFields(ch.Fields) {
			if !def.AllowsField(itemScope, field) {
				c.fail("collection %q has no field %q", ch.Collection, field)
			}
		}
	}
	if len(ch.Path) == 0 {
		return
	}
	exists, err := txnLanguageExists(c.v, c.preceding, ch.ElementID, ch.Version, ch.Language)
	if c.storageErr(err) {
		return
	}
	if !exists {
		c.fail("no %s contents to descend into", ch.Language)
		return
	}
	if contents, ok := c.persistedContents(ch.ElementID, ch.Version, ch.Language); ok {
		if _, err := contents.Descend(ch.Path); err != nil {
			c.fail("%v", err)
		}
	}
}

func (c *checker) removeSubElement(ch *ElementRemoveSubElement) {
	if !c.version(ch.ElementID, ch.Version) || !c.language(ch.Language) {
		return
	}
	if err := ch.Path.ValidateNesting(); err != nil {
		c.fail("%v", err)
		return
	}
	if ch.Index < 0 {
		c.fail("invalid index %d", ch.Index)
		return
	}
	if !c.editable(ch.ElementID, ch.Version) {
		return
	}
	contents, ok := c.persistedContents(ch.ElementID, ch.Version, ch.Language)
	if !ok {
		exists, err := txnLanguageExists(c.v, c.preceding, ch.ElementID, ch.Version, ch.Language)
		if c.storageErr(err) {
			return
		}
		if !exists {
			c.fail("no %s contents", ch.Language)
		}
		return
	}
	target, err := contents.Descend(ch.Path)
	if err != nil {
		c.fail("%v", err)
		return
	}
	if ch.Index >= len(target.SubElements[ch.Collection]) {
		c.fail("index %d out of range for %q", ch.Index, ch.Collection)
	}
}

func slugKey(i int) string {
	return strconv.Itoa(i)
}

func sortedLanguages(langs map[string]bool) []string {
	out := make([]string, 0, len(langs))
	for lang := range langs {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func sortedFields(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
