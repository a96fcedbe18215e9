package changes_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/definitions"
)

func hasError(res *changes.Result, fragment string) bool {
	for _, e := range res.Errors {
		if strings.Contains(e, fragment) {
			return true
		}
	}
	return false
}

func TestInvalidChangeRejectsWholeTransaction(t *testing.T) {
	f := newFixture(t)
	before := f.load(home)

	res := f.engine.ApplyTransaction(txn(
		title(home, 1, "Valid A"),
		&changes.ElementStateChange{ElementID: home, Version: 1, State: "archived"},
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "en", Path: element.ContentPath{"body"}, Value: "Valid C"},
	), nil)

	assert.False(t, res.IsSuccess())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "change 2")
	assert.Empty(t, res.Touched)
	assert.Empty(t, res.TouchedURLs)
	assert.Equal(t, before.Versions, f.load(home).Versions)
}

func TestAllValidationErrorsAreReported(t *testing.T) {
	f := newFixture(t)

	res := f.engine.ValidateTransaction(txn(
		title(home, 7, "x"),
		&changes.ElementStateChange{ElementID: home, Version: 1, State: "archived"},
		&changes.ElementSetSlugs{ElementID: home, Version: 1},
	))
	assert.False(t, res.IsSuccess())
	assert.Len(t, res.Errors, 3)
}

func TestEmptyTransactionIsRejected(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ValidateTransaction(txn())
	assert.False(t, res.IsSuccess())
}

func TestLaterChangeSeesAddedVersion(t *testing.T) {
	f := newFixture(t)
	tx := txn(
		&changes.ElementAddVersion{ElementID: home, Version: 2},
		title(home, 2, "Hi"),
	)

	require.True(t, f.engine.ValidateTransaction(tx).IsSuccess())

	res := f.engine.ApplyTransaction(tx, nil)
	require.True(t, res.IsSuccess(), res.Errors)
	require.Len(t, res.Touched, 1)
	e := res.Touched[0].Element
	assert.Equal(t, "Page 0001", e.Versions[1].Contents["en"].Fields["title"])
	assert.Equal(t, "Hi", e.Versions[2].Contents["en"].Fields["title"])
	assert.Equal(t, element.StateEditing, e.Versions[2].State)
	assert.Contains(t, res.ClientInfo[home], changes.ClientInfo{Type: changes.InfoVersion, Version: 2})

	// the persisted element is untouched until the caller stores it
	assert.Nil(t, f.load(home).Version(2))
}

func TestAddedVersionSkipsNoopCheck(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ValidateTransaction(txn(
		&changes.ElementAddVersion{ElementID: home, Version: 2},
		title(home, 2, "Page 0001"),
	))
	assert.True(t, res.IsSuccess(), res.Errors)
}

func TestContentsChangeRejectsNoop(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ValidateTransaction(txn(title(home, 1, "Page 0001")))
	assert.False(t, res.IsSuccess())
	assert.True(t, hasError(res, "nothing to save"))
}

func TestContentsChangeRejectsNoopAfterEarlierEdits(t *testing.T) {
	f := newFixture(t)
	body := &changes.ElementContentsChange{ElementID: home, Version: 1, Language: "en", Path: element.ContentPath{"body"}, Value: "new"}

	res := f.engine.ValidateTransaction(txn(body, title(home, 1, "Page 0001")))
	assert.True(t, hasError(res, "nothing to save"), res.Errors)

	res = f.engine.ValidateTransaction(txn(title(home, 1, "Draft"), title(home, 1, "Draft")))
	assert.True(t, hasError(res, "nothing to save"), res.Errors)

	res = f.engine.ValidateTransaction(txn(title(home, 1, "Draft"), title(home, 1, "Page 0001")))
	assert.True(t, res.IsSuccess(), res.Errors)

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "de", Path: element.ContentPath{"body"}, Value: "neu"},
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "de", Path: element.ContentPath{"title"}, Value: ""},
	))
	assert.True(t, res.IsSuccess(), res.Errors)
}

func TestContentsChangeCreatesLanguage(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ApplyTransaction(txn(
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "de", Path: element.ContentPath{"title"}, Value: "Start"},
	), nil)
	require.True(t, res.IsSuccess(), res.Errors)
	assert.Equal(t, "Start", res.Touched[0].Element.Versions[1].Contents["de"].Fields["title"])
}

func TestContentsChangeChecksDefinition(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ValidateTransaction(txn(
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "en", Path: element.ContentPath{"color"}, Value: "red"},
	))
	assert.True(t, hasError(res, `no field "color"`))
}

func TestAddVersionRules(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		tx   *changes.Transaction
		ok   bool
	}{
		{"next version", txn(&changes.ElementAddVersion{ElementID: home, Version: 2}), true},
		{"skips a version", txn(&changes.ElementAddVersion{ElementID: home, Version: 3}), false},
		{"already exists", txn(&changes.ElementAddVersion{ElementID: home, Version: 1}), false},
		{"chained", txn(
			&changes.ElementAddVersion{ElementID: home, Version: 2},
			&changes.ElementAddVersion{ElementID: home, Version: 3},
		), true},
		{"added twice", txn(
			&changes.ElementAddVersion{ElementID: home, Version: 2},
			&changes.ElementAddVersion{ElementID: home, Version: 2},
		), false},
		{"unknown element", txn(&changes.ElementAddVersion{ElementID: id(99), Version: 2}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, f.engine.ValidateTransaction(tc.tx).IsSuccess())
		})
	}
}

func TestAddVersionAfterPrunedPredecessor(t *testing.T) {
	f := newFixture(t)
	e := f.load(home)
	e.Versions[2] = e.Versions[1].Clone()
	e.Versions[2].Version = 2
	e.Versions[3] = e.Versions[1].Clone()
	e.Versions[3].Version = 3
	delete(e.Versions, 2)
	require.NoError(t, f.repo.StoreElement(e))

	assert.True(t, f.engine.ValidateTransaction(txn(&changes.ElementAddVersion{ElementID: home, Version: 4})).IsSuccess())
	assert.False(t, f.engine.ValidateTransaction(txn(&changes.ElementAddVersion{ElementID: home, Version: 2})).IsSuccess())
}

func TestStateBlocksEditsUntilChangedBack(t *testing.T) {
	f := newFixture(t)

	res := f.engine.ValidateTransaction(txn(
		&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StatePublished},
		title(home, 1, "Too late"),
	))
	assert.True(t, hasError(res, "cannot be edited"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StatePublished},
		&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StateEditing},
		title(home, 1, "Back again"),
	))
	assert.True(t, res.IsSuccess(), res.Errors)

	res = f.engine.ValidateTransaction(txn(&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StateEditing}))
	assert.True(t, hasError(res, "nothing to save"))
}

func TestStateChangeReportsClientInfo(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ApplyTransaction(txn(
		&changes.ElementStateChange{ElementID: home, Version: 1, State: element.StatePublished},
	), nil)
	require.True(t, res.IsSuccess(), res.Errors)
	assert.Equal(t, []changes.ClientInfo{{Type: changes.InfoState, Version: 1, Value: element.StatePublished}}, res.ClientInfo[home])
	assert.Equal(t, []string{home}, res.TouchedURLs)
	assert.Equal(t, element.StatePublished, res.Changes[home+".state"])
}

func TestCreateAndAttachPage(t *testing.T) {
	f := newFixture(t)
	child := id(2)

	tx := txn(
		&changes.ElementCreate{ElementID: child, Type: element.TypePage, ParentID: home, Definition: "page"},
		&changes.ElementAttachChildElement{ParentID: home, ChildID: child, FromVersion: 1, Position: -1},
		title(child, 1, "About"),
		&changes.ElementSetSlugs{ElementID: child, Version: 1, Slugs: []element.Slug{en("about")}},
	)
	res := f.engine.ApplyTransaction(tx, nil)
	require.True(t, res.IsSuccess(), res.Errors)
	f.persist(res)

	assert.ElementsMatch(t, []string{child, home}, res.TouchedElementIDs())
	assert.Equal(t, []string{child}, f.load(home).Versions[1].Children)
	assert.Equal(t, "About", f.load(child).Versions[1].Contents["en"].Fields["title"])

	require.NoError(t, f.urls.UpdateUrlMappingFor(res.TouchedURLs))
	p, ok := f.urls.Lookup("/home/about")
	require.True(t, ok)
	assert.Equal(t, child, p.ElementID)
}

func TestCreateRules(t *testing.T) {
	f := newFixture(t)

	res := f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: home, Type: element.TypePage, ParentID: element.RootID, Definition: "page"},
	))
	assert.True(t, hasError(res, "already exists"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: id(2), Type: element.TypePage, ParentID: element.RootID, Definition: "snippet"},
	))
	assert.True(t, hasError(res, "does not apply"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: id(2), Type: element.TypeRoot, ParentID: element.RootID, Definition: "root"},
	))
	assert.True(t, hasError(res, "cannot be created"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: id(2), Type: element.TypeSnippet, ParentID: element.RootID, Definition: "snippet"},
		&changes.ElementCreate{ElementID: id(3), Type: element.TypeSnippet, ParentID: id(2), Definition: "snippet"},
	))
	assert.True(t, hasError(res, "cannot hold children"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: "XYZ", Type: element.TypePage, ParentID: element.RootID, Definition: "page"},
	))
	assert.True(t, hasError(res, "malformed"))
}

func TestAttachPropagatesAcrossVersions(t *testing.T) {
	f := newFixture(t)
	e := f.load(home)
	for _, n := range []int{2, 4} {
		v := e.Versions[1].Clone()
		v.Version = n
		e.Versions[n] = v
	}
	require.NoError(t, f.repo.StoreElement(e))
	child := id(5)

	res := f.engine.ApplyTransaction(txn(
		&changes.ElementCreate{ElementID: child, Type: element.TypeSnippet, ParentID: home, Definition: "snippet"},
		&changes.ElementAttachChildElement{ParentID: home, ChildID: child, FromVersion: 2, Position: 0},
	), nil)
	f.persist(res)

	e = f.load(home)
	assert.NotContains(t, e.Versions[1].Children, child)
	assert.Equal(t, []string{child}, e.Versions[2].Children)
	assert.Nil(t, e.Version(3))
	assert.Equal(t, []string{child}, e.Versions[4].Children)

	res = f.engine.ValidateTransaction(txn(&changes.ElementDetachChildElement{ParentID: home, ChildID: child, FromVersion: 1}))
	assert.True(t, hasError(res, "not a child in version 1"))

	res = f.engine.ApplyTransaction(txn(&changes.ElementDetachChildElement{ParentID: home, ChildID: child, FromVersion: 2}), nil)
	f.persist(res)
	e = f.load(home)
	assert.Empty(t, e.Versions[2].Children)
	assert.Empty(t, e.Versions[4].Children)
	assert.Equal(t, []string{child}, res.TouchedURLs)
}

func TestAttachRules(t *testing.T) {
	f := newFixture(t)
	other := f.page(2, element.RootID, en("other"))
	f.rebuild()

	res := f.engine.ValidateTransaction(txn(&changes.ElementAttachChildElement{ParentID: home, ChildID: other, FromVersion: 1, Position: -1}))
	assert.True(t, hasError(res, "is not parented to"))

	res = f.engine.ValidateTransaction(txn(&changes.ElementAttachChildElement{ParentID: element.RootID, ChildID: home, FromVersion: 1, Position: -1}))
	assert.True(t, hasError(res, "already a child"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementDetachChildElement{ParentID: element.RootID, ChildID: other, FromVersion: 1},
		&changes.ElementSetParent{ElementID: other, ParentID: home},
		&changes.ElementAttachChildElement{ParentID: home, ChildID: other, FromVersion: 1, Position: -1},
	))
	assert.True(t, res.IsSuccess(), res.Errors)
}

func TestSetParentRejectsCycles(t *testing.T) {
	f := newFixture(t)
	child := f.page(2, home, en("child"))
	grandchild := f.page(3, child, en("grandchild"))

	res := f.engine.ValidateTransaction(txn(&changes.ElementSetParent{ElementID: home, ParentID: grandchild}))
	assert.True(t, hasError(res, "cycle"))

	res = f.engine.ValidateTransaction(txn(&changes.ElementSetParent{ElementID: home, ParentID: home}))
	assert.False(t, res.IsSuccess())

	res = f.engine.ValidateTransaction(txn(&changes.ElementSetParent{ElementID: element.RootID, ParentID: home}))
	assert.True(t, hasError(res, "root element cannot be moved"))
}

func TestSetParentRejectsTakenURL(t *testing.T) {
	f := newFixture(t)
	p := f.page(2, element.RootID, en("p"))
	f.page(3, p, en("x"))
	moved := f.page(4, element.RootID, en("x"))
	f.rebuild()

	res := f.engine.ValidateTransaction(txn(
		&changes.ElementDetachChildElement{ParentID: element.RootID, ChildID: moved, FromVersion: 1},
		&changes.ElementSetParent{ElementID: moved, ParentID: p},
		&changes.ElementAttachChildElement{ParentID: p, ChildID: moved, FromVersion: 1, Position: -1},
	))
	assert.True(t, hasError(res, "is taken"), res.Errors)

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementDetachChildElement{ParentID: element.RootID, ChildID: moved, FromVersion: 1},
		&changes.ElementSetSlugs{ElementID: moved, Version: 1, Slugs: []element.Slug{en("y")}},
		&changes.ElementSetParent{ElementID: moved, ParentID: p},
		&changes.ElementAttachChildElement{ParentID: p, ChildID: moved, FromVersion: 1, Position: -1},
	))
	assert.True(t, res.IsSuccess(), res.Errors)
}

func TestSetSlugsMergesHistory(t *testing.T) {
	f := newFixture(t)

	res := f.engine.ApplyTransaction(txn(
		&changes.ElementSetSlugs{ElementID: home, Version: 1, Slugs: []element.Slug{en("start")}},
	), nil)
	f.persist(res)

	slugs := f.load(home).Versions[1].Slugs
	require.Len(t, slugs, 2)
	assert.Equal(t, element.Slug{URL: "home", Language: "en", Deprecated: true}, slugs[0])
	assert.Equal(t, en("start"), slugs[1])
	assert.NotEmpty(t, res.Infos)

	res = f.engine.ApplyTransaction(txn(
		&changes.ElementSetSlugs{ElementID: home, Version: 1, Slugs: []element.Slug{en("welcome")}},
	), nil)
	f.persist(res)
	assert.Len(t, f.load(home).Versions[1].Slugs, 3)
}

func TestSetSlugsRules(t *testing.T) {
	f := newFixture(t)
	f.page(2, element.RootID, en("about"))
	f.rebuild()

	cases := []struct {
		name  string
		slugs []element.Slug
		err   string
	}{
		{"empty", nil, "at least one url"},
		{"invalid", []element.Slug{en("a b")}, "not allowed"},
		{"no default", []element.Slug{{URL: "home", Language: "en"}}, "default url is required for en"},
		{"two defaults", []element.Slug{en("one"), en("two")}, "more than one default"},
		{"listed twice", []element.Slug{en("one"), {URL: "ONE", Language: "en"}}, "listed twice"},
		{"taken", []element.Slug{en("about")}, "is taken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.engine.ValidateTransaction(txn(&changes.ElementSetSlugs{ElementID: home, Version: 1, Slugs: tc.slugs}))
			assert.True(t, hasError(res, tc.err), res.Errors)
		})
	}

	res := f.engine.ValidateTransaction(txn(&changes.ElementSetSlugs{ElementID: home, Version: 1, Slugs: []element.Slug{en("home")}}))
	assert.True(t, res.IsSuccess(), res.Errors)

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCreate{ElementID: id(3), Type: element.TypeSnippet, ParentID: home, Definition: "snippet"},
		&changes.ElementSetSlugs{ElementID: id(3), Version: 1, Slugs: []element.Slug{en("x")}},
	))
	assert.True(t, hasError(res, "do not have urls"))
}

func TestSetSlugsRejectsURLClaimedEarlierInTransaction(t *testing.T) {
	f := newFixture(t)
	a := f.page(2, element.RootID, en("a"))
	b := f.page(3, element.RootID, en("b"))
	f.rebuild()

	res := f.engine.ValidateTransaction(txn(
		&changes.ElementSetSlugs{ElementID: a, Version: 1, Slugs: []element.Slug{en("x")}},
		&changes.ElementSetSlugs{ElementID: b, Version: 1, Slugs: []element.Slug{en("x")}},
	))
	assert.True(t, hasError(res, "claimed by element "+a), res.Errors)

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementSetSlugs{ElementID: a, Version: 1, Slugs: []element.Slug{en("x")}},
		&changes.ElementSetSlugs{ElementID: a, Version: 1, Slugs: []element.Slug{en("y")}},
		&changes.ElementSetSlugs{ElementID: b, Version: 1, Slugs: []element.Slug{en("x")}},
	))
	assert.True(t, res.IsSuccess(), res.Errors)
}

func TestSubElementsWithinOneTransaction(t *testing.T) {
	f := newFixture(t)

	res := f.engine.ApplyTransaction(txn(
		&changes.ElementAddSubElement{ElementID: home, Version: 1, Language: "en", Collection: "gallery", Position: -1, Fields: map[string]string{"caption": "first"}},
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "en", Path: element.ContentPath{"gallery", "0", "caption"}, Value: "edited"},
		&changes.ElementAddSubElement{ElementID: home, Version: 1, Language: "en", Collection: "gallery", Position: 0},
	), nil)
	require.True(t, res.IsSuccess(), res.Errors)
	f.persist(res)

	gallery := f.load(home).Versions[1].Contents["en"].SubElements["gallery"]
	require.Len(t, gallery, 2)
	assert.Empty(t, gallery[0].Fields)
	assert.Equal(t, "edited", gallery[1].Fields["caption"])

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementRemoveSubElement{ElementID: home, Version: 1, Language: "en", Collection: "gallery", Index: 5},
	))
	assert.True(t, hasError(res, "out of range"))

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementAddSubElement{ElementID: home, Version: 1, Language: "en", Collection: "widgets", Position: -1},
	))
	assert.True(t, hasError(res, `no collection "widgets"`))

	res = f.engine.ApplyTransaction(txn(
		&changes.ElementRemoveSubElement{ElementID: home, Version: 1, Language: "en", Collection: "gallery", Index: 0},
	), nil)
	f.persist(res)
	assert.Len(t, f.load(home).Versions[1].Contents["en"].SubElements["gallery"], 1)
}

func TestCopyContents(t *testing.T) {
	f := newFixture(t)
	res := f.engine.ApplyTransaction(txn(
		&changes.ElementCopyContents{ElementID: home, Version: 1, Language: "de", SourceElementID: home, SourceVersion: 1, SourceLanguage: "en"},
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "de", Path: element.ContentPath{"title"}, Value: "Startseite"},
	), nil)
	require.True(t, res.IsSuccess(), res.Errors)
	v := res.Touched[0].Element.Versions[1]
	assert.Equal(t, "Page 0001", v.Contents["en"].Fields["title"])
	assert.Equal(t, "Startseite", v.Contents["de"].Fields["title"])

	res = f.engine.ValidateTransaction(txn(
		&changes.ElementCopyContents{ElementID: home, Version: 1, Language: "de", SourceElementID: home, SourceVersion: 1, SourceLanguage: "fr"},
	))
	assert.True(t, hasError(res, "has no fr contents"))
}

func TestReferencesAndDefinitions(t *testing.T) {
	f := newFixture(t)
	other := f.page(2, element.RootID, en("other"))

	res := f.engine.ApplyTransaction(txn(
		&changes.ElementSetReference{ElementID: home, Version: 1, Name: "related_page", TargetID: other},
	), nil)
	f.persist(res)
	assert.Equal(t, other, f.load(home).Versions[1].References["related_page"])

	res = f.engine.ValidateTransaction(txn(&changes.ElementSetReference{ElementID: home, Version: 1, Name: "Bad-Name", TargetID: other}))
	assert.True(t, hasError(res, "invalid reference name"))

	res = f.engine.ValidateTransaction(txn(&changes.ElementDefinitionChange{ElementID: home, Version: 1, Definition: "page"}))
	assert.True(t, hasError(res, "nothing to save"))
	res = f.engine.ValidateTransaction(txn(&changes.ElementDefinitionChange{ElementID: home, Version: 1, Definition: "search"}))
	assert.True(t, hasError(res, "does not apply"))
}

func TestAddFileMeta(t *testing.T) {
	f := newFixture(t)
	file := id(40)

	res := f.engine.ValidateTransaction(txn(&changes.AddFileMeta{FileID: file, Name: "a.png"}))
	assert.True(t, hasError(res, "mime type"))
	assert.True(t, hasError(res, "size"))

	res = f.engine.ApplyTransaction(txn(&changes.AddFileMeta{FileID: file, Name: "a.png", MimeType: "image/png", Size: 10, Width: 2, Height: 3}), nil)
	f.persist(res)
	meta, err := f.repo.LoadFileMeta(file)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 2, meta.Width)
}

func TestVisitorSeesEveryStorable(t *testing.T) {
	f := newFixture(t)
	var seen []string
	res := f.engine.ApplyTransaction(txn(
		title(home, 1, "Changed"),
		&changes.AddFileMeta{FileID: id(40), Name: "a.png", MimeType: "image/png", Size: 1},
	), func(s changes.Storable) error {
		seen = append(seen, s.Key())
		return nil
	})
	require.True(t, res.IsSuccess(), res.Errors)
	assert.Equal(t, []string{"element:" + home, "file:" + id(40)}, seen)
}

type unreadable struct{}

func (unreadable) LoadElement(string) (*element.Element, error) {
	return nil, errors.New("disk unavailable")
}

func TestStorageErrorsRejectTransaction(t *testing.T) {
	f := newFixture(t)
	engine := changes.NewEngine(changes.Env{
		Elements:    unreadable{},
		Files:       f.repo,
		Definitions: definitions.Defaults(),
	}, quiet)

	cases := []struct {
		name   string
		change changes.Change
	}{
		{"definition", &changes.ElementDefinitionChange{ElementID: home, Version: 1, Definition: "article"}},
		{"remove sub element", &changes.ElementRemoveSubElement{ElementID: home, Version: 1, Language: "en", Collection: "gallery", Index: 0}},
		{"set parent", &changes.ElementSetParent{ElementID: home, ParentID: element.RootID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := engine.ValidateTransaction(txn(tc.change))
			assert.False(t, res.IsSuccess())
			assert.True(t, hasError(res, "disk unavailable"), res.Errors)
		})
	}
}
