package content_test

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/repositories"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/stores"
	schema "github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/database"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/content"
)

const pageID = "0123456789abcdef0123456789abcdef"

func newStore(t *testing.T) (*content.Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	tc := schema.NewTableCreator()
	require.NoError(t, tc.CreateSchema(db))
	require.NoError(t, tc.SeedInitialContent(db))
	require.NoError(t, tc.SeedInitialContent(db))

	return content.NewStore(db, stores.NewElementStore(time.Hour), logging.NewDiscardLogger()), db
}

func samplePage() *element.Element {
	e := element.New(pageID, element.TypePage, element.RootID, "page.standard")
	e.Versions[1].State = element.StatePublished
	e.Versions[1].Slugs = []element.Slug{{URL: "home", Language: "en", Default: true}}
	e.Versions[1].Contents = map[string]*element.ElementContents{
		"en": {
			Fields: map[string]string{"title": "Home"},
			SubElements: map[string][]*element.ElementContents{
				"gallery": {{Fields: map[string]string{"caption": "one"}}},
			},
		},
	}
	e.Versions[2] = &element.ElementVersion{
		Version:    2,
		State:      element.StateEditing,
		Definition: "page.standard",
		References: map[string]string{"hero": element.RootID},
	}
	e.Touch()
	return e
}

func TestSeedCreatesRoot(t *testing.T) {
	store, _ := newStore(t)

	root, err := store.LoadElement(element.RootID)
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, element.TypeRoot, root.Type)
	assert.Equal(t, element.StatePublished, root.Versions[1].State)
}

func TestElementRoundTripThroughDatabase(t *testing.T) {
	store, db := newStore(t)
	e := samplePage()
	require.NoError(t, store.StoreElement(e))

	// A fresh cache forces the load to hit the tables.
	fresh := content.NewStore(db, stores.NewElementStore(time.Hour), logging.NewDiscardLogger())
	got, err := fresh.LoadElement(pageID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.ParentID, got.ParentID)
	assert.True(t, e.Created.Equal(got.Created))
	require.NotNil(t, got.Changed)
	assert.Equal(t, e.Versions[1].Slugs, got.Versions[1].Slugs)
	assert.Equal(t, e.Versions[1].Contents, got.Versions[1].Contents)
	assert.Equal(t, e.Versions[2].References, got.Versions[2].References)
	assert.Equal(t, []int{1, 2}, got.VersionNumbers())

	ids, err := fresh.EnumAllElementIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{element.RootID, pageID}, ids)
}

func TestStoreElementDropsRemovedVersions(t *testing.T) {
	store, db := newStore(t)
	e := samplePage()
	require.NoError(t, store.StoreElement(e))

	delete(e.Versions, 2)
	require.NoError(t, store.StoreElement(e))

	fresh := content.NewStore(db, stores.NewElementStore(time.Hour), logging.NewDiscardLogger())
	got, err := fresh.LoadElement(pageID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got.VersionNumbers())
}

func TestNewElementRefreshesIDList(t *testing.T) {
	store, _ := newStore(t)

	ids, err := store.EnumAllElementIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{element.RootID}, ids)

	require.NoError(t, store.StoreElement(samplePage()))
	ids, err = store.EnumAllElementIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestMissingElement(t *testing.T) {
	store, _ := newStore(t)
	got, err := store.LoadElement("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUrlMappingValidity(t *testing.T) {
	store, _ := newStore(t)

	_, found, err := store.LoadUrlMapping()
	require.NoError(t, err)
	assert.False(t, found)

	mapping := map[string]element.UrlPointer{
		"/home":     {URL: "/home", ElementID: pageID, Languages: []string{"en"}, Default: true},
		"/home-old": {URL: "/home-old", ElementID: pageID, Languages: []string{"en"}, Deprecated: true},
	}
	require.NoError(t, store.StoreUrlMapping(mapping))

	got, found, err := store.LoadUrlMapping()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mapping, got)

	require.NoError(t, store.InvalidateUrlMapping())
	valid, err := store.UrlMappingValid()
	require.NoError(t, err)
	assert.False(t, valid)
	_, found, err = store.LoadUrlMapping()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileMeta(t *testing.T) {
	store, _ := newStore(t)
	meta := &element.FileMeta{ID: "f1", Name: "a.png", MimeType: "image/png", Size: 10, Width: 2, Height: 3}
	require.NoError(t, store.StoreFileMeta(meta))

	got, err := store.LoadFileMeta("f1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a.png", got.Name)
	assert.Equal(t, 3, got.Height)

	require.NoError(t, store.DeleteFileMeta("f1"))
	got, err = store.LoadFileMeta("f1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionLogNewestFirst(t *testing.T) {
	store, _ := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordTransaction(&repositories.TransactionRecord{
			ID:         id,
			AuthorID:   "u1",
			AuthorName: "Editor",
			Kinds:      []string{"ElementContentsChange"},
			ElementIDs: []string{pageID},
			Created:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recs, err := store.RecentTransactions(2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, []string{pageID}, recs[0].ElementIDs)
}

func TestTransactionLogRejectsMalformedRows(t *testing.T) {
	store, db := newStore(t)
	_, err := db.Exec(`INSERT INTO transactions (id, author_id, author_name, kinds, element_ids, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"bad", "u1", "Editor", "not json", "[]", time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)

	recs, err := store.RecentTransactions(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode transaction bad kinds")
	assert.Nil(t, recs)
}
