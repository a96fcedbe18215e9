package changes_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/definitions"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func id(n int) string {
	return fmt.Sprintf("%032x", n)
}

func en(url string) element.Slug {
	return element.Slug{URL: url, Language: "en", Default: true}
}

var home = id(1)

type fixture struct {
	t      *testing.T
	repo   *memory.Repository
	urls   *urlmap.ElementUrlCache
	engine *changes.Engine
}

// newFixture stores the root and an editable home page at /home with an
// English title.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, repo: memory.NewRepository()}
	root := element.New(element.RootID, element.TypeRoot, "", "root")
	require.NoError(t, f.repo.StoreElement(root))
	f.page(1, element.RootID, en("home"))

	cfg := urlmap.DefaultConfig()
	cfg.RetryBackoff = 0
	urls, err := urlmap.NewElementUrlCache(f.repo, stores.NewMemoryStore(0), quiet, cfg)
	require.NoError(t, err)
	f.urls = urls
	f.engine = changes.NewEngine(changes.Env{
		Elements:    f.repo,
		Files:       f.repo,
		Definitions: definitions.Defaults(),
		Slugs:       urls,
	}, quiet)
	return f
}

// page stores a page element below parentID and attaches it there. Call
// before the URL cache is built, or rebuild it afterwards.
func (f *fixture) page(n int, parentID string, slugs ...element.Slug) string {
	f.t.Helper()
	eid := id(n)
	e := element.New(eid, element.TypePage, parentID, "page")
	e.Versions[1].Slugs = slugs
	e.Versions[1].Contents = map[string]*element.ElementContents{
		"en": {Fields: map[string]string{"title": "Page " + eid[28:]}},
	}
	require.NoError(f.t, f.repo.StoreElement(e))
	parent, err := f.repo.LoadElement(parentID)
	require.NoError(f.t, err)
	for _, v := range parent.Versions {
		v.Children = append(v.Children, eid)
	}
	require.NoError(f.t, f.repo.StoreElement(parent))
	return eid
}

func (f *fixture) rebuild() {
	f.t.Helper()
	require.NoError(f.t, f.urls.CreateUrlMapping())
}

func (f *fixture) load(eid string) *element.Element {
	f.t.Helper()
	e, err := f.repo.LoadElement(eid)
	require.NoError(f.t, err)
	require.NotNil(f.t, e)
	return e
}

// persist stores every touched object of a successful apply.
func (f *fixture) persist(res *changes.Result) {
	f.t.Helper()
	require.True(f.t, res.IsSuccess(), res.Errors)
	for _, s := range res.Touched {
		if s.Element != nil {
			require.NoError(f.t, f.repo.StoreElement(s.Element))
		}
		if s.File != nil {
			require.NoError(f.t, f.repo.StoreFileMeta(s.File))
		}
	}
}

func txn(cs ...changes.Change) *changes.Transaction {
	return &changes.Transaction{ID: "test", Changes: cs}
}

func title(eid string, version int, value string) *changes.ElementContentsChange {
	return &changes.ElementContentsChange{ElementID: eid, Version: version, Language: "en", Path: element.ContentPath{"title"}, Value: value}
}
