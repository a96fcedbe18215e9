package urlmap_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/memory"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func id(n int) string {
	return fmt.Sprintf("%032x", n)
}

func en(url string) element.Slug {
	return element.Slug{URL: url, Language: "en", Default: true}
}

type tree struct {
	t    *testing.T
	repo *memory.Repository
}

func newTree(t *testing.T) *tree {
	t.Helper()
	repo := memory.NewRepository()
	require.NoError(t, repo.StoreElement(element.New(element.RootID, element.TypeRoot, "", "root")))
	return &tree{t: t, repo: repo}
}

// add stores a new element under parentID and lists it as a child of the
// parent's newest version.
func (tr *tree) add(n int, typ element.Type, parentID string, slugs ...element.Slug) string {
	tr.t.Helper()
	eid := id(n)
	e := element.New(eid, typ, parentID, string(typ))
	e.Versions[1].Slugs = slugs
	e.Versions[1].Contents = map[string]*element.ElementContents{
		"en": {Fields: map[string]string{"title": eid}},
	}
	require.NoError(tr.t, tr.repo.StoreElement(e))
	if parentID != "" {
		parent, err := tr.repo.LoadElement(parentID)
		require.NoError(tr.t, err)
		v := parent.NewestVersion()
		v.Children = append(v.Children, eid)
		require.NoError(tr.t, tr.repo.StoreElement(parent))
	}
	return eid
}

func (tr *tree) update(eid string, fn func(e *element.Element)) {
	tr.t.Helper()
	e, err := tr.repo.LoadElement(eid)
	require.NoError(tr.t, err)
	require.NotNil(tr.t, e)
	fn(e)
	require.NoError(tr.t, tr.repo.StoreElement(e))
}

func (tr *tree) cache(fast urlmap.FastCache) *urlmap.ElementUrlCache {
	tr.t.Helper()
	if fast == nil {
		fast = stores.NewMemoryStore(0)
	}
	cfg := urlmap.DefaultConfig()
	cfg.RetryBackoff = 0
	c, err := urlmap.NewElementUrlCache(tr.repo, fast, quiet, cfg)
	require.NoError(tr.t, err)
	return c
}

// brokenFast accepts writes but never returns them.
type brokenFast struct {
	stores int
}

func (b *brokenFast) Fetch(string) ([]byte, bool)  { return nil, false }
func (b *brokenFast) Store(string, []byte) error  { b.stores++; return errors.New("unavailable") }
func (b *brokenFast) Delete(string) error         { return nil }
func (b *brokenFast) Clear() error                { return nil }
