package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/tractstack-elements/internal/domain/changes"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/entities/element"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/urlmap"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/definitions"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/media"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/memory"
)

var editor = &user.User{ID: "u1", Name: "Editor", Roles: []string{user.RoleEditor}}

func id(n int) string {
	return fmt.Sprintf("%032x", n)
}

var (
	home  = id(1)
	about = id(2)
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []*messaging.ChangeEvent
}

func (b *recordingBroadcaster) Broadcast(e *messaging.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

type harness struct {
	t         *testing.T
	repo      *memory.Repository
	urls      *URLMappingService
	elements  *ElementService
	txns      *TransactionService
	planning  *PlanningService
	broadcast *recordingBroadcaster
}

func storePage(t *testing.T, repo *memory.Repository, eid, parentID, slug string) {
	t.Helper()
	e := element.New(eid, element.TypePage, parentID, "page")
	e.Versions[1].Slugs = []element.Slug{{URL: slug, Language: "en", Default: true}}
	e.Versions[1].Contents = map[string]*element.ElementContents{"en": {Fields: map[string]string{"title": slug}}}
	require.NoError(t, repo.StoreElement(e))

	parent, err := repo.LoadElement(parentID)
	require.NoError(t, err)
	parent.Versions[1].Children = append(parent.Versions[1].Children, eid)
	require.NoError(t, repo.StoreElement(parent))
}

// newHarness stores root, /home and /home/about.
func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.NewDiscardLogger()
	repo := memory.NewRepository()
	require.NoError(t, repo.StoreElement(element.New(element.RootID, element.TypeRoot, "", "root")))
	storePage(t, repo, home, element.RootID, "home")
	storePage(t, repo, about, home, "about")

	tracker := performance.NewTracker(logger.Perf(), time.Second)
	cfg := urlmap.DefaultConfig()
	cfg.RetryBackoff = 0
	urls, err := NewURLMappingService(repo, stores.NewMemoryStore(0), cfg, tracker, logger)
	require.NoError(t, err)

	engine := changes.NewEngine(changes.Env{
		Elements:    repo,
		Files:       repo,
		Definitions: definitions.Defaults(),
		Slugs:       urls,
	}, logger.Transaction())

	b := &recordingBroadcaster{}
	return &harness{
		t:         t,
		repo:      repo,
		urls:      urls,
		elements:  NewElementService(repo, urls),
		txns:      NewTransactionService(engine, repo, urls, b, tracker, logger),
		planning:  NewPlanningService(repo),
		broadcast: b,
	}
}

func (h *harness) apply(txn *changes.Transaction) *TransactionReport {
	h.t.Helper()
	report, err := h.txns.ApplyTransaction(context.Background(), txn, nil)
	require.NoError(h.t, err)
	return report
}

func (h *harness) title(eid string) string {
	h.t.Helper()
	e, err := h.repo.LoadElement(eid)
	require.NoError(h.t, err)
	return e.NewestVersion().Contents["en"].Fields["title"]
}

func TestCreatePageEndToEnd(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.CreatePage(editor, &CreatePageRequest{ParentID: home, Language: "en", Title: "Team", Slug: "team"})
	require.NoError(t, err)
	newID := txn.Changes[0].Subject()
	assert.True(t, element.IsValidID(newID))

	report := h.apply(txn)
	require.True(t, report.IsSuccess(), report.Errors)
	assert.Equal(t, StateApplied, report.State)
	assert.Equal(t, txn.ID, report.TransactionID)

	page, err := h.elements.Resolve("/Home/Team/")
	require.NoError(t, err)
	assert.Equal(t, newID, page.Element.ID)
	assert.Empty(t, page.Redirect)
	assert.Equal(t, "Team", h.title(newID))

	parent, err := h.repo.LoadElement(home)
	require.NoError(t, err)
	assert.True(t, parent.Versions[1].HasChild(newID))

	recs, err := h.txns.RecentTransactions(5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "u1", recs[0].AuthorID)
	assert.Contains(t, recs[0].ElementIDs, newID)

	require.Len(t, h.broadcast.events, 1)
	assert.Equal(t, txn.ID, h.broadcast.events[0].TransactionID)
	assert.Contains(t, h.broadcast.events[0].ClientInfo, newID)
}

func TestRejectedTransactionStoresNothing(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.CreatePage(editor, &CreatePageRequest{ParentID: element.RootID, Language: "en", Title: "Dup", Slug: "home"})
	require.NoError(t, err)
	report := h.apply(txn)

	assert.False(t, report.IsSuccess())
	assert.Equal(t, StateRejected, report.State)
	assert.NotEmpty(t, report.Errors)

	e, err := h.repo.LoadElement(txn.Changes[0].Subject())
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.Empty(t, h.broadcast.events)
}

func TestValidateDoesNotApply(t *testing.T) {
	h := newHarness(t)
	txn, err := h.planning.UpdateField(editor, &UpdateFieldRequest{ElementID: home, Language: "en", Path: []string{"title"}, Value: "Welcome"})
	require.NoError(t, err)

	report, err := h.txns.ValidateTransaction(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, StateValidated, report.State)
	assert.Equal(t, "home", h.title(home))
}

func TestPersistenceFailureRevertsPersistedChanges(t *testing.T) {
	h := newHarness(t)
	h.repo.FailStore = func(eid string) error {
		if eid == about {
			return errors.New("disk full")
		}
		return nil
	}

	report := h.apply(&changes.Transaction{Author: editor, Changes: changes.List{
		&changes.ElementContentsChange{ElementID: home, Version: 1, Language: "en", Path: element.ContentPath{"title"}, Value: "Changed"},
		&changes.ElementContentsChange{ElementID: about, Version: 1, Language: "en", Path: element.ContentPath{"title"}, Value: "Changed"},
	}})

	assert.False(t, report.IsSuccess())
	assert.Equal(t, StatePartiallyApplied, report.State)
	assert.Empty(t, report.RevertUnsupported)
	assert.Empty(t, report.RevertFailed)
	assert.Equal(t, "home", h.title(home))
	assert.Equal(t, "about", h.title(about))
	assert.Empty(t, h.broadcast.events)
}

func TestPersistenceFailureReportsUnsupportedReverts(t *testing.T) {
	h := newHarness(t)
	h.repo.FailStore = func(eid string) error {
		if eid == home {
			return errors.New("locked")
		}
		return nil
	}

	txn, err := h.planning.CreatePage(editor, &CreatePageRequest{ParentID: home, Language: "en", Title: "Team", Slug: "team"})
	require.NoError(t, err)
	report := h.apply(txn)

	assert.Equal(t, StatePartiallyApplied, report.State)
	assert.Equal(t, []string{"change 1 (ElementCreate)"}, report.RevertUnsupported)
}

func TestSlugChangeUpdatesDescendants(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.SetSlugs(editor, &SetSlugsRequest{ElementID: home, Slugs: []SlugRequest{{URL: "start", Language: "en", Default: true}}})
	require.NoError(t, err)
	report := h.apply(txn)
	require.True(t, report.IsSuccess(), report.Errors)

	p, ok := h.urls.Resolve("/start/about")
	require.True(t, ok)
	assert.Equal(t, about, p.ElementID)
	assert.True(t, p.Default)

	old, err := h.elements.Resolve("/home/about")
	require.NoError(t, err)
	assert.True(t, old.Pointer.Deprecated)
	assert.Equal(t, "/start/about", old.Redirect)
}

type failingURLUpdater struct{ err error }

func (u failingURLUpdater) UpdateFor([]string) error { return u.err }

func TestFailedURLUpdateMarksMappingStale(t *testing.T) {
	h := newHarness(t)
	h.txns.urls = failingURLUpdater{err: &urlmap.CorruptionError{ElementID: home, Reason: "url /start is claimed twice"}}

	txn, err := h.planning.SetSlugs(editor, &SetSlugsRequest{ElementID: home, Slugs: []SlugRequest{{URL: "start", Language: "en", Default: true}}})
	require.NoError(t, err)
	report := h.apply(txn)

	require.True(t, report.IsSuccess(), report.Errors)
	assert.Equal(t, StateApplied, report.State)
	assert.True(t, report.URLMappingStale)
	require.NotEmpty(t, report.Infos)
	assert.Contains(t, report.Infos[len(report.Infos)-1], "url mapping not updated")

	report = h.apply(&changes.Transaction{Author: editor, Changes: changes.List{
		&changes.ElementContentsChange{ElementID: about, Version: 1, Language: "en", Path: element.ContentPath{"title"}, Value: "About us"},
	}})
	require.True(t, report.IsSuccess(), report.Errors)
	assert.False(t, report.URLMappingStale)
}

func TestMoveReparentsAndResolves(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.Move(editor, &MoveRequest{ElementID: about, NewParentID: element.RootID})
	require.NoError(t, err)
	report := h.apply(txn)
	require.True(t, report.IsSuccess(), report.Errors)

	p, ok := h.urls.Resolve("/about")
	require.True(t, ok)
	assert.Equal(t, about, p.ElementID)
	_, ok = h.urls.Resolve("/home/about")
	assert.False(t, ok)

	parent, err := h.repo.LoadElement(home)
	require.NoError(t, err)
	assert.False(t, parent.Versions[1].HasChild(about))
}

func TestPublishThenDraft(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.Publish(editor, &PublishRequest{ElementID: home})
	require.NoError(t, err)
	require.True(t, h.apply(txn).IsSuccess())

	edit, err := h.planning.UpdateField(editor, &UpdateFieldRequest{ElementID: home, Language: "en", Path: []string{"title"}, Value: "New"})
	require.NoError(t, err)
	assert.False(t, h.apply(edit).IsSuccess())

	draft, err := h.planning.NewDraft(editor, &NewDraftRequest{ElementID: home})
	require.NoError(t, err)
	require.True(t, h.apply(draft).IsSuccess())

	edit, err = h.planning.UpdateField(editor, &UpdateFieldRequest{ElementID: home, Language: "en", Path: []string{"title"}, Value: "New"})
	require.NoError(t, err)
	require.True(t, h.apply(edit).IsSuccess())

	e, err := h.repo.LoadElement(home)
	require.NoError(t, err)
	assert.Equal(t, element.StatePublished, e.Versions[1].State)
	assert.Equal(t, "home", e.Versions[1].Contents["en"].Fields["title"])
	assert.Equal(t, "New", e.Versions[2].Contents["en"].Fields["title"])
}

func TestDeleteDropsURLs(t *testing.T) {
	h := newHarness(t)

	txn, err := h.planning.Delete(editor, &DeleteRequest{ElementID: about})
	require.NoError(t, err)
	require.True(t, h.apply(txn).IsSuccess())

	_, err = h.elements.Resolve("/home/about")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanningRejectsMalformedRequests(t *testing.T) {
	h := newHarness(t)

	_, err := h.planning.CreatePage(editor, &CreatePageRequest{ParentID: "nope", Language: "en", Title: "x", Slug: "x"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = h.planning.SetSlugs(editor, &SetSlugsRequest{ElementID: home, Slugs: []SlugRequest{{URL: "x", Language: "EN"}}})
	require.ErrorAs(t, err, &verrs)

	_, err = h.planning.Move(editor, &MoveRequest{ElementID: home, NewParentID: home})
	require.ErrorAs(t, err, &verrs)

	_, err = h.planning.NewDraft(editor, &NewDraftRequest{ElementID: id(99)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadRegistersFileMeta(t *testing.T) {
	h := newHarness(t)
	files := NewFileService(media.NewFileProcessor(t.TempDir()), h.txns, 1<<20)

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(40, 20, color.White), imaging.PNG))

	res, err := files.Upload(context.Background(), editor, "logo.png", buf.Bytes())
	require.NoError(t, err)
	require.True(t, res.IsSuccess(), res.Errors)
	assert.Equal(t, "files/"+res.FileID+".png", res.Path)

	meta, err := h.repo.LoadFileMeta(res.FileID)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "image/png", meta.MimeType)
	assert.Equal(t, 40, meta.Width)

	_, err = files.Upload(context.Background(), editor, "big.bin", make([]byte, 2<<20))
	assert.Error(t, err)
}

func TestIntegrityAnalysis(t *testing.T) {
	h := newHarness(t)
	svc := NewIntegrityService(h.repo, logging.NewDiscardLogger())

	report, etag, err := svc.Analyze()
	require.NoError(t, err)
	assert.True(t, report.IsClean(), report)
	assert.NotEmpty(t, etag)

	_, again, err := svc.Analyze()
	require.NoError(t, err)
	assert.Equal(t, etag, again)
}
