package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/api/apitest"
	"bokeh-viewer/internal/gallery"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/media"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/regen"
	"bokeh-viewer/internal/rotation"
	"bokeh-viewer/internal/thumbnail"
	"bokeh-viewer/internal/viewer"
)

type fakeJobs struct {
	mu       sync.Mutex
	status   jobs.Status
	triggers int
}

func (f *fakeJobs) Latest() jobs.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeJobs) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

func (f *fakeJobs) set(list ...api.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.Jobs = list
}

func testPhoto(id int, taken, path string) photo.Record {
	ts, err := photo.ParseTimestamp(taken)
	if err != nil {
		panic(err)
	}
	return photo.Record{
		ID:           id,
		Filename:     path[strings.LastIndex(path, "/")+1:],
		DateTaken:    &ts,
		CreatedAt:    ts,
		RelativePath: path,
		Width:        4,
		Height:       2,
	}
}

type testEnv struct {
	app     *App
	backend *apitest.Backend
	state   *gallery.State
	session *viewer.Session
	jobs    *fakeJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := apitest.NewBackend(t)
	backend.AddPhotos(
		testPhoto(1, "2024-03-10T10:00:00", "trips/rome/a.jpg"),
		testPhoto(2, "2024-03-02T10:00:00", "trips/b.jpg"),
		testPhoto(3, "2024-01-15T10:00:00", "trips/c.jpg"),
		testPhoto(4, "2023-07-04T10:00:00", "home/d.jpg"),
	)
	client := backend.Client()

	state := gallery.New(gallery.DefaultSort)
	stamps := thumbnail.NewStamps(5 * time.Second)
	resolver := thumbnail.NewResolver(backend.URL())
	sched := regen.NewScheduler(client, stamps, regen.Options{})
	rot := rotation.NewController(client, state, sched, rotation.Options{Rollback: true})
	session := viewer.NewSession(viewer.Deps{
		Gallery:   state,
		Rotations: rot,
		Scheduler: sched,
		Stamps:    stamps,
		Resolver:  resolver,
	})
	images := media.NewLoader(client, nil, media.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond})
	fj := &fakeJobs{}

	app := New(Deps{
		Client:    client,
		Gallery:   state,
		Pages:     gallery.NewLoader(client, state, 2),
		Session:   session,
		Rotations: rot,
		Stamps:    stamps,
		Resolver:  resolver,
		Images:    images,
		Prefetch:  images,
		Jobs:      fj,
		Actions:   jobs.NewActions(client, jobs.NewNotice(nil), jobs.NewConfirmations(time.Minute, nil), nil),
		Workers:   2,
	})
	t.Cleanup(func() {
		app.Wait()
		session.Wait()
		sched.Wait()
	})

	return &testEnv{app: app, backend: backend, state: state, session: session, jobs: fj}
}

// press sends keys and waits for the background work they started.
func (e *testEnv) press(keys ...viewer.Key) bool {
	ok := true
	for _, k := range keys {
		ok = e.app.HandleKey(context.Background(), k)
		e.app.Wait()
		e.session.Wait()
	}
	return ok
}

func key(code viewer.KeyCode) viewer.Key {
	return viewer.Key{Code: code}
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	e.app.Start(context.Background())
	e.app.Wait()
	require.Equal(t, 2, e.state.Len())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "grid", ModeGrid.String())
	assert.Equal(t, "jobs", ModeJobs.String())
	assert.Equal(t, "unknown", Mode(42).String())
}

func TestLayoutGrid(t *testing.T) {
	ps := func(ids ...int) []photo.Record {
		out := make([]photo.Record, len(ids))
		for i, id := range ids {
			out[i] = photo.Record{ID: id}
		}
		return out
	}

	lines := layoutGrid([]section{
		{title: "March", photos: ps(1, 2, 3, 4, 5)},
		{title: "January", photos: ps(6)},
	}, 2)

	require.Len(t, lines, 6)
	assert.Equal(t, "March", lines[0].title)
	assert.Nil(t, lines[0].photos)
	assert.Equal(t, 0, lines[1].start)
	assert.Len(t, lines[1].photos, 2)
	assert.Equal(t, 4, lines[3].start)
	assert.Len(t, lines[3].photos, 1)
	assert.Equal(t, "January", lines[4].title)
	assert.Equal(t, 5, lines[5].start)

	assert.Equal(t, 5, cursorLine(lines, 5))
	assert.Equal(t, 2, cursorLine(lines, 3))
}

func TestGridColumns(t *testing.T) {
	assert.Equal(t, 1, gridColumns(10))
	assert.Equal(t, 1, gridColumns(16))
	assert.Equal(t, 2, gridColumns(34))
	assert.Equal(t, 4, gridColumns(80))
}

func TestScrollTo(t *testing.T) {
	rows := func(n int) []gridLine {
		out := make([]gridLine, n)
		for i := range out {
			out[i] = gridLine{start: i, photos: []photo.Record{{ID: i + 1}}}
		}
		return out
	}
	withTitle := append([]gridLine{{title: "2024"}}, rows(3)...)

	tests := []struct {
		name   string
		lines  []gridLine
		target int
		scroll int
		height int
		want   int
	}{
		{"visible stays", rows(5), 1, 0, 30, 0},
		{"below scrolls down", rows(5), 4, 0, 20, 3},
		{"above scrolls up", rows(5), 1, 3, 20, 1},
		{"title kept", withTitle, 1, 1, 20, 0},
		{"title dropped when short", withTitle, 1, 0, 9, 1},
		{"empty", nil, 0, 4, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scrollTo(tt.lines, tt.target, tt.scroll, tt.height))
		})
	}
}

func TestMoveLoadsNextPage(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(key(viewer.KeyRight))

	assert.Equal(t, 1, e.app.Cursor())
	assert.Equal(t, 4, e.state.Len())

	e.press(key(viewer.KeyRight), key(viewer.KeyRight), key(viewer.KeyRight), key(viewer.KeyRight))
	assert.Equal(t, 3, e.app.Cursor(), "cursor stops at the last photo")
}

func TestEnterOpensViewerAtCursor(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(key(viewer.KeyRight), key(viewer.KeyEnter))
	require.True(t, e.session.IsOpen())
	assert.Equal(t, 2, e.session.CurrentID())

	e.press(key(viewer.KeyRight))
	assert.Equal(t, 3, e.session.CurrentID(), "keys go to the viewer while it is open")

	e.press(key(viewer.KeyEscape))
	assert.False(t, e.session.IsOpen())
	assert.Equal(t, ModeGrid, e.app.Mode())
}

func TestQuitKeys(t *testing.T) {
	e := newTestEnv(t)

	assert.False(t, e.press(viewer.RuneKey('q')))
	assert.False(t, e.press(viewer.Key{Code: viewer.KeyRune, Rune: 'c', Ctrl: true}))
	assert.True(t, e.press(viewer.Key{Code: viewer.KeyRune, Rune: 'y', Meta: true}))
	assert.Equal(t, ModeGrid, e.app.Mode(), "modified keys are ignored")
}

func TestCtrlCQuitsFromViewer(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(key(viewer.KeyEnter))
	require.True(t, e.session.IsOpen())
	assert.True(t, e.press(viewer.RuneKey('q')), "q is not a viewer key")
	assert.False(t, e.press(viewer.Key{Code: viewer.KeyRune, Rune: 'c', Ctrl: true}))
}

func TestYearDrillDown(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(viewer.RuneKey('y'))
	require.Equal(t, ModeYears, e.app.Mode())
	assert.Equal(t, 2, e.app.length(ModeYears))

	e.press(key(viewer.KeyEnter))
	require.Equal(t, ModeScope, e.app.Mode())

	sections := e.app.scopeSections()
	require.Len(t, sections, 2)
	assert.Equal(t, "March 2024", sections[0].title)
	assert.Len(t, sections[0].photos, 2)
	assert.Equal(t, "January 2024", sections[1].title)

	e.press(key(viewer.KeyDown), key(viewer.KeyDown), key(viewer.KeyEnter))
	require.True(t, e.session.IsOpen())
	assert.Equal(t, 3, e.session.CurrentID())
	e.press(key(viewer.KeyEscape))

	e.press(key(viewer.KeyEscape))
	assert.Equal(t, ModeYears, e.app.Mode())
	e.press(key(viewer.KeyEscape))
	assert.Equal(t, ModeGrid, e.app.Mode())
}

func TestFolderDrillDown(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(viewer.RuneKey('f'))
	require.Equal(t, ModeFolders, e.app.Mode())
	require.Equal(t, 3, e.app.length(ModeFolders), "trips, trips/rome and home")

	e.press(key(viewer.KeyEnter))
	require.Equal(t, ModeScope, e.app.Mode())
	assert.Len(t, e.app.scopePhotos(), 3, "folder scopes are recursive")

	e.press(key(viewer.KeyEscape))
	assert.Equal(t, ModeFolders, e.app.Mode())
}

func TestNewScopeDropsPrevious(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)

	e.press(viewer.RuneKey('y'), key(viewer.KeyDown), key(viewer.KeyEnter))
	require.Equal(t, ModeScope, e.app.Mode())
	_, ok := e.state.Photo(4)
	require.True(t, ok, "2023 photo is held by the year scope")

	e.press(key(viewer.KeyEscape), key(viewer.KeyUp), key(viewer.KeyEnter))
	require.Equal(t, ModeScope, e.app.Mode())
	_, ok = e.state.Photo(4)
	assert.False(t, ok, "records only the old scope referenced are collected")
}

func TestToggleOrderReloads(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)
	e.press(key(viewer.KeyRight))

	e.press(viewer.RuneKey('o'))

	assert.Equal(t, api.OrderAsc, e.state.Sort().Order)
	assert.Equal(t, 0, e.app.Cursor())
	require.Equal(t, 2, e.state.Len())
	assert.Equal(t, []int{4, 3}, e.state.IDs())
}

func TestToggleSortField(t *testing.T) {
	e := newTestEnv(t)
	imported := testPhoto(5, "2020-05-01T09:00:00", "old/e.jpg")
	imported.CreatedAt = photo.NewTimestamp(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	e.backend.AddPhotos(imported)
	e.start(t)
	e.press(key(viewer.KeyRight))

	e.press(viewer.RuneKey('t'))

	assert.Equal(t, api.SortCreatedAt, e.state.Sort().Field)
	assert.Equal(t, api.OrderDesc, e.state.Sort().Order)
	assert.Equal(t, 0, e.app.Cursor())
	assert.Equal(t, []int{5, 1}, e.state.IDs())
	assert.Contains(t, e.app.Render(context.Background(), 160, 30).String(), "Recently Added, newest first")

	e.press(viewer.RuneKey('t'))

	assert.Equal(t, api.SortDateTaken, e.state.Sort().Field)
	assert.Equal(t, []int{1, 2}, e.state.IDs())
}

func TestJobPanelCancelFlow(t *testing.T) {
	e := newTestEnv(t)
	running := api.Job{ID: 1, Type: api.JobDirectoryScan, Status: api.JobRunning}
	e.backend.SetJobs(running)
	e.jobs.set(running)

	e.press(viewer.RuneKey('j'))
	require.Equal(t, ModeJobs, e.app.Mode())
	assert.Equal(t, 1, e.jobs.triggers)

	e.press(key(viewer.KeyEnter))
	assert.Empty(t, e.backend.Cancelled(), "enter without a pending confirmation does nothing")

	e.press(viewer.RuneKey('x'))
	assert.True(t, e.app.deps.Actions.Confirmations().Pending(1))

	e.press(key(viewer.KeyEnter))
	assert.Equal(t, []int{1}, e.backend.Cancelled())
}

func TestActionsDisabledWhileJobRuns(t *testing.T) {
	e := newTestEnv(t)
	e.jobs.set(
		api.Job{ID: 1, Type: api.JobDirectoryScan, Status: api.JobRunning},
		api.Job{ID: 2, Type: api.JobThumbnailGeneration, Status: api.JobPending},
	)

	e.press(viewer.RuneKey('s'))
	assert.Equal(t, "A scan is already running", e.app.Notice().Text())
	e.press(viewer.RuneKey('a'))
	assert.Equal(t, "Thumbnail regeneration is already running", e.app.Notice().Text())

	assert.Equal(t, 0, e.backend.Calls("import"))
	assert.Equal(t, 0, e.backend.Calls("regenerate_all"))
}

func TestStartScan(t *testing.T) {
	e := newTestEnv(t)

	e.press(viewer.RuneKey('s'))

	assert.Equal(t, 1, e.backend.Calls("import"))
	assert.Equal(t, "Scan started: Job #1", e.app.Notice().Text())
}

func TestRenderGrid(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	out := e.app.Render(ctx, 80, 30).String()
	assert.Contains(t, out, "Loading photos...")

	e.start(t)
	out = e.app.Render(ctx, 80, 30).String()
	assert.Contains(t, out, "a.jpg")
	assert.Contains(t, out, "loading...")
	assert.Contains(t, out, "Date Taken, newest first")

	e.app.Wait()
	out = e.app.Render(ctx, 80, 30).String()
	assert.Contains(t, out, "\x1b[38;2;", "decoded thumbnails are drawn")
	assert.Equal(t, 4, e.state.Len(), "a grid that fits on screen loads the next page")
}

func TestRenderGridMarksFavorites(t *testing.T) {
	e := newTestEnv(t)
	fav := testPhoto(5, "2024-04-01T10:00:00", "trips/fav.jpg")
	fav.IsFavorite = true
	e.backend.AddPhotos(fav)
	e.start(t)
	ctx := context.Background()

	out := e.app.Render(ctx, 80, 30).String()
	assert.Contains(t, out, "★ fav.jpg")
	assert.NotContains(t, out, "★ a.jpg")

	e.press(key(viewer.KeyEnter))
	out = e.app.Render(ctx, 80, 24).String()
	assert.Contains(t, out, "★ fav.jpg  (1/")
}

func TestRenderGridShowsPlaceholderForMissingThumbnail(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)
	e.backend.FailNext("thumbnail", 404, 2)

	e.app.Render(context.Background(), 40, 30)
	e.app.Wait()

	assert.Equal(t, 0, e.app.CachedImages())
	out := e.app.Render(context.Background(), 40, 30).String()
	assert.Contains(t, out, "\x1b[38;2;64;64;64m", "placeholder is drawn")
}

func TestRenderViewer(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)
	ctx := context.Background()

	e.press(key(viewer.KeyEnter))
	out := e.app.Render(ctx, 80, 24).String()
	assert.Contains(t, out, "a.jpg  (1/2)  0°")
	assert.Contains(t, out, "Loading...")

	e.press(viewer.RuneKey('r'), viewer.RuneKey('i'))
	e.app.Render(ctx, 80, 24)
	e.app.Wait()
	out = e.app.Render(ctx, 80, 24).String()
	assert.Contains(t, out, "a.jpg  (1/2)  90°")
	assert.Contains(t, out, "Dimensions")
	assert.Contains(t, out, "2 × 4", "info panel shows rotated dimensions")
	assert.Contains(t, out, "\x1b[38;2;")
}

func TestRenderViewerReportsRotationFailure(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)
	e.backend.FailNext("update_rotation", 500, 1)

	e.press(key(viewer.KeyEnter), viewer.RuneKey('r'))
	out := e.app.Render(context.Background(), 80, 24).String()

	assert.Contains(t, out, "Rotation failed")
	assert.Contains(t, out, "a.jpg  (1/2)  0°", "rotation rolled back")
}

func TestRenderYearsAndJobs(t *testing.T) {
	e := newTestEnv(t)
	e.start(t)
	ctx := context.Background()

	e.press(viewer.RuneKey('y'))
	out := e.app.Render(ctx, 80, 24).String()
	assert.Contains(t, out, "> 2024        3 photos")
	assert.Contains(t, out, "2023        1 photos")

	e.jobs.mu.Lock()
	e.jobs.status = jobs.Status{
		Jobs:  []api.Job{{ID: 9, Type: api.JobDirectoryScan, Status: api.JobRunning, Progress: 40}},
		Stats: &api.SystemStats{TotalPhotos: 4, TotalSize: 1536, Version: "1.2.3"},
	}
	e.jobs.mu.Unlock()

	e.press(viewer.RuneKey('j'), viewer.RuneKey('x'))
	out = e.app.Render(ctx, 160, 24).String()
	assert.Contains(t, out, "Photos: 4")
	assert.Contains(t, out, "1.5 KB")
	assert.Contains(t, out, "Backend 1.2.3")
	assert.Contains(t, out, "[s] Scan library (running)")
	assert.Contains(t, out, "#9")
	assert.Contains(t, out, "Enter to confirm cancel")
	assert.Contains(t, out, "1 active job")
}
