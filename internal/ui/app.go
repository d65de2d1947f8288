package ui

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/gallery"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/rotation"
	"bokeh-viewer/internal/thumbnail"
	"bokeh-viewer/internal/viewer"
)

// Client is the backend surface the browse views read.
type Client interface {
	Years(ctx context.Context) ([]api.YearSummary, error)
	YearPhotos(ctx context.Context, year int) ([]photo.Record, error)
	FolderTree(ctx context.Context) ([]api.FolderNode, error)
	FolderPhotos(ctx context.Context, folder string, recursive bool) ([]photo.Record, error)
}

// JobStatus reports the latest job poll and accepts refresh requests.
type JobStatus interface {
	Latest() jobs.Status
	Trigger()
}

// Prefetcher warms the image cache ahead of the visible rows.
type Prefetcher interface {
	Prefetch(ctx context.Context, urls []string, n int) int
}

// Deps are the collaborators of the app.
type Deps struct {
	Client    Client
	Gallery   *gallery.State
	Pages     *gallery.Loader
	Session   *viewer.Session
	Rotations *rotation.Controller
	Stamps    *thumbnail.Stamps
	Resolver  *thumbnail.Resolver
	Images    ImageLoader
	Prefetch  Prefetcher
	Jobs      JobStatus
	Actions   *jobs.Actions

	// Workers bounds concurrent image loads and prefetches.
	Workers int
	// ImageLimit is how many decoded images are kept in memory.
	ImageLimit int
	Now        func() time.Time
	// OnChange is called from background goroutines when the screen should
	// be redrawn. It must not block.
	OnChange func()
}

// Mode is the browse view on screen while the viewer is closed.
type Mode int

const (
	ModeGrid Mode = iota
	ModeYears
	ModeFolders
	ModeScope
	ModeJobs
)

var modeNames = map[Mode]string{
	ModeGrid:    "grid",
	ModeYears:   "years",
	ModeFolders: "folders",
	ModeScope:   "scope",
	ModeJobs:    "jobs",
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

// DefaultImageLimit is used when Deps.ImageLimit is not set.
const DefaultImageLimit = 512

type folderRow struct {
	node  api.FolderNode
	depth int
}

// previewCache holds the last rendered viewer image.
type previewCache struct {
	key string
	img image.Image
}

// App is the interactive terminal front end: a paged grid, year and folder
// browsing, the job panel and the full-screen viewer.
type App struct {
	deps   Deps
	images *imageStore
	notice *jobs.Notice

	mu          sync.Mutex
	mode        Mode
	back        Mode
	cursor      map[Mode]int
	scroll      map[Mode]int
	cols        int
	scope       *gallery.Scope
	scopeYear   int
	scopeTitle  string
	years       []api.YearSummary
	folders     []folderRow
	busy        string
	loadingPage bool
	prefetching bool
	prefetched  map[string]struct{}
	preview     previewCache

	wg sync.WaitGroup
}

// New creates an app showing the grid.
func New(deps Deps) *App {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OnChange == nil {
		deps.OnChange = func() {}
	}
	if deps.Workers < 1 {
		deps.Workers = 4
	}
	if deps.ImageLimit < 1 {
		deps.ImageLimit = DefaultImageLimit
	}

	a := &App{
		deps:       deps,
		cursor:     make(map[Mode]int),
		scroll:     make(map[Mode]int),
		cols:       1,
		prefetched: make(map[string]struct{}),
	}
	if deps.Actions != nil {
		a.notice = deps.Actions.Notice()
	} else {
		a.notice = jobs.NewNotice(deps.Now)
	}
	a.images = newImageStore(deps.Images, deps.ImageLimit, deps.Workers, deps.OnChange)
	return a
}

// Start loads the first page of the grid.
func (a *App) Start(ctx context.Context) {
	a.loadMore(ctx)
}

// Wait blocks until background work started by the app has finished.
func (a *App) Wait() {
	a.wg.Wait()
	a.images.wait()
}

// Mode returns the current browse view.
func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Cursor returns the selected index in the current view.
func (a *App) Cursor() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor[a.mode]
}

// Notice returns the transient status line.
func (a *App) Notice() *jobs.Notice {
	return a.notice
}

// CachedImages returns how many decoded images are held in memory.
func (a *App) CachedImages() int {
	return a.images.len()
}

// HandleKey applies one key press. It returns false when the user asked to
// quit.
func (a *App) HandleKey(ctx context.Context, k viewer.Key) bool {
	if k.Ctrl && k.Code == viewer.KeyRune && k.Rune == 'c' {
		return false
	}
	if a.deps.Session.IsOpen() {
		a.deps.Session.HandleKey(ctx, k)
		return true
	}
	if k.Ctrl || k.Meta {
		return true
	}

	switch k.Code {
	case viewer.KeyLeft:
		a.move(ctx, -1)
	case viewer.KeyRight:
		a.move(ctx, 1)
	case viewer.KeyUp:
		a.move(ctx, -a.rowStep())
	case viewer.KeyDown:
		a.move(ctx, a.rowStep())
	case viewer.KeyEnter:
		a.enter(ctx)
	case viewer.KeyEscape:
		a.escape()
	case viewer.KeyRune:
		switch k.Rune {
		case 'q', 'Q':
			return false
		case 'g':
			a.setMode(ModeGrid)
		case 'y':
			a.showYears(ctx)
		case 'f':
			a.showFolders(ctx)
		case 'j':
			a.setMode(ModeJobs)
			a.deps.Jobs.Trigger()
		case 'o':
			a.toggleOrder(ctx)
		case 't':
			a.toggleField(ctx)
		case 's':
			a.startScan(ctx)
		case 'a':
			a.regenerateAll(ctx)
		case 'x':
			a.requestCancel()
		}
	}
	return true
}

func (a *App) setMode(m Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = m
}

func (a *App) rowStep() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == ModeGrid || a.mode == ModeScope {
		return a.cols
	}
	return 1
}

// length returns the number of selectable items in m.
func (a *App) length(m Mode) int {
	switch m {
	case ModeGrid:
		return a.deps.Gallery.Len()
	case ModeScope:
		return len(a.scopePhotos())
	case ModeYears:
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.years)
	case ModeFolders:
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.folders)
	case ModeJobs:
		return len(a.deps.Jobs.Latest().Jobs)
	}
	return 0
}

func (a *App) move(ctx context.Context, delta int) {
	m := a.Mode()
	n := a.length(m)

	a.mu.Lock()
	c := clamp(a.cursor[m]+delta, 0, n-1)
	a.cursor[m] = c
	cols := a.cols
	a.mu.Unlock()

	if m == ModeGrid && c >= n-2*cols && a.deps.Pages.HasMore() {
		a.loadMore(ctx)
	}
}

func (a *App) enter(ctx context.Context) {
	m := a.Mode()
	a.mu.Lock()
	c := a.cursor[m]
	a.mu.Unlock()

	switch m {
	case ModeGrid:
		a.openViewer(a.deps.Gallery.IDs(), c)
	case ModeScope:
		photos := a.scopePhotos()
		ids := make([]int, len(photos))
		for i, p := range photos {
			ids[i] = p.ID
		}
		a.openViewer(ids, c)
	case ModeYears:
		a.mu.Lock()
		if c >= len(a.years) {
			a.mu.Unlock()
			return
		}
		year := a.years[c].Year
		a.mu.Unlock()
		a.loadYear(ctx, year)
	case ModeFolders:
		a.mu.Lock()
		if c >= len(a.folders) {
			a.mu.Unlock()
			return
		}
		path := a.folders[c].node.Path
		a.mu.Unlock()
		a.loadFolder(ctx, path)
	case ModeJobs:
		a.confirmCancel(ctx)
	}
}

func (a *App) escape() {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.mode {
	case ModeScope:
		a.mode = a.back
	case ModeYears, ModeFolders, ModeJobs:
		a.mode = ModeGrid
	}
}

func (a *App) openViewer(ids []int, index int) {
	if err := a.deps.Session.Open(ids, index); err != nil {
		logging.Debug("Viewer not opened: %v", err)
	}
}

// background runs fn on its own goroutine and redraws when it returns.
func (a *App) background(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
		a.deps.OnChange()
	}()
}

// loadMore fetches the next grid page unless one is already loading.
func (a *App) loadMore(ctx context.Context) {
	a.mu.Lock()
	if a.loadingPage {
		a.mu.Unlock()
		return
	}
	a.loadingPage = true
	a.mu.Unlock()

	a.background(func() {
		defer func() {
			a.mu.Lock()
			a.loadingPage = false
			a.mu.Unlock()
		}()
		if _, err := a.deps.Pages.LoadNext(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Failed to load photos: %v", err)
			a.notice.Set("Failed to load photos", jobs.NoticeShort)
		}
	})
}

func (a *App) toggleOrder(ctx context.Context) {
	srt := a.deps.Gallery.Sort()
	if srt.Descending() {
		srt.Order = api.OrderAsc
	} else {
		srt.Order = api.OrderDesc
	}
	a.resort(ctx, srt)
}

// toggleField switches between date taken and recently added.
func (a *App) toggleField(ctx context.Context) {
	srt := a.deps.Gallery.Sort()
	if srt.Field == api.SortCreatedAt {
		srt.Field = api.SortDateTaken
	} else {
		srt.Field = api.SortCreatedAt
	}
	a.resort(ctx, srt)
}

func (a *App) resort(ctx context.Context, srt gallery.Sort) {
	a.deps.Gallery.Reset(srt)
	logging.Info("Sort changed to %s %s", srt.Field, srt.Order)

	a.mu.Lock()
	a.cursor[ModeGrid] = 0
	a.scroll[ModeGrid] = 0
	a.mu.Unlock()
	a.loadMore(ctx)
}

func (a *App) setBusy(s string) {
	a.mu.Lock()
	a.busy = s
	a.mu.Unlock()
}

func (a *App) showYears(ctx context.Context) {
	a.setMode(ModeYears)
	a.setBusy("Loading years...")
	a.background(func() {
		years, err := a.deps.Client.Years(ctx)
		a.mu.Lock()
		defer a.mu.Unlock()
		a.busy = ""
		if err != nil {
			logging.Warn("Failed to load years: %v", err)
			a.notice.Set("Failed to load years", jobs.NoticeShort)
			return
		}
		a.years = years
		a.cursor[ModeYears] = clamp(a.cursor[ModeYears], 0, len(years)-1)
	})
}

func (a *App) showFolders(ctx context.Context) {
	a.setMode(ModeFolders)
	a.setBusy("Loading folders...")
	a.background(func() {
		tree, err := a.deps.Client.FolderTree(ctx)
		a.mu.Lock()
		defer a.mu.Unlock()
		a.busy = ""
		if err != nil {
			logging.Warn("Failed to load folder tree: %v", err)
			a.notice.Set("Failed to load folders", jobs.NoticeShort)
			return
		}
		var rows []folderRow
		for _, root := range tree {
			root.Walk(func(n api.FolderNode, depth int) {
				rows = append(rows, folderRow{node: n, depth: depth})
			})
		}
		a.folders = rows
		a.cursor[ModeFolders] = clamp(a.cursor[ModeFolders], 0, len(rows)-1)
	})
}

func (a *App) loadYear(ctx context.Context, year int) {
	a.setBusy(fmt.Sprintf("Loading %d...", year))
	a.background(func() {
		photos, err := a.deps.Client.YearPhotos(ctx, year)
		if err != nil {
			a.setBusy("")
			logging.Warn("Failed to load photos of %d: %v", year, err)
			a.notice.Set(fmt.Sprintf("Failed to load %d", year), jobs.NoticeShort)
			return
		}
		a.openScope(fmt.Sprintf("year:%d", year), fmt.Sprintf("%d", year), year, ModeYears, photos)
	})
}

func (a *App) loadFolder(ctx context.Context, path string) {
	a.setBusy("Loading " + path + "...")
	a.background(func() {
		photos, err := a.deps.Client.FolderPhotos(ctx, path, true)
		if err != nil {
			a.setBusy("")
			logging.Warn("Failed to load folder %s: %v", path, err)
			a.notice.Set("Failed to load "+path, jobs.NoticeShort)
			return
		}
		a.openScope("folder:"+path, path, 0, ModeFolders, photos)
	})
}

// openScope replaces the scoped view. The previous scope is dropped so its
// records can be collected.
func (a *App) openScope(name, title string, year int, back Mode, photos []photo.Record) {
	sc := a.deps.Gallery.Scope(name)
	sc.Replace(photos)

	a.mu.Lock()
	prev := a.scope
	a.scope = sc
	a.scopeYear = year
	a.scopeTitle = title
	a.back = back
	a.busy = ""
	a.cursor[ModeScope] = 0
	a.scroll[ModeScope] = 0
	if a.mode == back {
		a.mode = ModeScope
	}
	a.mu.Unlock()

	if prev != nil && prev.Name() != name {
		a.deps.Gallery.DropScope(prev.Name())
	}
}

// scopeSections returns the scoped view in display order: a year grouped by
// month, or a folder as one section.
func (a *App) scopeSections() []section {
	a.mu.Lock()
	sc, year, title := a.scope, a.scopeYear, a.scopeTitle
	a.mu.Unlock()
	if sc == nil {
		return nil
	}

	if year == 0 {
		return []section{{title: title, photos: sc.Photos()}}
	}
	var out []section
	for _, b := range sc.MonthBuckets(year) {
		out = append(out, section{title: fmt.Sprintf("%s %d", b.Name(), year), photos: b.Photos})
	}
	return out
}

func (a *App) scopePhotos() []photo.Record {
	var out []photo.Record
	for _, s := range a.scopeSections() {
		out = append(out, s.photos...)
	}
	return out
}

func (a *App) startScan(ctx context.Context) {
	if a.deps.Actions == nil {
		return
	}
	if !jobs.CanStartScan(a.deps.Jobs.Latest().Jobs) {
		a.notice.Set("A scan is already running", jobs.NoticeShort)
		return
	}
	a.background(func() {
		_ = a.deps.Actions.StartScan(ctx)
	})
}

func (a *App) regenerateAll(ctx context.Context) {
	if a.deps.Actions == nil {
		return
	}
	if !jobs.CanRegenerateAll(a.deps.Jobs.Latest().Jobs) {
		a.notice.Set("Thumbnail regeneration is already running", jobs.NoticeShort)
		return
	}
	a.background(func() {
		_ = a.deps.Actions.RegenerateAll(ctx)
	})
}

// selectedJob returns the job under the cursor in the job panel.
func (a *App) selectedJob() (api.Job, bool) {
	if a.Mode() != ModeJobs {
		return api.Job{}, false
	}
	list := a.deps.Jobs.Latest().Jobs
	a.mu.Lock()
	c := a.cursor[ModeJobs]
	a.mu.Unlock()
	if c < 0 || c >= len(list) {
		return api.Job{}, false
	}
	return list[c], true
}

func (a *App) requestCancel() {
	if a.deps.Actions == nil {
		return
	}
	j, ok := a.selectedJob()
	if !ok || !jobs.IsActive(j) {
		return
	}
	a.deps.Actions.RequestCancel(j.ID)
}

func (a *App) confirmCancel(ctx context.Context) {
	if a.deps.Actions == nil {
		return
	}
	j, ok := a.selectedJob()
	if !ok || !a.deps.Actions.Confirmations().Pending(j.ID) {
		return
	}
	a.background(func() {
		_, _ = a.deps.Actions.ConfirmCancel(ctx, j.ID)
	})
}

// thumbURL resolves the grid thumbnail of p.
func (a *App) thumbURL(p photo.Record) string {
	return viewer.ResolveURL(a.deps.Resolver, a.deps.Rotations, a.deps.Stamps, p, thumbnail.SizeSmall, a.deps.Now())
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
