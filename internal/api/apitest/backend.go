// Package apitest provides an in-process fake of the photo backend for
// tests. It serves the same routes as the real API from an in-memory photo
// list, counts calls per route and can inject failures or hold rotation
// requests open.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/photo"
)

// Backend is a fake photo backend.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	photos      []photo.Record
	jobs        []api.Job
	nextJobID   int
	calls       map[string]int
	regenCalls  map[int]int
	failures    map[string][]int
	headers     map[string]http.Header
	rotateGate  chan struct{}
	rotateSeen  chan int
	image       []byte
	imageType   string
	stats       api.SystemStats
	cancelled   []int
	inFlight    int
	maxInFlight int
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		nextJobID:  1,
		calls:      make(map[string]int),
		regenCalls: make(map[int]int),
		failures:   make(map[string][]int),
		headers:    make(map[string]http.Header),
		image:      samplePNG(4, 2),
		imageType:  "image/png",
		stats:      api.SystemStats{Version: "0.1.0"},
	}

	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the base URL of the backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Client returns an API client pointed at the backend.
func (b *Backend) Client(opts ...api.Option) *api.Client {
	return api.New(b.URL(), opts...)
}

// AddPhotos appends photos to the library.
func (b *Backend) AddPhotos(ps ...photo.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.photos = append(b.photos, ps...)
}

// Photo returns the backend's copy of a photo.
func (b *Backend) Photo(id int) (photo.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.photos {
		if p.ID == id {
			return p, true
		}
	}
	return photo.Record{}, false
}

// SetJobs replaces the job list.
func (b *Backend) SetJobs(jobs ...api.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs = append([]api.Job(nil), jobs...)
}

// SetStats replaces the system stats response.
func (b *Backend) SetStats(s api.SystemStats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = s
}

// SetImage replaces the bytes served for every thumbnail.
func (b *Backend) SetImage(data []byte, contentType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.image = data
	b.imageType = contentType
}

// FailNext makes the next n calls to route answer with status.
func (b *Backend) FailNext(route string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures[route] = append(b.failures[route], status)
	}
}

// HoldRotations makes rotation requests block until the returned release
// function is called. Each held request's photo id is sent on the returned
// channel once the request has arrived.
func (b *Backend) HoldRotations() (arrived <-chan int, release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	gate := make(chan struct{})
	seen := make(chan int, 16)
	b.rotateGate = gate
	b.rotateSeen = seen

	var once sync.Once
	return seen, func() {
		once.Do(func() {
			b.mu.Lock()
			b.rotateGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests route has received.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// RegenerateCalls returns how many single-photo regeneration requests were
// received for id.
func (b *Backend) RegenerateCalls(id int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regenCalls[id]
}

// Cancelled returns the ids of cancelled jobs in request order.
func (b *Backend) Cancelled() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.cancelled...)
}

// LastHeader returns the headers of the most recent request to route.
func (b *Backend) LastHeader(route string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[route]
}

// MaxConcurrentRotations returns the highest number of rotation requests
// that were open at the same time.
func (b *Backend) MaxConcurrentRotations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInFlight
}

func (b *Backend) router() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/photos", b.track("list_photos", b.listPhotos)).Methods(http.MethodGet)
	v1.HandleFunc("/photos/count", b.track("photo_count", b.photoCount)).Methods(http.MethodGet)
	v1.HandleFunc("/photos/recent", b.track("recent_photos", b.recentPhotos)).Methods(http.MethodGet)
	v1.HandleFunc("/photos/years", b.track("years", b.years)).Methods(http.MethodGet)
	v1.HandleFunc("/photos/year/{year:[0-9]+}", b.track("year_photos", b.yearPhotos)).Methods(http.MethodGet)
	v1.HandleFunc("/photos/import", b.track("import", b.startImport)).Methods(http.MethodPost)
	v1.HandleFunc("/photos/{id:[0-9]+}/rotation", b.track("update_rotation", b.updateRotation)).Methods(http.MethodPatch)
	v1.HandleFunc("/folders/tree", b.track("folder_tree", b.folderTree)).Methods(http.MethodGet)
	v1.HandleFunc("/folders/{path}/photos", b.track("folder_photos", b.folderPhotos)).Methods(http.MethodGet)
	v1.HandleFunc("/thumbnails/regenerate", b.track("regenerate_all", b.regenerateAll)).Methods(http.MethodPost)
	v1.HandleFunc("/thumbnails/regenerate/{id:[0-9]+}", b.track("regenerate", b.regenerate)).Methods(http.MethodPost)
	v1.HandleFunc("/thumbnails/{id:[0-9]+}/{size}", b.track("thumbnail", b.thumbnail)).Methods(http.MethodGet)
	v1.HandleFunc("/jobs", b.track("jobs", b.listJobs)).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{id:[0-9]+}/cancel", b.track("cancel_job", b.cancelJob)).Methods(http.MethodPost)
	v1.HandleFunc("/system/stats", b.track("system_stats", b.systemStats)).Methods(http.MethodGet)

	return r
}

// track counts the call and applies any injected failure.
func (b *Backend) track(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		b.headers[route] = r.Header.Clone()
		var status int
		if queue := b.failures[route]; len(queue) > 0 {
			status = queue[0]
			b.failures[route] = queue[1:]
		}
		b.mu.Unlock()

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) sortedPhotos(sortBy, order string) []photo.Record {
	b.mu.Lock()
	out := append([]photo.Record(nil), b.photos...)
	b.mu.Unlock()

	key := func(p photo.Record) time.Time {
		if sortBy == api.SortCreatedAt {
			return p.CreatedAt.Time
		}
		return p.EffectiveDate()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == api.OrderAsc {
			return key(out[i]).Before(key(out[j]))
		}
		return key(out[i]).After(key(out[j]))
	})
	return out
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func (b *Backend) listPhotos(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 50)
	sortBy := r.URL.Query().Get("sort")
	order := r.URL.Query().Get("order")
	if order == "" {
		order = api.OrderDesc
	}

	all := b.sortedPhotos(sortBy, order)
	total := len(all)
	start := (page - 1) * perPage
	end := start + perPage
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	writeJSON(w, api.PhotoPage{
		Data: all[start:end],
		Pagination: api.Pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: (total + perPage - 1) / perPage,
		},
	})
}

func (b *Backend) photoCount(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	resp := api.PhotoCount{Count: len(b.photos)}
	var latest time.Time
	for _, p := range b.photos {
		if p.CreatedAt.After(latest) {
			latest = p.CreatedAt.Time
		}
	}
	if !latest.IsZero() {
		ts := photo.NewTimestamp(latest)
		resp.LatestCreatedAt = &ts
	}
	writeJSON(w, resp)
}

func (b *Backend) recentPhotos(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		ts, err := photo.ParseTimestamp(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = ts.Time
	}
	limit := queryInt(r, "limit", 100)

	var out []photo.Record
	for _, p := range b.sortedPhotos(api.SortCreatedAt, api.OrderDesc) {
		if p.CreatedAt.After(since) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, api.RecentPhotos{Data: out, Count: len(out)})
}

func (b *Backend) years(w http.ResponseWriter, _ *http.Request) {
	byYear := make(map[int]*api.YearSummary)
	var order []int
	for _, p := range b.sortedPhotos(api.SortDateTaken, api.OrderDesc) {
		y := p.EffectiveDate().Year()
		s, ok := byYear[y]
		if !ok {
			preview := p
			s = &api.YearSummary{Year: y, PreviewPhoto: &preview}
			byYear[y] = s
			order = append(order, y)
		}
		s.Count++
	}

	resp := struct {
		Years []api.YearSummary `json:"years"`
	}{Years: []api.YearSummary{}}
	for _, y := range order {
		resp.Years = append(resp.Years, *byYear[y])
	}
	writeJSON(w, resp)
}

func (b *Backend) yearPhotos(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(mux.Vars(r)["year"])
	out := []photo.Record{}
	for _, p := range b.sortedPhotos(api.SortDateTaken, api.OrderDesc) {
		if p.EffectiveDate().Year() == year {
			out = append(out, p)
		}
	}
	writeJSON(w, map[string]interface{}{"year": year, "photos": out, "count": len(out)})
}

func (b *Backend) folderTree(w http.ResponseWriter, _ *http.Request) {
	root := &api.FolderNode{}
	for _, p := range b.sortedPhotos(api.SortDateTaken, api.OrderDesc) {
		folder := p.Folder()
		if folder == "." {
			continue
		}
		node := root
		parts := strings.Split(folder, "/")
		for i, part := range parts {
			path := strings.Join(parts[:i+1], "/")
			var child *api.FolderNode
			for j := range node.Children {
				if node.Children[j].Path == path {
					child = &node.Children[j]
					break
				}
			}
			if child == nil {
				node.Children = append(node.Children, api.FolderNode{ID: path, Path: path, Name: part, Type: "directory"})
				child = &node.Children[len(node.Children)-1]
			}
			child.RecursivePhotoCount++
			if i == len(parts)-1 {
				child.PhotoCount++
			}
			node = child
		}
	}
	writeJSON(w, map[string]interface{}{"nodes": root.Children})
}

func (b *Backend) folderPhotos(w http.ResponseWriter, r *http.Request) {
	folder, err := url.PathUnescape(mux.Vars(r)["path"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recursive := r.URL.Query().Get("recursive") == "true"

	out := []photo.Record{}
	for _, p := range b.sortedPhotos(api.SortDateTaken, api.OrderDesc) {
		f := p.Folder()
		if f == folder || (recursive && strings.HasPrefix(f, folder+"/")) {
			out = append(out, p)
		}
	}
	writeJSON(w, map[string]interface{}{"photos": out, "count": len(out)})
}

func (b *Backend) updateRotation(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var body struct {
		Rotation *int `json:"rotation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Rotation == nil {
		http.Error(w, "rotation required", http.StatusUnprocessableEntity)
		return
	}
	switch *body.Rotation {
	case 0, 90, 180, 270:
	default:
		http.Error(w, "Rotation must be 0, 90, 180, or 270", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.maxInFlight {
		b.maxInFlight = b.inFlight
	}
	gate, seen := b.rotateGate, b.rotateSeen
	b.mu.Unlock()

	if gate != nil {
		seen <- id
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--

	for i := range b.photos {
		if b.photos[i].ID != id {
			continue
		}
		b.photos[i].RotationVersion++
		b.photos[i].FinalRotation = *body.Rotation
		writeJSON(w, map[string]interface{}{
			"message":          "Rotation updated",
			"photo_id":         id,
			"rotation_version": b.photos[i].RotationVersion,
			"final_rotation":   b.photos[i].FinalRotation,
		})
		return
	}
	http.Error(w, "Photo not found", http.StatusNotFound)
}

func (b *Backend) regenerate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	b.mu.Lock()
	b.regenCalls[id]++
	b.mu.Unlock()
	writeJSON(w, map[string]interface{}{"message": "Thumbnail regeneration queued", "photo_id": id})
}

func (b *Backend) regenerateAll(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job := api.Job{ID: b.nextJobID, Type: api.JobThumbnailGeneration, Status: api.JobPending, TotalItems: len(b.photos)}
	b.nextJobID++
	b.jobs = append(b.jobs, job)
	writeJSON(w, map[string]interface{}{
		"message":      "Thumbnail regeneration started",
		"job_id":       fmt.Sprintf("task-%d", job.ID),
		"total_photos": len(b.photos),
	})
}

func (b *Backend) startImport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job := api.Job{ID: b.nextJobID, Type: api.JobDirectoryScan, Status: api.JobPending}
	b.nextJobID++
	b.jobs = append(b.jobs, job)
	writeJSON(w, map[string]interface{}{
		"message":   "Import started",
		"job_id":    job.ID,
		"scan_type": r.URL.Query().Get("scan_type"),
	})
}

func (b *Backend) thumbnail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if _, ok := b.Photo(id); !ok {
		http.Error(w, "Photo not found", http.StatusNotFound)
		return
	}
	b.mu.Lock()
	data, ct := b.image, b.imageType
	b.mu.Unlock()

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	_, _ = w.Write(data)
}

func (b *Backend) listJobs(w http.ResponseWriter, r *http.Request) {
	includeCompleted := r.URL.Query().Get("include_completed") == "true"

	b.mu.Lock()
	defer b.mu.Unlock()
	out := []api.Job{}
	for _, j := range b.jobs {
		s := strings.ToLower(j.Status)
		if !includeCompleted && s != api.JobPending && s != api.JobRunning {
			continue
		}
		out = append(out, j)
	}
	writeJSON(w, out)
}

func (b *Backend) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.jobs {
		if b.jobs[i].ID == id {
			b.jobs[i].Status = api.JobCancelled
			b.cancelled = append(b.cancelled, id)
			writeJSON(w, map[string]interface{}{"message": "Job cancelled successfully", "job_id": id})
			return
		}
	}
	http.Error(w, "Job not found", http.StatusNotFound)
}

func (b *Backend) systemStats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := b.stats
	stats.TotalPhotos = len(b.photos)
	active := 0
	for _, j := range b.jobs {
		s := strings.ToLower(j.Status)
		if s == api.JobPending || s == api.JobRunning {
			active++
		}
	}
	stats.ActiveJobs = active
	writeJSON(w, stats)
}

// samplePNG encodes a small gradient image.
func samplePNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 120), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// SamplePNG returns a w×h PNG image.
func SamplePNG(w, h int) []byte {
	return samplePNG(w, h)
}
