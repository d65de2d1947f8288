package handlers

import (
	"net/http"
	"strconv"
	"time"

	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/thumbnail"
)

const (
	defaultPhotoLimit = 100
	maxPhotoLimit     = 1000
)

// StateResponse summarizes the viewer.
type StateResponse struct {
	PhotosLoaded int    `json:"photosLoaded"`
	TotalPhotos  int    `json:"totalPhotos"`
	HasMore      bool   `json:"hasMore"`
	Sort         string `json:"sort"`
	Order        string `json:"order"`
	Generation   uint64 `json:"generation"`
	DirtyPhotos  int    `json:"dirtyPhotos"`
	CachedImages int    `json:"cachedImages"`
	CacheBytes   int64  `json:"cacheBytes"`
	CacheSize    string `json:"cacheSize"`
}

// PhotoItem is one grid entry.
type PhotoItem struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
	Date     string `json:"date"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Rotation int    `json:"rotation"`
	Version  int    `json:"rotationVersion"`
	Rotating bool   `json:"rotating,omitempty"`
	URL      string `json:"url,omitempty"`
}

// PhotosResponse is a window of the grid.
type PhotosResponse struct {
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Photos []PhotoItem `json:"photos"`
}

// MonthCount is the photo count of one month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// YearCount is the photo count of one year.
type YearCount struct {
	Year   int          `json:"year"`
	Count  int          `json:"count"`
	Months []MonthCount `json:"months"`
}

// JobItem is one job with its display text.
type JobItem struct {
	ID       int     `json:"id"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Title    string  `json:"title"`
	Detail   string  `json:"detail,omitempty"`
	Progress float64 `json:"progress"`
	Active   bool    `json:"active"`
}

// JobsResponse is the latest poll.
type JobsResponse struct {
	Mode             string    `json:"mode"`
	PolledAt         string    `json:"polledAt,omitempty"`
	Label            string    `json:"label"`
	CanStartScan     bool      `json:"canStartScan"`
	CanRegenerateAll bool      `json:"canRegenerateAll"`
	LibraryChanging  bool      `json:"libraryChanging"`
	Error            string    `json:"error,omitempty"`
	Jobs             []JobItem `json:"jobs"`
}

// GetState returns a summary of the gallery and the image cache.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	srt := h.gallery.Sort()
	response := StateResponse{
		PhotosLoaded: h.gallery.Len(),
		Sort:         srt.Field,
		Order:        srt.Order,
		Generation:   h.gallery.Generation(),
		DirtyPhotos:  h.dirtyCount(),
	}
	if h.loader != nil {
		response.TotalPhotos = h.loader.Total()
		response.HasMore = h.loader.HasMore()
	}
	if h.cache != nil {
		stats, err := h.cache.Stats(r.Context())
		if err != nil {
			logging.Warn("Failed to read image cache stats: %v", err)
		} else {
			response.CachedImages = stats.Count
			response.CacheBytes = stats.Bytes
		}
	}
	response.CacheSize = jobs.FormatBytes(response.CacheBytes)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

// GetPhotos returns a window of the grid, optionally limited to one year,
// with the rotation and image URL the viewer would display.
func (h *Handlers) GetPhotos(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeJSONError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, ok := queryInt(r, "limit", defaultPhotoLimit)
	if !ok || limit == 0 {
		writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxPhotoLimit)

	size := thumbnail.SizeMedium
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := thumbnail.ParseSize(raw)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		size = parsed
	}

	var photos []photo.Record
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, "year must be an integer", http.StatusBadRequest)
			return
		}
		for _, b := range h.gallery.YearBuckets() {
			if b.Year == year {
				photos = b.Photos
				break
			}
		}
	} else {
		photos = h.gallery.Photos()
	}

	response := PhotosResponse{
		Total:  len(photos),
		Offset: offset,
		Photos: []PhotoItem{},
	}
	if offset < len(photos) {
		end := min(offset+limit, len(photos))
		for _, p := range photos[offset:end] {
			response.Photos = append(response.Photos, h.photoItem(p, size))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}

func (h *Handlers) photoItem(p photo.Record, size thumbnail.Size) PhotoItem {
	item := PhotoItem{
		ID:       p.ID,
		Filename: p.Filename,
		Date:     p.EffectiveDate().Format(time.RFC3339),
		Width:    p.Width,
		Height:   p.Height,
		Rotation: h.rotationFor(p),
		Version:  p.RotationVersion,
	}
	if h.rotations != nil {
		item.Rotating = h.rotations.InFlight(p.ID)
	}
	if h.url != nil {
		item.URL = h.url(p, size)
	}
	return item
}

// GetYears returns photo counts per year and month, in grid order.
func (h *Handlers) GetYears(w http.ResponseWriter, _ *http.Request) {
	years := []YearCount{}
	for _, yb := range h.gallery.YearBuckets() {
		yc := YearCount{Year: yb.Year, Count: len(yb.Photos), Months: []MonthCount{}}
		for _, mb := range h.gallery.MonthBuckets(yb.Year) {
			yc.Months = append(yc.Months, MonthCount{Month: mb.Name(), Count: len(mb.Photos)})
		}
		years = append(years, yc)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, years)
}

// GetJobs returns the jobs seen by the last poll.
func (h *Handlers) GetJobs(w http.ResponseWriter, _ *http.Request) {
	if h.jobs == nil {
		writeJSONError(w, "job polling is not running", http.StatusServiceUnavailable)
		return
	}

	st := h.jobs.Latest()
	active := 0
	response := JobsResponse{
		Mode:             st.Mode.String(),
		CanStartScan:     jobs.CanStartScan(st.Jobs),
		CanRegenerateAll: jobs.CanRegenerateAll(st.Jobs),
		LibraryChanging:  st.LibraryChanging,
		Jobs:             []JobItem{},
	}
	if !st.PolledAt.IsZero() {
		response.PolledAt = st.PolledAt.Format(time.RFC3339)
	}
	if st.Err != nil {
		response.Error = st.Err.Error()
	}
	for _, j := range st.Jobs {
		isActive := jobs.IsActive(j)
		if isActive {
			active++
		}
		response.Jobs = append(response.Jobs, JobItem{
			ID:       j.ID,
			Type:     j.Type,
			Status:   j.Status,
			Title:    jobs.Title(j),
			Detail:   jobs.Detail(j),
			Progress: j.Progress,
			Active:   isActive,
		})
	}
	response.Label = jobs.ActiveJobsLabel(active)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
