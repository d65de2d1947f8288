package api

import (
	"bytes"
	"encoding/json"
	"strconv"

	"bokeh-viewer/internal/photo"
)

// Sort fields accepted by GET /photos.
const (
	SortCreatedAt = "created_at"
	SortDateTaken = "date_taken"
)

// Sort orders accepted by GET /photos.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListOptions are the query parameters of GET /photos.
type ListOptions struct {
	Page    int
	PerPage int
	Sort    string
	Order   string
}

// Pagination describes one page of a photo listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PhotoPage is the response of GET /photos.
type PhotoPage struct {
	Data       []photo.Record `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// PhotoCount is the response of GET /photos/count.
type PhotoCount struct {
	Count           int              `json:"count"`
	LatestCreatedAt *photo.Timestamp `json:"latest_created_at"`
}

// RecentPhotos is the response of GET /photos/recent.
type RecentPhotos struct {
	Data  []photo.Record `json:"data"`
	Count int            `json:"count"`
}

// YearSummary is one entry of GET /photos/years.
type YearSummary struct {
	Year         int           `json:"year"`
	Count        int           `json:"count"`
	PreviewPhoto *photo.Record `json:"preview_photo,omitempty"`
}

type yearsResponse struct {
	Years []YearSummary `json:"years"`
}

type photosResponse struct {
	Photos []photo.Record `json:"photos"`
	Count  int            `json:"count"`
}

// FolderNode is a directory in the folder tree.
type FolderNode struct {
	ID                  string       `json:"id"`
	Path                string       `json:"path"`
	Name                string       `json:"name"`
	Type                string       `json:"type,omitempty"`
	PhotoCount          int          `json:"photoCount,omitempty"`
	RecursivePhotoCount int          `json:"recursivePhotoCount,omitempty"`
	Children            []FolderNode `json:"children,omitempty"`
}

// Walk visits n and every descendant depth first. depth is 0 for n.
func (n FolderNode) Walk(fn func(node FolderNode, depth int)) {
	n.walk(fn, 0)
}

func (n FolderNode) walk(fn func(FolderNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// FolderTree is the response of GET /folders/tree. The backend has served
// both {"nodes": [...]} and a bare array; either decodes.
type FolderTree struct {
	Nodes []FolderNode `json:"nodes"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FolderTree) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &t.Nodes)
	}
	type plain FolderTree
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*t = FolderTree(p)
	return nil
}

type rotationRequest struct {
	Rotation int `json:"rotation"`
}

// RotationResult is the response of PATCH /photos/{id}/rotation.
type RotationResult struct {
	PhotoID         int  `json:"photo_id,omitempty"`
	RotationVersion int  `json:"rotation_version"`
	FinalRotation   *int `json:"final_rotation"`
	TotalRotation   *int `json:"total_rotation,omitempty"`
}

// State returns the confirmed rotation. requested is used when the backend
// omits both final_rotation and total_rotation.
func (r RotationResult) State(requested int) photo.RotationState {
	rot := requested
	switch {
	case r.FinalRotation != nil:
		rot = *r.FinalRotation
	case r.TotalRotation != nil:
		rot = *r.TotalRotation
	}
	return photo.RotationState{Version: r.RotationVersion, FinalRotation: photo.Normalize(rot)}
}

// FlexID is an identifier the backend emits either as a number or a string.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Int returns the id as an integer when it is numeric.
func (f FlexID) Int() (int, bool) {
	n, err := strconv.Atoi(string(f))
	return n, err == nil
}

type regenerateAllRequest struct {
	Force bool `json:"force"`
}

// RegenerateAllResult is the response of POST /thumbnails/regenerate.
type RegenerateAllResult struct {
	Message     string `json:"message,omitempty"`
	JobID       FlexID `json:"job_id,omitempty"`
	TotalPhotos int    `json:"total_photos"`
	Batches     int    `json:"batches,omitempty"`
}

// ImportResult is the response of POST /photos/import.
type ImportResult struct {
	Message  string `json:"message,omitempty"`
	JobID    FlexID `json:"job_id"`
	ScanType string `json:"scan_type,omitempty"`
}

// Job statuses reported by the backend.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// Job types reported by the backend.
const (
	JobDirectoryScan       = "directory_scan"
	JobThumbnailGeneration = "thumbnail_generation"
	JobImport              = "import"
	JobDuplicateDetection  = "duplicate_detection"
)

// Job is one entry of GET /jobs.
type Job struct {
	ID             int              `json:"id"`
	Type           string           `json:"type"`
	Status         string           `json:"status"`
	Progress       float64          `json:"progress"`
	TotalItems     int              `json:"total_items"`
	ProcessedItems int              `json:"processed_items"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      *photo.Timestamp `json:"created_at,omitempty"`
	StartedAt      *photo.Timestamp `json:"started_at,omitempty"`
	CompletedAt    *photo.Timestamp `json:"completed_at,omitempty"`
	Payload        map[string]any   `json:"payload,omitempty"`
}

// DiskUsage is the disk section of GET /system/stats.
type DiskUsage struct {
	Used       int64   `json:"used"`
	Available  int64   `json:"available"`
	Percentage float64 `json:"percentage"`
}

// SystemStats is the response of GET /system/stats.
type SystemStats struct {
	TotalPhotos int       `json:"total_photos"`
	TotalSize   int64     `json:"total_size"`
	DiskUsage   DiskUsage `json:"disk_usage"`
	ActiveJobs  int       `json:"active_jobs"`
	Version     string    `json:"version"`
}

// Image is a fetched image body.
type Image struct {
	URL         string
	ContentType string
	Data        []byte
}
