package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bokeh-viewer/internal/api"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		job  api.Job
		want string
	}{
		{"scan", api.Job{Type: "directory_scan"}, "Scanning Photos"},
		{"upper case", api.Job{Type: "DIRECTORY_SCAN"}, "Scanning Photos"},
		{"thumbnails", api.Job{Type: "thumbnail_generation"}, "Generating Thumbnails"},
		{"thumbnails with workers", api.Job{Type: "THUMBNAIL_GENERATION", Payload: map[string]any{"workers": float64(4)}}, "Generating Thumbnails (4 workers)"},
		{"import", api.Job{Type: "import"}, "Importing Photos"},
		{"duplicates", api.Job{Type: "duplicate_detection"}, "Finding Duplicates"},
		{"unknown", api.Job{Type: "reindex"}, "reindex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.job))
		})
	}
}

func TestDetail(t *testing.T) {
	tests := []struct {
		name string
		job  api.Job
		want string
	}{
		{
			name: "thumbnail progress",
			job:  api.Job{Type: "thumbnail_generation", Payload: map[string]any{"processed": float64(40), "failed": float64(2), "photo_count": float64(100)}},
			want: "Processing photos: 40 completed, 2 failed",
		},
		{
			name: "thumbnail progress without failures",
			job:  api.Job{Type: "thumbnail_generation", Payload: map[string]any{"processed": float64(0), "photo_count": float64(10)}},
			want: "Processing photos: 0 completed, 0 failed",
		},
		{
			name: "current file",
			job:  api.Job{Type: "directory_scan", Payload: map[string]any{"current_file": "/photos/a.jpg"}, ProcessedItems: 3, TotalItems: 9},
			want: "/photos/a.jpg",
		},
		{
			name: "item counts",
			job:  api.Job{Type: "directory_scan", ProcessedItems: 3, TotalItems: 9},
			want: "Processing 3 of 9 files",
		},
		{
			name: "nothing known",
			job:  api.Job{Type: "directory_scan"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detail(tt.job))
		})
	}
}

func TestButtonsDisabledWhileJobRuns(t *testing.T) {
	scan := api.Job{Type: "directory_scan", Status: "RUNNING"}
	thumbs := api.Job{Type: "thumbnail_generation", Status: "pending"}
	doneScan := api.Job{Type: "directory_scan", Status: "completed"}

	assert.False(t, CanStartScan([]api.Job{scan}), "active scan")
	assert.True(t, CanStartScan([]api.Job{thumbs, doneScan}), "no active scan")
	assert.False(t, CanRegenerateAll([]api.Job{thumbs}), "active thumbnail generation")
	assert.True(t, CanRegenerateAll([]api.Job{scan}), "no thumbnail generation")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{1288490189, "1.2 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in), "FormatBytes(%d)", tt.in)
	}
}

func TestActiveJobsLabel(t *testing.T) {
	assert.Equal(t, "Jobs", ActiveJobsLabel(0))
	assert.Equal(t, "1 active job", ActiveJobsLabel(1))
	assert.Equal(t, "3 active jobs", ActiveJobsLabel(3))
}
