package jobs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"bokeh-viewer/internal/api"
)

var titles = map[string]string{
	api.JobDirectoryScan:       "Scanning Photos",
	api.JobThumbnailGeneration: "Generating Thumbnails",
	api.JobImport:              "Importing Photos",
	api.JobDuplicateDetection:  "Finding Duplicates",
}

// IsActive reports whether the job is running or pending.
func IsActive(j api.Job) bool {
	switch strings.ToLower(j.Status) {
	case api.JobRunning, api.JobPending:
		return true
	}
	return false
}

// Active filters the running and pending jobs.
func Active(jobs []api.Job) []api.Job {
	var out []api.Job
	for _, j := range jobs {
		if IsActive(j) {
			out = append(out, j)
		}
	}
	return out
}

func isType(j api.Job, typ string) bool {
	return strings.EqualFold(j.Type, typ)
}

// Title returns the display title of a job.
func Title(j api.Job) string {
	title, ok := titles[strings.ToLower(j.Type)]
	if !ok {
		title = j.Type
	}
	if isType(j, api.JobThumbnailGeneration) {
		if w, ok := payloadNumber(j.Payload, "workers"); ok && w > 0 {
			title += fmt.Sprintf(" (%s workers)", formatNumber(w))
		}
	}
	return title
}

// Detail returns the progress line of a job, or "" when nothing is known.
func Detail(j api.Job) string {
	if isType(j, api.JobThumbnailGeneration) {
		processed, hasProcessed := payloadNumber(j.Payload, "processed")
		photoCount, _ := payloadNumber(j.Payload, "photo_count")
		if hasProcessed && photoCount > 0 {
			failed, _ := payloadNumber(j.Payload, "failed")
			return fmt.Sprintf("Processing photos: %s completed, %s failed", formatNumber(processed), formatNumber(failed))
		}
	}
	if f, ok := j.Payload["current_file"].(string); ok && f != "" {
		return f
	}
	if j.ProcessedItems > 0 && j.TotalItems > 0 {
		return fmt.Sprintf("Processing %d of %d files", j.ProcessedItems, j.TotalItems)
	}
	return ""
}

// CanStartScan reports whether the scan button is enabled: no directory scan
// may be active.
func CanStartScan(jobs []api.Job) bool {
	for _, j := range jobs {
		if IsActive(j) && isType(j, api.JobDirectoryScan) {
			return false
		}
	}
	return true
}

// CanRegenerateAll reports whether the regenerate-all button is enabled: no
// thumbnail generation may be active.
func CanRegenerateAll(jobs []api.Job) bool {
	for _, j := range jobs {
		if IsActive(j) && isType(j, api.JobThumbnailGeneration) {
			return false
		}
	}
	return true
}

// ActiveJobsLabel renders the status bar job indicator.
func ActiveJobsLabel(n int) string {
	switch {
	case n <= 0:
		return "Jobs"
	case n == 1:
		return "1 active job"
	default:
		return fmt.Sprintf("%d active jobs", n)
	}
}

// FormatBytes renders a byte count with binary units and at most two
// decimals, for example "1.5 MB".
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	sizes := []string{"Bytes", "KB", "MB", "GB", "TB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizes[i]
}

func payloadNumber(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
