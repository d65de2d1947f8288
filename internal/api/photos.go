package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bokeh-viewer/internal/photo"
)

// ListPhotos fetches one page of the library.
func (c *Client) ListPhotos(ctx context.Context, opts ListOptions) (*PhotoPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}

	var page PhotoPage
	if err := c.doJSON(ctx, "list_photos", http.MethodGet, "/photos", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PhotoCount fetches the lightweight library count.
func (c *Client) PhotoCount(ctx context.Context) (*PhotoCount, error) {
	var count PhotoCount
	if err := c.doJSON(ctx, "photo_count", http.MethodGet, "/photos/count", nil, nil, &count); err != nil {
		return nil, err
	}
	return &count, nil
}

// RecentPhotos fetches photos created after since. A non-positive limit
// leaves the backend default.
func (c *Client) RecentPhotos(ctx context.Context, since time.Time, limit int) (*RecentPhotos, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format("2006-01-02T15:04:05.999999"))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var recent RecentPhotos
	if err := c.doJSON(ctx, "recent_photos", http.MethodGet, "/photos/recent", q, nil, &recent); err != nil {
		return nil, err
	}
	return &recent, nil
}

// Years fetches the per-year summary.
func (c *Client) Years(ctx context.Context) ([]YearSummary, error) {
	var resp yearsResponse
	if err := c.doJSON(ctx, "years", http.MethodGet, "/photos/years", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Years, nil
}

// YearPhotos fetches every photo taken in year.
func (c *Client) YearPhotos(ctx context.Context, year int) ([]photo.Record, error) {
	var resp photosResponse
	path := "/photos/year/" + strconv.Itoa(year)
	if err := c.doJSON(ctx, "year_photos", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

// FolderTree fetches the directory tree.
func (c *Client) FolderTree(ctx context.Context) ([]FolderNode, error) {
	var tree FolderTree
	if err := c.doJSON(ctx, "folder_tree", http.MethodGet, "/folders/tree", nil, nil, &tree); err != nil {
		return nil, err
	}
	return tree.Nodes, nil
}

// FolderPhotos fetches the photos under folder, including subfolders when
// recursive is set.
func (c *Client) FolderPhotos(ctx context.Context, folder string, recursive bool) ([]photo.Record, error) {
	q := url.Values{}
	if recursive {
		q.Set("recursive", "true")
	}

	var resp photosResponse
	path := "/folders/" + url.PathEscape(folder) + "/photos"
	if err := c.doJSON(ctx, "folder_photos", http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

// UpdateRotation persists a rotation edit. rotation is normalized before it
// is sent.
func (c *Client) UpdateRotation(ctx context.Context, id, rotation int) (*RotationResult, error) {
	body := rotationRequest{Rotation: photo.Normalize(rotation)}

	var result RotationResult
	path := fmt.Sprintf("/photos/%d/rotation", id)
	if err := c.doJSON(ctx, "update_rotation", http.MethodPatch, path, nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartImport starts a library scan. An empty scanType uses "incremental".
func (c *Client) StartImport(ctx context.Context, scanType string) (*ImportResult, error) {
	if scanType == "" {
		scanType = "incremental"
	}
	q := url.Values{"scan_type": {scanType}}
	body := map[string]string{"scan_type": scanType}

	var result ImportResult
	if err := c.doJSON(ctx, "import", http.MethodPost, "/photos/import", q, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
