package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Jobs lists backend jobs. Completed jobs are included only when asked.
func (c *Client) Jobs(ctx context.Context, includeCompleted bool) ([]Job, error) {
	q := url.Values{"include_completed": {strconv.FormatBool(includeCompleted)}}

	var jobs []Job
	if err := c.doJSON(ctx, "jobs", http.MethodGet, "/jobs", q, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CancelJob asks the backend to cancel a job.
func (c *Client) CancelJob(ctx context.Context, id int) error {
	path := fmt.Sprintf("/jobs/%d/cancel", id)
	return c.doJSON(ctx, "cancel_job", http.MethodPost, path, nil, nil, nil)
}

// SystemStats fetches the library, disk and job summary.
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	if err := c.doJSON(ctx, "system_stats", http.MethodGet, "/system/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RegenerateThumbnail queues regeneration of one photo's thumbnails.
func (c *Client) RegenerateThumbnail(ctx context.Context, id int) error {
	path := fmt.Sprintf("/thumbnails/regenerate/%d", id)
	return c.doJSON(ctx, "regenerate", http.MethodPost, path, nil, nil, nil)
}

// RegenerateAll queues regeneration of every thumbnail.
func (c *Client) RegenerateAll(ctx context.Context, force bool) (*RegenerateAllResult, error) {
	var result RegenerateAllResult
	body := regenerateAllRequest{Force: force}
	if err := c.doJSON(ctx, "regenerate_all", http.MethodPost, "/thumbnails/regenerate", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
