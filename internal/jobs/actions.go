package jobs

import (
	"context"
	"fmt"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
)

// ActionClient is the backend surface used by job actions.
type ActionClient interface {
	StartImport(ctx context.Context, scanType string) (*api.ImportResult, error)
	RegenerateAll(ctx context.Context, force bool) (*api.RegenerateAllResult, error)
	CancelJob(ctx context.Context, id int) error
}

// Actions implements the job panel buttons.
type Actions struct {
	client   ActionClient
	notice   *Notice
	confirms *Confirmations
	refresh  func()
}

// NewActions wires the buttons. refresh is called after a successful action
// so the poller can pick up the change; it may be nil.
func NewActions(client ActionClient, notice *Notice, confirms *Confirmations, refresh func()) *Actions {
	if refresh == nil {
		refresh = func() {}
	}
	return &Actions{client: client, notice: notice, confirms: confirms, refresh: refresh}
}

// Notice returns the status message holder.
func (a *Actions) Notice() *Notice {
	return a.notice
}

// Confirmations returns the cancel confirmation tracker.
func (a *Actions) Confirmations() *Confirmations {
	return a.confirms
}

// StartScan starts an incremental library scan.
func (a *Actions) StartScan(ctx context.Context) error {
	res, err := a.client.StartImport(ctx, "incremental")
	if err != nil {
		a.notice.Set("Failed to start scan", NoticeShort)
		logging.Warn("Failed to start scan: %v", err)
		return fmt.Errorf("start scan: %w", err)
	}
	a.notice.Set(fmt.Sprintf("Scan started: Job #%s", res.JobID), NoticeShort)
	logging.Info("Scan started: job %s", res.JobID)
	a.refresh()
	return nil
}

// RegenerateAll forces regeneration of every thumbnail.
func (a *Actions) RegenerateAll(ctx context.Context) error {
	res, err := a.client.RegenerateAll(ctx, true)
	if err != nil {
		a.notice.Set("Failed to start thumbnail regeneration", NoticeShort)
		logging.Warn("Failed to start thumbnail regeneration: %v", err)
		return fmt.Errorf("regenerate all: %w", err)
	}

	count := "all"
	if res.TotalPhotos > 0 {
		count = fmt.Sprintf("%d", res.TotalPhotos)
	}
	a.notice.Set(fmt.Sprintf("Regenerating thumbnails for %s photos", count), NoticeLong)
	logging.Info("Thumbnail regeneration started for %s photos", count)
	a.refresh()
	return nil
}

// RequestCancel handles the cancel button. It returns true when a
// confirmation is now pending and false when a pending one was withdrawn.
func (a *Actions) RequestCancel(id int) bool {
	return a.confirms.Toggle(id)
}

// ConfirmCancel issues the cancel if id has a pending confirmation. It
// reports whether a request was sent.
func (a *Actions) ConfirmCancel(ctx context.Context, id int) (bool, error) {
	if !a.confirms.Confirm(id) {
		return false, nil
	}
	if err := a.client.CancelJob(ctx, id); err != nil {
		a.notice.Set(fmt.Sprintf("Failed to cancel job #%d", id), NoticeShort)
		logging.Warn("Failed to cancel job %d: %v", id, err)
		return true, fmt.Errorf("cancel job %d: %w", id, err)
	}
	logging.Info("Cancelled job %d", id)
	a.refresh()
	return true, nil
}
