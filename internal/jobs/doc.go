// Package jobs observes backend jobs and drives the job panel.
//
// Poller polls the job list, system stats and photo count in one tick and
// switches between a fast interval while any job is running or pending and a
// slow interval otherwise. The next tick is armed only after the previous
// response has been processed, so polls never overlap.
//
// Confirmations, Notice and Actions hold the small amount of UI state the
// job panel needs: two-step cancel confirmation, transient status messages
// and the scan and regenerate-all buttons.
package jobs
