package protocol

import (
	"context"
	"time"
)

// pendingRequest is the PendingRequest record of spec §3: owned
// exclusively by the multiplexer, created at Request and destroyed on
// response, error, cancellation, or timeout. At most one exists per
// (connection, id) at a time, because Request takes every id from the
// connection's monotonically increasing nextID counter.
type pendingRequest struct {
	id     string
	method string

	resultCh chan rawResult

	onProgress             func(progress float64, total *float64, message string)
	progressToken          string
	resetTimeoutOnProgress bool

	startedAt       time.Time
	timeout         time.Duration
	maxTotalTimeout time.Duration

	timer *time.Timer

	cancel context.CancelFunc // not set by Request; Close rejects the wait through resultCh instead
}

type rawResult struct {
	result []byte
	err    error
}

// resetTimer restarts the per-request deadline, never moving it past
// maxTotalTimeout measured from startedAt (spec §4.D Progress protocol).
// Called from the notification-dispatch goroutine while Request's own
// goroutine concurrently selects on p.timer.C, so per Timer.Reset's
// documented contract the timer must be stopped and drained first —
// otherwise a tick already in flight resolves the select immediately
// instead of honoring the extended deadline.
func (p *pendingRequest) resetTimer() {
	if p.timer == nil {
		return
	}
	remaining := p.timeout
	if p.maxTotalTimeout > 0 {
		elapsed := time.Since(p.startedAt)
		budget := p.maxTotalTimeout - elapsed
		if budget <= 0 {
			remaining = 0
		} else if remaining > budget {
			remaining = budget
		}
	}
	if !p.timer.Stop() {
		select {
		case <-p.timer.C:
		default:
		}
	}
	p.timer.Reset(remaining)
}
