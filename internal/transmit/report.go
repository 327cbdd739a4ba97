package transmit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrWriteTimeout is recorded for a queued-mode write that did not
	// complete within Options.WriteTimeout.
	ErrWriteTimeout = errors.New("transmit: write timed out")
	// ErrSkipped is recorded for chunks that were never issued because the
	// transmission's context was cancelled.
	ErrSkipped = errors.New("transmit: chunk skipped")
	// ErrPending marks chunks whose write has not completed yet.
	ErrPending = errors.New("transmit: chunk pending")
)

// ChunkError reports the failure of a single chunk write.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("transmit: chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// ChunkResult is the outcome of one chunk write.
type ChunkResult struct {
	Index int
	Size  int
	// Offset is the time after scheduling began at which the write was
	// issued. Timed mode records the scheduled offset, queued mode the
	// measured one.
	Offset time.Duration
	Err    error
}

// Report summarizes a transmission, one ChunkResult per chunk in index order.
type Report struct {
	Mode        Mode
	PayloadSize int
	Chunks      []ChunkResult
	Elapsed     time.Duration
}

// Failed returns the chunks that were not delivered.
func (r *Report) Failed() []ChunkResult {
	var failed []ChunkResult
	for _, c := range r.Chunks {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// OK reports whether every chunk was written successfully.
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Sent returns the number of payload bytes the channel accepted.
func (r *Report) Sent() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Err == nil {
			n += c.Size
		}
	}
	return n
}

// Err joins the per-chunk failures into one error, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, c := range r.Failed() {
		errs = append(errs, &ChunkError{Index: c.Index, Err: c.Err})
	}
	return errors.Join(errs...)
}
