package transmit

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Mode selects how a multi-chunk payload is paced.
type Mode string

const (
	// ModeTimed arms one timer per chunk at index x ChunkDelay and never
	// waits for a write to finish before the next one is due.
	ModeTimed Mode = "timed"
	// ModeQueued writes chunks from a single worker, awaiting each write
	// (bounded by WriteTimeout) and then ChunkDelay before the next.
	ModeQueued Mode = "queued"
)

// DefaultChunkDelay is the pause the printer needs between two GATT writes.
const DefaultChunkDelay = 250 * time.Millisecond

// Channel is a write-only byte sink such as a GATT characteristic. A
// channel may start failing at any time, for example on disconnect.
type Channel interface {
	Write(data []byte) error
}

// Link is a Channel that its owner must close once the transmission is over.
type Link interface {
	Channel
	Close() error
}

// Options configures a Scheduler.
type Options struct {
	Mode         Mode
	MaxChunkSize int           // bytes per write
	ChunkDelay   time.Duration // pause between chunk writes; zero disables pacing
	WriteTimeout time.Duration // queued mode only; zero waits forever
	Logger       *slog.Logger
}

// DefaultOptions returns the pacing the receipt printer is known to accept.
func DefaultOptions() Options {
	return Options{
		Mode:         ModeTimed,
		MaxChunkSize: DefaultMaxChunkSize,
		ChunkDelay:   DefaultChunkDelay,
		WriteTimeout: 2 * time.Second,
	}
}

// Scheduler writes fragmented payloads to a Channel.
type Scheduler struct {
	opts Options
	log  *slog.Logger
}

// NewScheduler validates opts and returns a Scheduler. An empty Mode means
// ModeTimed and a zero MaxChunkSize means DefaultMaxChunkSize.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Mode == "" {
		opts.Mode = ModeTimed
	}
	if opts.Mode != ModeTimed && opts.Mode != ModeQueued {
		return nil, fmt.Errorf("transmit: unknown mode %q", opts.Mode)
	}
	if opts.MaxChunkSize == 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.MaxChunkSize < 0 {
		return nil, fmt.Errorf("transmit: max chunk size must be > 0, got %d", opts.MaxChunkSize)
	}
	if opts.ChunkDelay < 0 {
		return nil, fmt.Errorf("transmit: chunk delay must be >= 0, got %s", opts.ChunkDelay)
	}
	if opts.WriteTimeout < 0 {
		return nil, fmt.Errorf("transmit: write timeout must be >= 0, got %s", opts.WriteTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{opts: opts, log: logger}, nil
}

// Options returns the effective options.
func (s *Scheduler) Options() Options {
	return s.opts
}

// Send starts delivering payload to ch and returns a handle on the
// transmission.
//
// A payload that fits in one chunk is written synchronously and its write
// error, if any, is returned as a *ChunkError. Larger payloads are
// scheduled according to the Mode and Send returns without waiting; use
// Transmission.Wait for the outcome. A failed chunk never stops the
// chunks after it. Cancelling ctx skips chunks that have not been issued
// yet but does not interrupt a write in progress.
func (s *Scheduler) Send(ctx context.Context, ch Channel, payload []byte) (*Transmission, error) {
	n := Count(len(payload), s.opts.MaxChunkSize)
	t := newTransmission(s.opts.Mode, payload, n, s.opts.MaxChunkSize)

	switch {
	case n == 0:
		t.finish()
		return t, nil
	case n == 1:
		if err := ctx.Err(); err != nil {
			t.record(0, 0, ErrSkipped)
			t.finish()
			return t, err
		}
		err := s.write(ch, Chunk{Index: 0, Data: payload}, 0, t)
		t.finish()
		if err != nil {
			return t, &ChunkError{Index: 0, Err: err}
		}
		return t, nil
	}

	s.log.Debug("[TX] scheduling transmission", "mode", s.opts.Mode, "bytes", len(payload), "chunks", n)
	if s.opts.Mode == ModeQueued {
		go s.drain(ctx, ch, payload, t)
	} else {
		s.arm(ctx, ch, payload, t)
	}
	return t, nil
}

// arm schedules chunk j to be written j*ChunkDelay from now. Without a
// delay every offset is zero and the chunks are written back to back from
// one goroutine, since zero-duration timers fire in no particular order.
func (s *Scheduler) arm(ctx context.Context, ch Channel, payload []byte, t *Transmission) {
	if s.opts.ChunkDelay == 0 {
		go s.burst(ctx, ch, payload, t)
		return
	}

	var wg sync.WaitGroup
	timers := make([]*time.Timer, 0, len(t.report.Chunks))
	for c := range Fragment(payload, s.opts.MaxChunkSize) {
		offset := time.Duration(c.Index) * s.opts.ChunkDelay
		wg.Add(1)
		timers = append(timers, time.AfterFunc(offset, func() {
			defer wg.Done()
			if ctx.Err() != nil {
				t.record(c.Index, offset, ErrSkipped)
				return
			}
			_ = s.write(ch, c, offset, t)
		}))
	}

	stop := context.AfterFunc(ctx, func() {
		for i, timer := range timers {
			if timer.Stop() {
				t.record(i, time.Duration(i)*s.opts.ChunkDelay, ErrSkipped)
				wg.Done()
			}
		}
	})

	go func() {
		wg.Wait()
		stop()
		t.finish()
	}()
}

// burst writes every chunk in index order at offset zero.
func (s *Scheduler) burst(ctx context.Context, ch Channel, payload []byte, t *Transmission) {
	defer t.finish()
	for c := range Fragment(payload, s.opts.MaxChunkSize) {
		if ctx.Err() != nil {
			t.record(c.Index, 0, ErrSkipped)
			continue
		}
		_ = s.write(ch, c, 0, t)
	}
}

// drain is the queued-mode worker. At most one write is outstanding at a
// time: a write that outlives WriteTimeout is recorded as ErrWriteTimeout
// but must still return before the next chunk is issued or the
// transmission is finished.
func (s *Scheduler) drain(ctx context.Context, ch Channel, payload []byte, t *Transmission) {
	var stalled <-chan error
	defer func() {
		if stalled != nil {
			<-stalled
		}
		t.finish()
	}()

	for c := range Fragment(payload, s.opts.MaxChunkSize) {
		if stalled != nil {
			select {
			case <-stalled:
				stalled = nil
			case <-ctx.Done():
			}
		}
		if c.Index > 0 && s.opts.ChunkDelay > 0 {
			sleep(ctx, s.opts.ChunkDelay)
		}
		offset := time.Since(t.start)
		if ctx.Err() != nil {
			t.record(c.Index, offset, ErrSkipped)
			continue
		}
		stalled = s.writeTimeout(ch, c, offset, t)
	}
}

// writeTimeout writes c, waiting at most WriteTimeout for the result. If
// the write is still running at the deadline, it returns a channel that
// yields the write's eventual result.
func (s *Scheduler) writeTimeout(ch Channel, c Chunk, offset time.Duration, t *Transmission) <-chan error {
	if s.opts.WriteTimeout == 0 {
		_ = s.write(ch, c, offset, t)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- ch.Write(c.Data) }()

	timer := time.NewTimer(s.opts.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		s.logWrite(c, err)
		t.record(c.Index, offset, err)
		return nil
	case <-timer.C:
		s.logWrite(c, ErrWriteTimeout)
		t.record(c.Index, offset, ErrWriteTimeout)
		return done
	}
}

func (s *Scheduler) write(ch Channel, c Chunk, offset time.Duration, t *Transmission) error {
	err := ch.Write(c.Data)
	s.logWrite(c, err)
	t.record(c.Index, offset, err)
	return err
}

func (s *Scheduler) logWrite(c Chunk, err error) {
	if err != nil {
		s.log.Warn("[TX] chunk write failed", "chunk", c.Index, "bytes", len(c.Data), "error", err)
		return
	}
	s.log.Debug("[TX] chunk written", "chunk", c.Index, "bytes", len(c.Data))
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Transmission tracks the chunks of one Send call.
type Transmission struct {
	start time.Time
	done  chan struct{}

	mu     sync.Mutex
	report Report
}

func newTransmission(mode Mode, payload []byte, n, maxSize int) *Transmission {
	t := &Transmission{
		start: time.Now(),
		done:  make(chan struct{}),
		report: Report{
			Mode:        mode,
			PayloadSize: len(payload),
			Chunks:      make([]ChunkResult, n),
		},
	}
	for i := range t.report.Chunks {
		size := maxSize
		if i == n-1 {
			size = len(payload) - i*maxSize
		}
		t.report.Chunks[i] = ChunkResult{Index: i, Size: size, Err: ErrPending}
	}
	return t
}

func (t *Transmission) record(index int, offset time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := &t.report.Chunks[index]
	r.Offset = offset
	r.Err = err
}

func (t *Transmission) finish() {
	t.mu.Lock()
	t.report.Elapsed = time.Since(t.start)
	t.mu.Unlock()
	close(t.done)
}

// Done is closed once every chunk has been written, has failed, or was
// skipped, and no write issued by the transmission is still running.
func (t *Transmission) Done() <-chan struct{} {
	return t.done
}

// Report returns a snapshot of the chunk outcomes so far.
func (t *Transmission) Report() *Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.report
	r.Chunks = slices.Clone(t.report.Chunks)
	return &r
}

// Wait blocks until the transmission is done or ctx expires. It returns the
// report together with the joined chunk errors, or ctx.Err() if ctx expired
// first.
func (t *Transmission) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-t.done:
		r := t.Report()
		return r, r.Err()
	case <-ctx.Done():
		return t.Report(), ctx.Err()
	}
}
