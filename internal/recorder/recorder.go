// Package recorder persists session side effects without blocking the session.
package recorder

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/verte-zerg/examforge/internal/model"
)

const defaultWriteTimeout = 5 * time.Second

// Backend is the durable store behind a Recorder.
type Backend interface {
	SaveProgress(ctx context.Context, p model.Progress) error
	ClearProgress(ctx context.Context) error
	InsertAttempt(ctx context.Context, a model.Attempt) (string, error)
	InsertIssue(ctx context.Context, r model.IssueReport) (string, error)
}

// Meta describes the session being recorded.
type Meta struct {
	Subject   string
	StartedAt time.Time
	Sequence  []model.Question
	// Initial is the state the session starts from, non-empty on resume.
	Initial model.Snapshot
}

// Options configures a Recorder.
type Options struct {
	// Logf receives backend failures. Defaults to stderr.
	Logf func(format string, args ...any)
	// WriteTimeout bounds each backend call.
	WriteTimeout time.Duration
	// Now returns the current time.
	Now func() time.Time
}

type job struct {
	attempt *model.Attempt
	issue   *model.IssueReport
}

// Recorder implements session.Sink. A single writer goroutine applies writes
// in order; progress snapshots coalesce so only the newest pending one is saved.
// Completions and issue reports are never dropped.
type Recorder struct {
	backend Backend
	meta    Meta
	opts    Options

	mu       sync.Mutex
	latest   model.Snapshot
	pending  *model.Snapshot
	jobs     []job
	closed   bool
	failures int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New starts a Recorder for one session.
func New(backend Backend, meta Meta, opts Options) *Recorder {
	if opts.Logf == nil {
		opts.Logf = logErrf
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if meta.StartedAt.IsZero() {
		meta.StartedAt = opts.Now()
	}
	r := &Recorder{
		backend: backend,
		meta:    meta,
		opts:    opts,
		latest:  meta.Initial,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Progress implements session.Sink.
func (r *Recorder) Progress(snap model.Snapshot) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.latest = snap
	r.pending = &snap
	r.mu.Unlock()
	r.signal()
}

// Complete implements session.Sink. The attempt is built from the newest snapshot.
func (r *Recorder) Complete(c model.Completion) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	attempt := model.Attempt{
		Subject:    r.meta.Subject,
		StartedAt:  r.meta.StartedAt,
		EndedAt:    r.opts.Now(),
		Completion: c,
		Sequence:   r.meta.Sequence,
		Answers:    copyAnswers(r.latest.Answers),
	}
	r.jobs = append(r.jobs, job{attempt: &attempt})
	r.mu.Unlock()
	r.signal()
}

// Discard implements session.Sink. The last emitted snapshot stays saved so the
// session can be resumed explicitly later.
func (r *Recorder) Discard() {
	r.signal()
}

// Report implements session.Sink.
func (r *Recorder) Report(issue model.IssueReport) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.jobs = append(r.jobs, job{issue: &issue})
	r.mu.Unlock()
	r.signal()
}

// Failures returns the number of backend writes that failed so far.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Close flushes pending writes and stops the writer, bounded by ctx.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	close(r.stop)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder flush: %w", ctx.Err())
	}
}

func (r *Recorder) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		select {
		case <-r.wake:
			r.drain()
		case <-r.stop:
			r.drain()
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		r.mu.Lock()
		pending := r.pending
		jobs := r.jobs
		r.pending = nil
		r.jobs = nil
		r.mu.Unlock()
		if pending == nil && len(jobs) == 0 {
			return
		}
		if pending != nil {
			r.saveProgress(*pending)
		}
		for _, j := range jobs {
			switch {
			case j.attempt != nil:
				r.saveAttempt(*j.attempt)
			case j.issue != nil:
				r.saveIssue(*j.issue)
			}
		}
	}
}

func (r *Recorder) saveProgress(snap model.Snapshot) {
	r.write("save progress", func(ctx context.Context) error {
		return r.backend.SaveProgress(ctx, model.Progress{
			Subject:   r.meta.Subject,
			StartedAt: r.meta.StartedAt,
			UpdatedAt: r.opts.Now(),
			Sequence:  r.meta.Sequence,
			Snapshot:  snap,
		})
	})
}

func (r *Recorder) saveAttempt(a model.Attempt) {
	ok := r.write("save attempt", func(ctx context.Context) error {
		_, err := r.backend.InsertAttempt(ctx, a)
		return err
	})
	if !ok {
		// Keep the snapshot so the attempt is not lost entirely.
		return
	}
	r.write("clear progress", r.backend.ClearProgress)
}

func (r *Recorder) saveIssue(issue model.IssueReport) {
	r.write("save issue report", func(ctx context.Context) error {
		_, err := r.backend.InsertIssue(ctx, issue)
		return err
	})
}

func (r *Recorder) write(what string, fn func(ctx context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.opts.Logf("failed to %s: %v\n", what, err)
		return false
	}
	return true
}

func copyAnswers(answers map[int]string) map[int]string {
	out := make(map[int]string, len(answers))
	for pos, optID := range answers {
		out[pos] = optID
	}
	return out
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
