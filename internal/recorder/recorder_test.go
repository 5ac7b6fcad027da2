package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/session"
)

var _ session.Sink = (*Recorder)(nil)

type fakeBackend struct {
	mu       sync.Mutex
	gate     chan struct{}
	fail     error
	progress []model.Progress
	attempts []model.Attempt
	issues   []model.IssueReport
	cleared  int
}

func (b *fakeBackend) wait() {
	if b.gate != nil {
		<-b.gate
	}
}

func (b *fakeBackend) SaveProgress(_ context.Context, p model.Progress) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.progress = append(b.progress, p)
	return nil
}

func (b *fakeBackend) ClearProgress(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared++
	return nil
}

func (b *fakeBackend) InsertAttempt(_ context.Context, a model.Attempt) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return "", b.fail
	}
	b.attempts = append(b.attempts, a)
	return "id", nil
}

func (b *fakeBackend) InsertIssue(_ context.Context, r model.IssueReport) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return "", b.fail
	}
	b.issues = append(b.issues, r)
	return "id", nil
}

func testMeta() Meta {
	return Meta{
		Subject:   "Mathematics",
		StartedAt: time.Unix(1700000000, 0),
		Sequence: []model.Question{
			{ID: "q1", Options: []model.Option{{ID: "a", IsCorrect: true}, {ID: "b"}}},
			{ID: "q2", Options: []model.Option{{ID: "a", IsCorrect: true}, {ID: "b"}}},
		},
	}
}

func closeRecorder(t *testing.T, r *Recorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("close recorder: %v", err)
	}
}

func TestRecorderPersistsSessionFlow(t *testing.T) {
	backend := &fakeBackend{}
	rec := New(backend, testMeta(), Options{})
	m, err := session.New(testMeta().Sequence, rec)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	_ = m.SelectOption(0, "a")
	_ = m.SelectOption(1, "b")
	_ = m.Tick()
	if err := m.ReportIssue(1, "answer key looks wrong"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := m.Submit(false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	closeRecorder(t, rec)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.progress) == 0 {
		t.Fatalf("expected at least one progress write")
	}
	if len(backend.attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(backend.attempts))
	}
	a := backend.attempts[0]
	if a.Correct != 1 || a.Incorrect != 1 || a.TimeTakenSeconds != 1 || a.Subject != "Mathematics" {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.Answers[0] != "a" || a.Answers[1] != "b" {
		t.Fatalf("attempt answers not taken from latest snapshot: %+v", a.Answers)
	}
	if backend.cleared != 1 {
		t.Fatalf("expected progress cleared once, got %d", backend.cleared)
	}
	if len(backend.issues) != 1 || backend.issues[0].QuestionID != "q2" {
		t.Fatalf("unexpected issues %+v", backend.issues)
	}
}

func TestRecorderDoesNotBlockAndCoalesces(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	rec := New(backend, testMeta(), Options{})

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 100; i++ {
			rec.Progress(model.Snapshot{ElapsedSeconds: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("progress calls blocked on a stalled backend")
	}
	close(backend.gate)
	closeRecorder(t, rec)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.progress) == 0 || len(backend.progress) > 2 {
		t.Fatalf("expected coalesced writes, got %d", len(backend.progress))
	}
	if last := backend.progress[len(backend.progress)-1].Snapshot.ElapsedSeconds; last != 100 {
		t.Fatalf("expected newest snapshot saved, got %d", last)
	}
}

func TestRecorderSwallowsBackendErrors(t *testing.T) {
	backend := &fakeBackend{fail: errors.New("disk full")}
	var mu sync.Mutex
	var logged []string
	rec := New(backend, testMeta(), Options{Logf: func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, fmt.Sprintf(format, args...))
	}})
	rec.Progress(model.Snapshot{ElapsedSeconds: 1})
	rec.Complete(model.Completion{Result: model.Result{Skipped: 2}})
	closeRecorder(t, rec)

	if rec.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", rec.Failures())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(logged) != 2 {
		t.Fatalf("expected 2 log lines, got %v", logged)
	}
	if backend.cleared != 0 {
		t.Fatalf("progress must not be cleared when the attempt failed to save")
	}
}

func TestRecorderUsesInitialSnapshotOnResume(t *testing.T) {
	backend := &fakeBackend{}
	meta := testMeta()
	meta.Initial = model.Snapshot{Answers: map[int]string{0: "a"}}
	rec := New(backend, meta, Options{})
	rec.Complete(model.Completion{Result: model.Result{Correct: 1, Skipped: 1, ScorePercent: 50}})
	closeRecorder(t, rec)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.attempts) != 1 || backend.attempts[0].Answers[0] != "a" {
		t.Fatalf("expected resumed answers in attempt, got %+v", backend.attempts)
	}
}

func TestRecorderIgnoresCallsAfterClose(t *testing.T) {
	backend := &fakeBackend{}
	rec := New(backend, testMeta(), Options{})
	closeRecorder(t, rec)
	rec.Progress(model.Snapshot{ElapsedSeconds: 3})
	rec.Report(model.IssueReport{QuestionID: "q1", Description: "late"})
	closeRecorder(t, rec)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.progress) != 0 || len(backend.issues) != 0 {
		t.Fatalf("expected no writes after close")
	}
}
