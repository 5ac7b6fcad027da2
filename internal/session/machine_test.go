package session

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/verte-zerg/examforge/internal/model"
)

type recordingSink struct {
	progress  []model.Snapshot
	completed []model.Completion
	discarded int
	reports   []model.IssueReport
}

func (s *recordingSink) Progress(snap model.Snapshot) { s.progress = append(s.progress, snap) }
func (s *recordingSink) Complete(c model.Completion) { s.completed = append(s.completed, c) }
func (s *recordingSink) Discard() { s.discarded++ }
func (s *recordingSink) Report(r model.IssueReport) { s.reports = append(s.reports, r) }

func testSequence() []model.Question {
	mk := func(id, correct string) model.Question {
		return model.Question{
			ID:   id,
			Text: "question " + id,
			Options: []model.Option{
				{ID: correct, IsCorrect: true},
				{ID: "X"},
			},
		}
	}
	return []model.Question{mk("q1", "A"), mk("q2", "B"), mk("q3", "C")}
}

func newMachine(t *testing.T) (*Machine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	m, err := New(testSequence(), sink)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m, sink
}

func TestNewRejectsEmptySequence(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestNewInitialState(t *testing.T) {
	m, _ := newMachine(t)
	snap := m.Snapshot()
	if m.State() != Active || snap.Position != 0 || len(snap.Answers) != 0 || len(snap.Marked) != 0 || snap.ElapsedSeconds != 0 {
		t.Fatalf("unexpected initial state %s %+v", m.State(), snap)
	}
}

func TestSelectOptionLastWins(t *testing.T) {
	m, sink := newMachine(t)
	for i := 0; i < 3; i++ {
		if err := m.SelectOption(1, "B"); err != nil {
			t.Fatalf("select: %v", err)
		}
	}
	if got, _ := m.Answer(1); got != "B" {
		t.Fatalf("expected B, got %q", got)
	}
	if err := m.SelectOption(1, "X"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got, _ := m.Answer(1); got != "X" {
		t.Fatalf("expected X after overwrite, got %q", got)
	}
	if len(m.Answers()) != 1 {
		t.Fatalf("expected a single answer slot, got %v", m.Answers())
	}
	if len(sink.progress) != 4 {
		t.Fatalf("expected 4 snapshots, got %d", len(sink.progress))
	}
}

func TestSelectOptionOutOfRange(t *testing.T) {
	m, sink := newMachine(t)
	if err := m.SelectOption(3, "A"); !errors.Is(err, ErrPosition) {
		t.Fatalf("expected ErrPosition, got %v", err)
	}
	if len(sink.progress) != 0 {
		t.Fatalf("expected no snapshot for rejected transition")
	}
}

func TestDuplicateQuestionAnswersStaySeparate(t *testing.T) {
	q := testSequence()[0]
	m, err := New([]model.Question{q, q}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_ = m.SelectOption(0, "A")
	_ = m.SelectOption(1, "X")
	_ = m.ToggleReviewMark(1)
	if a, _ := m.Answer(0); a != "A" {
		t.Fatalf("position 0 answer overwritten: %q", a)
	}
	if m.IsMarked(0) || !m.IsMarked(1) {
		t.Fatalf("mark leaked across duplicate positions")
	}
	c, err := m.Submit(false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if c.Correct != 1 || c.Incorrect != 1 {
		t.Fatalf("unexpected result %+v", c.Result)
	}
}

func TestToggleReviewMark(t *testing.T) {
	m, _ := newMachine(t)
	_ = m.ToggleReviewMark(2)
	if !m.IsMarked(2) {
		t.Fatalf("expected position 2 marked")
	}
	_ = m.ToggleReviewMark(2)
	if m.IsMarked(2) {
		t.Fatalf("expected position 2 unmarked")
	}
}

func TestNavigateClamps(t *testing.T) {
	m, _ := newMachine(t)
	_ = m.Navigate(2)
	_ = m.Navigate(-1)
	if m.Position() != 0 {
		t.Fatalf("Navigate(-1) expected 0, got %d", m.Position())
	}
	_ = m.Navigate(m.Len())
	if m.Position() != m.Len()-1 {
		t.Fatalf("Navigate(len) expected %d, got %d", m.Len()-1, m.Position())
	}
	_ = m.Next()
	if m.Position() != m.Len()-1 {
		t.Fatalf("Next at end should stay, got %d", m.Position())
	}
	_ = m.Prev()
	if m.Position() != m.Len()-2 {
		t.Fatalf("Prev expected %d, got %d", m.Len()-2, m.Position())
	}
}

func TestTickEmitsSnapshot(t *testing.T) {
	m, sink := newMachine(t)
	for i := 0; i < 5; i++ {
		_ = m.Tick()
	}
	if m.Elapsed() != 5 {
		t.Fatalf("expected 5 seconds, got %d", m.Elapsed())
	}
	if last := sink.progress[len(sink.progress)-1]; last.ElapsedSeconds != 5 {
		t.Fatalf("expected last snapshot elapsed 5, got %d", last.ElapsedSeconds)
	}
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	m, sink := newMachine(t)
	_ = m.SelectOption(0, "A")
	sink.progress[0].Answers[0] = "tampered"
	if a, _ := m.Answer(0); a != "A" {
		t.Fatalf("snapshot shares map with machine")
	}
}

func TestSubmitWarnsOnUnanswered(t *testing.T) {
	m, sink := newMachine(t)
	_ = m.SelectOption(0, "A")
	_, err := m.Submit(false)
	var warn *UnansweredWarning
	if !errors.As(err, &warn) {
		t.Fatalf("expected UnansweredWarning, got %v", err)
	}
	if warn.Count != 2 {
		t.Fatalf("expected 2 unanswered, got %d", warn.Count)
	}
	if m.State() != Active || len(sink.completed) != 0 {
		t.Fatalf("warning must not change state")
	}
}

func TestSubmitForced(t *testing.T) {
	m, sink := newMachine(t)
	_ = m.SelectOption(0, "A")
	_ = m.SelectOption(2, "X")
	_ = m.Tick()
	_ = m.Tick()
	c, err := m.Submit(true)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := model.Completion{Result: model.Result{Correct: 1, Incorrect: 1, Skipped: 1, ScorePercent: 33}, TimeTakenSeconds: 2}
	if c != want {
		t.Fatalf("expected %+v, got %+v", want, c)
	}
	if m.State() != Completed {
		t.Fatalf("expected completed, got %s", m.State())
	}
	if len(sink.completed) != 1 || sink.completed[0] != want {
		t.Fatalf("expected one completion reported, got %+v", sink.completed)
	}
	if got, ok := m.Result(); !ok || got != want {
		t.Fatalf("unexpected stored result %+v", got)
	}
}

func TestTransitionsRejectedAfterCompletion(t *testing.T) {
	m, sink := newMachine(t)
	if _, err := m.Submit(true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := m.Snapshot()
	emitted := len(sink.progress)
	checks := []error{
		m.SelectOption(0, "A"),
		m.ToggleReviewMark(0),
		m.Navigate(2),
		m.Tick(),
		m.Exit(),
		m.ReportIssue(0, "typo"),
	}
	if _, err := m.Submit(true); err != nil {
		checks = append(checks, err)
	}
	for i, err := range checks {
		if !errors.Is(err, ErrNotActive) {
			t.Fatalf("transition %d: expected ErrNotActive, got %v", i, err)
		}
	}
	if !reflect.DeepEqual(before, m.Snapshot()) || len(sink.progress) != emitted || len(sink.completed) != 1 {
		t.Fatalf("completed session was mutated")
	}
}

func TestExitDiscards(t *testing.T) {
	m, sink := newMachine(t)
	if err := m.Exit(); err != nil {
		t.Fatalf("exit: %v", err)
	}
	if m.State() != Exited || sink.discarded != 1 || len(sink.completed) != 0 {
		t.Fatalf("unexpected exit outcome: state=%s sink=%+v", m.State(), sink)
	}
	if err := m.Tick(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected tick rejected after exit, got %v", err)
	}
}

func TestReportIssue(t *testing.T) {
	m, sink := newMachine(t)
	if err := m.ReportIssue(1, "   "); !errors.Is(err, ErrEmptyReport) {
		t.Fatalf("expected ErrEmptyReport, got %v", err)
	}
	if err := m.ReportIssue(1, "  wrong key  "); err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(sink.reports) != 1 || sink.reports[0].QuestionID != "q2" || sink.reports[0].Description != "wrong key" {
		t.Fatalf("unexpected reports %+v", sink.reports)
	}
}

func TestResumeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	seq := testSequence()
	for round := 0; round < 50; round++ {
		m, err := New(seq, nil)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		for step := 0; step < 20; step++ {
			switch rnd.Intn(4) {
			case 0:
				_ = m.SelectOption(rnd.Intn(len(seq)), []string{"A", "B", "C", "X"}[rnd.Intn(4)])
			case 1:
				_ = m.ToggleReviewMark(rnd.Intn(len(seq)))
			case 2:
				_ = m.Navigate(rnd.Intn(len(seq)+4) - 2)
			default:
				_ = m.Tick()
			}
		}
		snap := m.Snapshot()
		resumed, err := Resume(seq, snap, nil)
		if err != nil {
			t.Fatalf("resume: %v", err)
		}
		if !reflect.DeepEqual(resumed.Snapshot(), snap) {
			t.Fatalf("round %d: resumed %+v differs from %+v", round, resumed.Snapshot(), snap)
		}
		if resumed.State() != Active {
			t.Fatalf("expected resumed session active")
		}
	}
}

func TestResumeDropsStaleEntries(t *testing.T) {
	snap := model.Snapshot{
		Position:       9,
		Answers:        map[int]string{0: "A", 3: "B", -1: "C"},
		Marked:         []int{1, 5, -2},
		ElapsedSeconds: -4,
	}
	m, err := Resume(testSequence(), snap, nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	got := m.Snapshot()
	want := model.Snapshot{Position: 2, Answers: map[int]string{0: "A"}, Marked: []int{1}, ElapsedSeconds: 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
