// Package session implements the quiz session state machine.
//
// All per-question state is keyed by the ordinal position of a question in the
// fixed sequence. The same question may appear at several positions, so its
// identifier is never used as a key.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/scoring"
)

// State is the lifecycle state of a Machine.
type State int

// Machine states.
const (
	Active State = iota
	Submitting
	Completed
	Exited
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrEmptySequence is returned when a session is built without questions.
	ErrEmptySequence = errors.New("session sequence is empty")
	// ErrNotActive is returned by transitions outside the Active state.
	ErrNotActive = errors.New("session is not active")
	// ErrPosition is returned for positions outside the sequence.
	ErrPosition = errors.New("position out of range")
	// ErrEmptyReport is returned for an issue report without a description.
	ErrEmptyReport = errors.New("issue description is empty")
)

// UnansweredWarning is returned by Submit when positions are unanswered and
// the caller did not force submission. It is a soft signal, not a failure.
type UnansweredWarning struct {
	Count int
}

func (w *UnansweredWarning) Error() string {
	return fmt.Sprintf("%d unanswered questions", w.Count)
}

// Machine owns one live quiz session. It is not safe for concurrent use.
type Machine struct {
	sequence []model.Question
	sink     Sink

	state    State
	position int
	answers  map[int]string
	marked   map[int]struct{}
	elapsed  int
	result   model.Completion
}

// New starts an Active session at position 0.
func New(sequence []model.Question, sink Sink) (*Machine, error) {
	if len(sequence) == 0 {
		return nil, ErrEmptySequence
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Machine{
		sequence: sequence,
		sink:     sink,
		state:    Active,
		answers:  map[int]string{},
		marked:   map[int]struct{}{},
	}, nil
}

// Resume rebuilds an Active session from a snapshot of the same sequence.
// Out-of-range positions are clamped or dropped.
func Resume(sequence []model.Question, snap model.Snapshot, sink Sink) (*Machine, error) {
	m, err := New(sequence, sink)
	if err != nil {
		return nil, err
	}
	m.position = m.clamp(snap.Position)
	for pos, optID := range snap.Answers {
		if m.inRange(pos) {
			m.answers[pos] = optID
		}
	}
	for _, pos := range snap.Marked {
		if m.inRange(pos) {
			m.marked[pos] = struct{}{}
		}
	}
	if snap.ElapsedSeconds > 0 {
		m.elapsed = snap.ElapsedSeconds
	}
	return m, nil
}

// SelectOption records optionID as the answer at pos, replacing any prior answer.
func (m *Machine) SelectOption(pos int, optionID string) error {
	if err := m.checkActive(); err != nil {
		return err
	}
	if !m.inRange(pos) {
		return fmt.Errorf("select option at %d: %w", pos, ErrPosition)
	}
	m.answers[pos] = optionID
	m.emit()
	return nil
}

// ToggleReviewMark flips the review flag at pos.
func (m *Machine) ToggleReviewMark(pos int) error {
	if err := m.checkActive(); err != nil {
		return err
	}
	if !m.inRange(pos) {
		return fmt.Errorf("toggle mark at %d: %w", pos, ErrPosition)
	}
	if _, ok := m.marked[pos]; ok {
		delete(m.marked, pos)
	} else {
		m.marked[pos] = struct{}{}
	}
	m.emit()
	return nil
}

// Navigate moves to target, clamped into the sequence.
func (m *Machine) Navigate(target int) error {
	if err := m.checkActive(); err != nil {
		return err
	}
	m.position = m.clamp(target)
	m.emit()
	return nil
}

// Next moves one position forward.
func (m *Machine) Next() error {
	return m.Navigate(m.position + 1)
}

// Prev moves one position back.
func (m *Machine) Prev() error {
	return m.Navigate(m.position - 1)
}

// Tick adds one second of elapsed time.
func (m *Machine) Tick() error {
	if err := m.checkActive(); err != nil {
		return err
	}
	m.elapsed++
	m.emit()
	return nil
}

// Submit scores the session. Without force, unanswered positions produce an
// *UnansweredWarning and leave the session Active.
func (m *Machine) Submit(force bool) (model.Completion, error) {
	if err := m.checkActive(); err != nil {
		return model.Completion{}, err
	}
	if missing := len(m.Unanswered()); missing > 0 && !force {
		return model.Completion{}, &UnansweredWarning{Count: missing}
	}
	m.state = Submitting
	res := scoring.Score(m.sequence, m.answers)
	m.result = model.Completion{Result: res, TimeTakenSeconds: m.elapsed}
	m.state = Completed
	m.sink.Complete(m.result)
	return m.result, nil
}

// Exit abandons the session without a result.
func (m *Machine) Exit() error {
	if err := m.checkActive(); err != nil {
		return err
	}
	m.state = Exited
	m.sink.Discard()
	return nil
}

// ReportIssue forwards a report about the question at pos to the sink.
func (m *Machine) ReportIssue(pos int, description string) error {
	if err := m.checkActive(); err != nil {
		return err
	}
	if !m.inRange(pos) {
		return fmt.Errorf("report issue at %d: %w", pos, ErrPosition)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyReport
	}
	q := m.sequence[pos]
	m.sink.Report(model.IssueReport{QuestionID: q.ID, QuestionText: q.Text, Description: description})
	return nil
}

// Snapshot returns a deep copy of the current session state.
func (m *Machine) Snapshot() model.Snapshot {
	answers := make(map[int]string, len(m.answers))
	for pos, optID := range m.answers {
		answers[pos] = optID
	}
	marked := make([]int, 0, len(m.marked))
	for pos := range m.marked {
		marked = append(marked, pos)
	}
	sort.Ints(marked)
	return model.Snapshot{
		Position:       m.position,
		Answers:        answers,
		Marked:         marked,
		ElapsedSeconds: m.elapsed,
	}
}

// Unanswered lists positions without an answer in ascending order.
func (m *Machine) Unanswered() []int {
	var out []int
	for i := range m.sequence {
		if _, ok := m.answers[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Answer returns the option chosen at pos.
func (m *Machine) Answer(pos int) (string, bool) {
	optID, ok := m.answers[pos]
	return optID, ok
}

// Answers returns a copy of the answers keyed by position.
func (m *Machine) Answers() map[int]string {
	return m.Snapshot().Answers
}

// IsMarked reports whether pos is flagged for review.
func (m *Machine) IsMarked(pos int) bool {
	_, ok := m.marked[pos]
	return ok
}

// Question returns the question at pos.
func (m *Machine) Question(pos int) model.Question {
	return m.sequence[m.clamp(pos)]
}

// Sequence returns the fixed question sequence. Callers must not modify it.
func (m *Machine) Sequence() []model.Question { return m.sequence }

// Position returns the current position.
func (m *Machine) Position() int { return m.position }

// Len returns the sequence length.
func (m *Machine) Len() int { return len(m.sequence) }

// Elapsed returns elapsed seconds.
func (m *Machine) Elapsed() int { return m.elapsed }

// State returns the lifecycle state.
func (m *Machine) State() State { return m.state }

// Result returns the completion computed by Submit.
func (m *Machine) Result() (model.Completion, bool) {
	return m.result, m.state == Completed
}

func (m *Machine) checkActive() error {
	if m.state != Active {
		return fmt.Errorf("%w (%s)", ErrNotActive, m.state)
	}
	return nil
}

func (m *Machine) emit() {
	m.sink.Progress(m.Snapshot())
}

func (m *Machine) inRange(pos int) bool {
	return pos >= 0 && pos < len(m.sequence)
}

func (m *Machine) clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos >= len(m.sequence) {
		return len(m.sequence) - 1
	}
	return pos
}
