// Package model defines shared data structures.
package model

import "time"

// CategoryAll marks a question as eligible for every user category.
const CategoryAll = "all"

// SubjectMixed selects questions across subjects.
const SubjectMixed = "mixed"

// Difficulty is a question difficulty tier.
type Difficulty string

// Difficulty tiers.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Question status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Option is one answer choice of a question.
type Option struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"correct"`
}

// Question is a single-best-answer multiple choice item.
type Question struct {
	ID          string     `json:"id" yaml:"id"`
	SubjectID   string     `json:"subjectId" yaml:"subject"`
	TopicID     string     `json:"topicId,omitempty" yaml:"topic"`
	Text        string     `json:"text" yaml:"text"`
	Options     []Option   `json:"options" yaml:"options"`
	Explanation string     `json:"explanation,omitempty" yaml:"explanation"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags"`
	Category    string     `json:"category" yaml:"category"`
	Status      string     `json:"status,omitempty" yaml:"status"`
}

// Subject groups questions for a user category.
type Subject struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// Catalog is the full question bank.
type Catalog struct {
	Subjects  []Subject  `yaml:"subjects"`
	Questions []Question `yaml:"questions"`
}

// Snapshot is a self-contained copy of in-progress session state.
// Answers and Marked are keyed by ordinal position in the sequence.
type Snapshot struct {
	Position       int            `json:"position"`
	Answers        map[int]string `json:"answers"`
	Marked         []int          `json:"markedPositions"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
}

// Result holds the aggregate outcome of a submitted session.
type Result struct {
	Correct      int `json:"correctCount"`
	Incorrect    int `json:"incorrectCount"`
	Skipped      int `json:"skippedCount"`
	ScorePercent int `json:"scorePercent"`
}

// Total returns the number of positions the result covers.
func (r Result) Total() int {
	return r.Correct + r.Incorrect + r.Skipped
}

// Completion is reported once when a session is submitted.
type Completion struct {
	Result
	TimeTakenSeconds int `json:"timeTakenSeconds"`
}

// IssueReport is an ad-hoc problem report raised against a question.
type IssueReport struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText,omitempty"`
	Description  string `json:"description"`
}

// Issue report status values.
const (
	IssuePending  = "pending"
	IssueResolved = "resolved"
)

// StoredIssue is an issue report as persisted.
type StoredIssue struct {
	ID        string
	CreatedAt time.Time
	Status    string
	IssueReport
}

// Attempt is a completed quiz attempt with enough data to rebuild its review.
type Attempt struct {
	ID        string
	Subject   string
	StartedAt time.Time
	EndedAt   time.Time
	Completion
	Sequence []Question
	Answers  map[int]string
}

// Progress is a resumable in-progress session.
type Progress struct {
	Subject   string
	StartedAt time.Time
	UpdatedAt time.Time
	Sequence  []Question
	Snapshot  Snapshot
}

// Config defines practice settings.
type Config struct {
	Category      string
	Subject       string
	Count         int
	Subscriptions []string
	CatalogPath   string
	Resume        bool
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Subject     string
	Since       *time.Time
	Last        int
	CurveWindow int
}
