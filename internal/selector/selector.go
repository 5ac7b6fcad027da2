// Package selector builds shuffled question sequences for quiz sessions.
package selector

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/examforge/internal/catalog"
	"github.com/verte-zerg/examforge/internal/model"
)

// ErrEmptySelection is returned when no catalog question matches the criteria.
var ErrEmptySelection = errors.New("no eligible questions for selection")

// ErrInvalidCount is returned when fewer than one question is requested.
var ErrInvalidCount = errors.New("requested count must be at least 1")

// Criteria restricts which catalog questions are eligible.
type Criteria struct {
	// Category is the acting user's category.
	Category string
	// SubjectID is a specific subject, or empty / model.SubjectMixed for any.
	SubjectID string
	// Subscriptions limits mixed selections to these subjects when non-empty.
	Subscriptions []string
}

// Mixed reports whether no specific subject was requested.
func (c Criteria) Mixed() bool {
	return c.SubjectID == "" || c.SubjectID == model.SubjectMixed
}

// Selector produces randomized question sequences.
type Selector struct {
	rnd *rand.Rand
}

// New returns a Selector seeded with the current time.
func New() *Selector {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Selector drawing from src.
func NewWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// Select filters the catalog, shuffles it and returns up to count questions,
// each with an independently shuffled copy of its options.
func (s *Selector) Select(questions []model.Question, crit Criteria, count int) ([]model.Question, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	filtered := Filter(questions, crit)
	if len(filtered) == 0 {
		return nil, ErrEmptySelection
	}
	s.shuffleQuestions(filtered)
	if count > len(filtered) {
		count = len(filtered)
	}
	out := make([]model.Question, count)
	for i := 0; i < count; i++ {
		q := cloneQuestion(filtered[i])
		s.shuffleOptions(q.Options)
		out[i] = q
	}
	return out, nil
}

// Eligible applies the selection predicate to a single question.
func Eligible(q model.Question, crit Criteria) bool {
	if q.Status != model.StatusActive {
		return false
	}
	if q.Category != model.CategoryAll && q.Category != crit.Category {
		return false
	}
	if !crit.Mixed() {
		return q.SubjectID == crit.SubjectID
	}
	if len(crit.Subscriptions) > 0 {
		return contains(crit.Subscriptions, q.SubjectID)
	}
	return true
}

// Filter returns the eligible questions in catalog order.
func Filter(questions []model.Question, crit Criteria) []model.Question {
	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if Eligible(q, crit) {
			out = append(out, q)
		}
	}
	return out
}

// CountEligible returns how many questions match crit.
func CountEligible(questions []model.Question, crit Criteria) int {
	n := 0
	for _, q := range questions {
		if Eligible(q, crit) {
			n++
		}
	}
	return n
}

// Label names a selection the way it is shown in history.
func Label(crit Criteria, subjects []model.Subject) string {
	if !crit.Mixed() {
		return catalog.SubjectName(subjects, crit.SubjectID)
	}
	if len(crit.Subscriptions) > 0 {
		return fmt.Sprintf("Mixed (%d subjects)", len(crit.Subscriptions))
	}
	return "Mixed Practice"
}

// shuffleQuestions applies Fisher-Yates in place.
func (s *Selector) shuffleQuestions(qs []model.Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

func (s *Selector) shuffleOptions(opts []model.Option) {
	for i := len(opts) - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		opts[i], opts[j] = opts[j], opts[i]
	}
}

func cloneQuestion(q model.Question) model.Question {
	q.Options = append([]model.Option(nil), q.Options...)
	if q.Tags != nil {
		q.Tags = append([]string(nil), q.Tags...)
	}
	return q
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
