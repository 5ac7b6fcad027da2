// Package scoring computes quiz results and per-question review entries.
package scoring

import (
	"math"

	"github.com/verte-zerg/examforge/internal/model"
)

// Status classifies one position of a finished sequence.
type Status int

// Position statuses.
const (
	Skipped Status = iota
	Correct
	Incorrect
)

func (s Status) String() string {
	switch s {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "skipped"
	}
}

// CorrectOption returns the first option flagged correct.
func CorrectOption(q model.Question) (model.Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return model.Option{}, false
}

// judge is the single equality rule used by Score and Classify.
// A question without a flagged option can never be answered correctly.
func judge(q model.Question, chosen string, answered bool) Status {
	if !answered {
		return Skipped
	}
	correct, ok := CorrectOption(q)
	if ok && chosen == correct.ID {
		return Correct
	}
	return Incorrect
}

// Score counts correct, incorrect and skipped positions. Answers are keyed by position.
func Score(sequence []model.Question, answers map[int]string) model.Result {
	var res model.Result
	for i, q := range sequence {
		chosen, ok := answers[i]
		switch judge(q, chosen, ok) {
		case Correct:
			res.Correct++
		case Incorrect:
			res.Incorrect++
		default:
			res.Skipped++
		}
	}
	res.ScorePercent = Percent(res.Correct, len(sequence))
	return res
}

// Percent returns correct/total as a rounded percentage, 0 for an empty total.
func Percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
