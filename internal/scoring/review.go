package scoring

import "github.com/verte-zerg/examforge/internal/model"

// Entry is the review classification of one position.
type Entry struct {
	Position        int
	Status          Status
	ChosenOptionID  string
	HasChoice       bool
	CorrectOptionID string
}

// Classify reconstructs the per-position review of a finished sequence.
func Classify(sequence []model.Question, answers map[int]string) []Entry {
	entries := make([]Entry, len(sequence))
	for i, q := range sequence {
		chosen, ok := answers[i]
		entry := Entry{
			Position:       i,
			Status:         judge(q, chosen, ok),
			ChosenOptionID: chosen,
			HasChoice:      ok,
		}
		if correct, found := CorrectOption(q); found {
			entry.CorrectOptionID = correct.ID
		}
		entries[i] = entry
	}
	return entries
}

// Tally reduces review entries to aggregate counts.
func Tally(entries []Entry) model.Result {
	var res model.Result
	for _, e := range entries {
		switch e.Status {
		case Correct:
			res.Correct++
		case Incorrect:
			res.Incorrect++
		default:
			res.Skipped++
		}
	}
	res.ScorePercent = Percent(res.Correct, len(entries))
	return res
}
