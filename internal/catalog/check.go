package catalog

import (
	"fmt"

	"github.com/verte-zerg/examforge/internal/model"
)

// Finding describes one content problem in the catalog.
type Finding struct {
	QuestionID string
	Message    string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.QuestionID, f.Message)
}

// Check reports questions that break invariants the quiz engine assumes.
// The engine tolerates every finding; they only affect scoring quality.
func Check(cat model.Catalog) []Finding {
	var findings []Finding
	add := func(id, format string, args ...any) {
		findings = append(findings, Finding{QuestionID: id, Message: fmt.Sprintf(format, args...)})
	}
	seenQuestion := map[string]struct{}{}
	subjects := map[string]struct{}{}
	for _, s := range cat.Subjects {
		subjects[s.ID] = struct{}{}
	}
	for i, q := range cat.Questions {
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("#%d", i+1)
			add(id, "missing id")
		} else if _, ok := seenQuestion[id]; ok {
			add(id, "duplicate question id")
		}
		seenQuestion[id] = struct{}{}

		if len(q.Options) < 2 {
			add(id, "needs at least 2 options, has %d", len(q.Options))
		}
		correct := 0
		seenOption := map[string]struct{}{}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
			if opt.ID == "" {
				add(id, "option %q has no id", opt.Text)
				continue
			}
			if _, ok := seenOption[opt.ID]; ok {
				add(id, "duplicate option id %q", opt.ID)
			}
			seenOption[opt.ID] = struct{}{}
		}
		if correct != 1 {
			add(id, "expected exactly one correct option, found %d", correct)
		}
		if !q.Difficulty.Valid() {
			add(id, "unknown difficulty %q", q.Difficulty)
		}
		if q.Status != model.StatusActive && q.Status != model.StatusInactive {
			add(id, "unknown status %q", q.Status)
		}
		if len(subjects) > 0 {
			if _, ok := subjects[q.SubjectID]; !ok {
				add(id, "unknown subject %q", q.SubjectID)
			}
		}
	}
	return findings
}
