package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/scoring"
)

var statusLabels = map[scoring.Status]string{
	scoring.Correct:   "Correct",
	scoring.Incorrect: "Incorrect",
	scoring.Skipped:   "Skipped",
}

// renderReview lists every position with its verdict, the correct option
// and the chosen one.
func renderReview(sequence []model.Question, answers map[int]string, width int) string {
	entries := scoring.Classify(sequence, answers)
	res := scoring.Tally(entries)
	lines := []string{
		titleStyle.Render("Review"),
		mutedStyle.Render(fmt.Sprintf("%d correct  %d incorrect  %d skipped", res.Correct, res.Incorrect, res.Skipped)),
	}
	for _, e := range entries {
		q := sequence[e.Position]
		lines = append(lines, "", statusStyle(e.Status).Render(fmt.Sprintf("Q%d  %s", e.Position+1, statusLabels[e.Status])))
		lines = append(lines, wrapText(q.Text, width)...)
		for _, opt := range q.Options {
			marker, style := "  ", pendingStyle
			switch {
			case opt.ID == e.CorrectOptionID:
				marker, style = "✓ ", correctStyle
			case e.HasChoice && opt.ID == e.ChosenOptionID:
				marker, style = "✗ ", incorrectStyle
			}
			for _, line := range hangingWrap(marker, opt.Text, width) {
				lines = append(lines, style.Render(line))
			}
		}
		if e.Status == scoring.Incorrect && e.CorrectOptionID == "" {
			lines = append(lines, incorrectStyle.Render("  no option is marked correct for this question"))
		}
		if q.Explanation != "" {
			for _, line := range hangingWrap("  ", q.Explanation, width) {
				lines = append(lines, mutedStyle.Render(line))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func statusStyle(s scoring.Status) lipgloss.Style {
	switch s {
	case scoring.Correct:
		return correctStyle.Bold(true)
	case scoring.Incorrect:
		return incorrectStyle.Bold(true)
	default:
		return pendingStyle.Bold(true)
	}
}
