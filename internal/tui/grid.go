package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/examforge/internal/session"
)

type cellKind int

const (
	cellPending cellKind = iota
	cellAnswered
	cellMarked
)

var (
	pendingCellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	answeredCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	markedCellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// cellKindAt reports how a grid cell is coloured. A review mark wins over
// an answer so flagged questions stand out.
func cellKindAt(m *session.Machine, pos int) cellKind {
	if m.IsMarked(pos) {
		return cellMarked
	}
	if _, ok := m.Answer(pos); ok {
		return cellAnswered
	}
	return cellPending
}

func cellStyle(kind cellKind) lipgloss.Style {
	switch kind {
	case cellAnswered:
		return answeredCellStyle
	case cellMarked:
		return markedCellStyle
	default:
		return pendingCellStyle
	}
}

func renderGrid(m *session.Machine, width int) string {
	n := m.Len()
	digits := len(strconv.Itoa(n))
	cellWidth := digits + 2
	perRow := width / cellWidth
	if perRow < 1 {
		perRow = 1
	}
	var rows []string
	var row strings.Builder
	for pos := 0; pos < n; pos++ {
		style := cellStyle(cellKindAt(m, pos))
		if pos == m.Position() {
			style = style.Reverse(true).Bold(true)
		}
		row.WriteString(style.Render(fmt.Sprintf(" %*d ", digits, pos+1)))
		if (pos+1)%perRow == 0 {
			rows = append(rows, row.String())
			row.Reset()
		}
	}
	if row.Len() > 0 {
		rows = append(rows, row.String())
	}
	legend := strings.Join([]string{
		answeredCellStyle.Render("answered"),
		markedCellStyle.Render("marked"),
		pendingCellStyle.Render("open"),
	}, "  ")
	return strings.Join(append(rows, legend), "\n")
}
