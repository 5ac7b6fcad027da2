package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type cell struct {
	r       rune
	width   int
	isSpace bool
}

// wrapText breaks text into lines no wider than width display cells.
// Lines break at spaces when possible, otherwise inside the word.
// Explicit newlines are kept.
func wrapText(text string, width int) []string {
	paragraphs := strings.Split(text, "\n")
	if width <= 0 {
		return paragraphs
	}
	var out []string
	for _, p := range paragraphs {
		out = append(out, wrapParagraph(toCells(p), width)...)
	}
	return out
}

func toCells(s string) []cell {
	cells := make([]cell, 0, len(s))
	for _, r := range s {
		cells = append(cells, cell{r: r, width: runewidth.RuneWidth(r), isSpace: r == ' ' || r == '\t'})
	}
	return cells
}

func wrapParagraph(cells []cell, width int) []string {
	var out []string
	line := make([]cell, 0, len(cells))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(cells); {
		item := cells[i]
		if item.isSpace && len(line) == 0 && len(out) > 0 {
			i++
			continue
		}
		if lineWidth+item.width > width && len(line) > 0 {
			switch {
			case item.isSpace:
				out = append(out, renderCells(line))
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
				i++
			case lastSpaceIdx >= 0:
				out = append(out, renderCells(line[:lastSpaceIdx]))
				line = append([]cell{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			default:
				out = append(out, renderCells(line))
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	return append(out, renderCells(line))
}

func renderCells(line []cell) string {
	var b strings.Builder
	for _, item := range line {
		b.WriteRune(item.r)
	}
	return strings.TrimRight(b.String(), " \t")
}

func lineWidthOf(line []cell) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []cell) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}

// hangingWrap wraps text after prefix and indents continuation lines to
// the prefix width.
func hangingWrap(prefix, text string, width int) []string {
	indentWidth := runewidth.StringWidth(prefix)
	lines := wrapText(text, width-indentWidth)
	indent := strings.Repeat(" ", indentWidth)
	for i := range lines {
		if i == 0 {
			lines[i] = prefix + lines[i]
		} else {
			lines[i] = indent + lines[i]
		}
	}
	return lines
}
