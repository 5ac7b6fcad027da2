package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisLabelWidth      = 4
	axisSeparator       = " │ "
	terminalWidthBackup = 80
)

// eighths holds partial block glyphs, index n fills n/8 of a cell.
var eighths = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// PlotWidthFor returns the plot area width that fits a total line width.
func PlotWidthFor(totalWidth int) int {
	w := totalWidth - axisLabelWidth - len([]rune(axisSeparator))
	if w < minPlotWidth {
		return minPlotWidth
	}
	return w
}

// PlotPercent draws values in the 0-100 range as a column chart.
// A non-positive width uses the terminal width.
func PlotPercent(w io.Writer, title string, values []float64, width, height int) error {
	if len(values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	cols := resample(values, width)
	levels := make([]int, len(cols))
	for i, v := range cols {
		levels[i] = clampInt(int(v/100*float64(height*8)+0.5), 0, height*8)
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for row := height - 1; row >= 0; row-- {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%*s%s", axisLabelWidth, axisLabel(row, height), axisSeparator))
		for _, level := range levels {
			fill := clampInt(level-row*8, 0, 8)
			b.WriteRune(eighths[fill])
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%*s%s%s\n", axisLabelWidth, "", axisSeparator, strings.Repeat("─", len(levels)))
	return err
}

func axisLabel(row, height int) string {
	switch row {
	case height - 1:
		return "100%"
	case 0:
		return "0%"
	case (height - 1) / 2:
		if height > 2 {
			return "50%"
		}
	}
	return ""
}

// resample maps values onto at most width columns by averaging buckets.
func resample(values []float64, width int) []float64 {
	if len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
