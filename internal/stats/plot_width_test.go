package stats

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPlotWidthFor(t *testing.T) {
	total := 80
	expected := total - axisLabelWidth - utf8.RuneCountInString(axisSeparator)
	if got := PlotWidthFor(total); got != expected {
		t.Fatalf("expected width %d, got %d", expected, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestPlotPercentColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotPercent(&buf, "Score", []float64{0, 50, 100}, 10, 4); err != nil {
		t.Fatalf("plot: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Score" {
		t.Fatalf("expected title, got %q", lines[0])
	}
	if lines[1] != "100% │   █" {
		t.Fatalf("unexpected top row %q", lines[1])
	}
	if lines[4] != "  0% │  ██" {
		t.Fatalf("unexpected bottom row %q", lines[4])
	}
	if !strings.HasSuffix(lines[5], "───") {
		t.Fatalf("expected baseline, got %q", lines[5])
	}
}

func TestResampleAveragesBuckets(t *testing.T) {
	out := resample([]float64{10, 20, 30, 40}, 2)
	if len(out) != 2 || out[0] != 15 || out[1] != 35 {
		t.Fatalf("unexpected resample %v", out)
	}
}
