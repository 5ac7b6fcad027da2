package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Subject", "Score", "Tests"}
	rows := [][]string{
		{"Tamil", "50%", "2"},
		{"English", "100%", "10"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Subject  Score  Tests" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Tamil      50%      2" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "English   100%     10" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Subject", "Score"}, [][]string{{"தமிழ்", "1"}, {"数学", "2"}}, nil)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[2] != "数学     2" {
		t.Fatalf("expected wide runes measured by display width, got %q", lines[2])
	}
}
