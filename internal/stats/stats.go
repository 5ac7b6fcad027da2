// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/examforge/internal/model"
)

const sparkChars = " .:-=+*#%@"

// AttemptMetrics computes answer accuracy and pace for one attempt.
// Accuracy ignores skipped questions.
func AttemptMetrics(a model.Attempt) (accuracy, secondsPerQuestion float64) {
	answered := a.Correct + a.Incorrect
	if answered > 0 {
		accuracy = float64(a.Correct) / float64(answered)
	}
	if total := a.Total(); total > 0 {
		secondsPerQuestion = float64(a.TimeTakenSeconds) / float64(total)
	}
	return accuracy, secondsPerQuestion
}

// Zone is the average score of one subject.
type Zone struct {
	Subject  string
	Attempts int
	AvgScore float64
}

// Dashboard summarizes attempt history.
type Dashboard struct {
	TotalTests         int
	AverageScore       float64
	GlobalAccuracy     float64
	QuestionsAttempted int
	TotalSeconds       int
	BestSubject        string
	Zones              []Zone
}

// BuildDashboard aggregates attempts into dashboard figures.
func BuildDashboard(attempts []model.Attempt) Dashboard {
	var d Dashboard
	if len(attempts) == 0 {
		return d
	}
	var scoreSum float64
	var correct, answered int
	bySubject := map[string]*Zone{}
	for _, a := range attempts {
		scoreSum += float64(a.ScorePercent)
		correct += a.Correct
		answered += a.Correct + a.Incorrect
		d.QuestionsAttempted += a.Correct + a.Incorrect
		d.TotalSeconds += a.TimeTakenSeconds
		z, ok := bySubject[a.Subject]
		if !ok {
			z = &Zone{Subject: a.Subject}
			bySubject[a.Subject] = z
		}
		z.AvgScore += float64(a.ScorePercent)
		z.Attempts++
	}
	d.TotalTests = len(attempts)
	d.AverageScore = scoreSum / float64(len(attempts))
	if answered > 0 {
		d.GlobalAccuracy = float64(correct) / float64(answered)
	}
	d.Zones = make([]Zone, 0, len(bySubject))
	for _, z := range bySubject {
		z.AvgScore /= float64(z.Attempts)
		d.Zones = append(d.Zones, *z)
	}
	sort.Slice(d.Zones, func(i, j int) bool {
		if d.Zones[i].AvgScore == d.Zones[j].AvgScore {
			return d.Zones[i].Subject < d.Zones[j].Subject
		}
		return d.Zones[i].AvgScore > d.Zones[j].AvgScore
	})
	d.BestSubject = d.Zones[0].Subject
	return d
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := i + 1
		if i >= window {
			sum -= values[i-window]
			den = window
		}
		out[i] = sum / float64(den)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		b.WriteByte(sparkChars[clampInt(idx, 0, last)])
	}
	return b.String()
}

// Scores returns the score percentages of attempts in order.
func Scores(attempts []model.Attempt) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		out[i] = float64(a.ScorePercent)
	}
	return out
}

// RenderSummary prints a summary block for attempts.
func RenderSummary(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	d := BuildDashboard(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", d.TotalTests),
		fmt.Sprintf("Avg Score: %.1f%%", d.AverageScore),
		fmt.Sprintf("Accuracy: %.1f%%", d.GlobalAccuracy*100),
		fmt.Sprintf("Questions Attempted: %d", d.QuestionsAttempted),
		fmt.Sprintf("Time Spent: %s", FormatDuration(d.TotalSeconds)),
		fmt.Sprintf("Best Subject: %s", d.BestSubject),
		fmt.Sprintf("Trend: %s", Sparkline(Scores(attempts))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistoryTable prints one row per attempt, newest first.
func RenderHistoryTable(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	headers := []string{"Date", "Subject", "Score", "Correct", "Incorrect", "Skipped", "Time", "ID"}
	rows := make([][]string, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		rows = append(rows, HistoryRow(attempts[i]))
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRow formats one attempt as table cells.
func HistoryRow(a model.Attempt) []string {
	return []string{
		a.EndedAt.Local().Format("2006-01-02 15:04"),
		a.Subject,
		fmt.Sprintf("%d%%", a.ScorePercent),
		fmt.Sprintf("%d", a.Correct),
		fmt.Sprintf("%d", a.Incorrect),
		fmt.Sprintf("%d", a.Skipped),
		FormatDuration(a.TimeTakenSeconds),
		shortID(a.ID),
	}
}

// RenderZones prints subjects from weakest to strongest.
func RenderZones(w io.Writer, zones []Zone) error {
	if len(zones) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	headers := []string{"Subject", "Avg Score", "Tests"}
	rows := make([][]string, 0, len(zones))
	for _, z := range WeakZones(zones, 0) {
		rows = append(rows, []string{z.Subject, fmt.Sprintf("%.1f%%", z.AvgScore), fmt.Sprintf("%d", z.Attempts)})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderScoreCurve plots the moving average of scores.
func RenderScoreCurve(w io.Writer, attempts []model.Attempt, window, width, height int) error {
	if len(attempts) == 0 {
		return nil
	}
	title := fmt.Sprintf("Score (moving average of %d)", window)
	return PlotPercent(w, title, MovingAverage(Scores(attempts), window), width, height)
}

// FormatDuration renders seconds as mm:ss, or h:mm:ss past an hour.
func FormatDuration(secs int) string {
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func minMax(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	return minVal, maxVal
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
