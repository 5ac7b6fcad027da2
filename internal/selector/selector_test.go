package selector

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/verte-zerg/examforge/internal/model"
)

func makeQuestion(id, subject, category string) model.Question {
	return model.Question{
		ID:        id,
		SubjectID: subject,
		Category:  category,
		Status:    model.StatusActive,
		Options: []model.Option{
			{ID: id + "-a", Text: "a", IsCorrect: true},
			{ID: id + "-b", Text: "b"},
			{ID: id + "-c", Text: "c"},
			{ID: id + "-d", Text: "d"},
		},
	}
}

func catalogOf(n int, subject, category string) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = makeQuestion(fmt.Sprintf("%s-%d", subject, i), subject, category)
	}
	return qs
}

func TestSelectTruncatesToEligible(t *testing.T) {
	qs := catalogOf(12, "math", "1")
	sel := NewWithSource(rand.NewSource(1))
	out, err := sel.Select(qs, Criteria{Category: "1", SubjectID: model.SubjectMixed}, 50)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(out) != 12 {
		t.Fatalf("expected 12 questions, got %d", len(out))
	}
	seen := map[string]struct{}{}
	for _, q := range out {
		if _, ok := seen[q.ID]; ok {
			t.Fatalf("question %s duplicated", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func TestSelectRequestedCount(t *testing.T) {
	qs := catalogOf(20, "math", "1")
	sel := NewWithSource(rand.NewSource(2))
	out, err := sel.Select(qs, Criteria{Category: "1"}, 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(out))
	}
}

func TestSelectEmptySelection(t *testing.T) {
	qs := catalogOf(3, "math", "2")
	sel := NewWithSource(rand.NewSource(3))
	out, err := sel.Select(qs, Criteria{Category: "1"}, 10)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil sequence, got %d items", len(out))
	}
}

func TestSelectInvalidCount(t *testing.T) {
	sel := NewWithSource(rand.NewSource(4))
	if _, err := sel.Select(catalogOf(3, "math", "1"), Criteria{Category: "1"}, 0); !errors.Is(err, ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}

func TestSelectOptionsArePermutation(t *testing.T) {
	qs := catalogOf(8, "math", "1")
	sel := NewWithSource(rand.NewSource(5))
	out, err := sel.Select(qs, Criteria{Category: "1"}, 8)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	source := map[string]model.Question{}
	for _, q := range qs {
		source[q.ID] = q
	}
	for _, q := range out {
		orig := source[q.ID]
		if len(q.Options) != len(orig.Options) {
			t.Fatalf("question %s option count changed", q.ID)
		}
		want := map[string]bool{}
		for _, o := range orig.Options {
			want[o.ID] = o.IsCorrect
		}
		for _, o := range q.Options {
			correct, ok := want[o.ID]
			if !ok {
				t.Fatalf("question %s gained option %s", q.ID, o.ID)
			}
			if correct != o.IsCorrect {
				t.Fatalf("question %s option %s correctness changed", q.ID, o.ID)
			}
			delete(want, o.ID)
		}
	}
}

func TestSelectDoesNotMutateCatalog(t *testing.T) {
	qs := catalogOf(6, "math", "1")
	before := make([][]string, len(qs))
	for i, q := range qs {
		for _, o := range q.Options {
			before[i] = append(before[i], o.ID)
		}
	}
	sel := NewWithSource(rand.NewSource(6))
	for i := 0; i < 20; i++ {
		if _, err := sel.Select(qs, Criteria{Category: "1"}, 6); err != nil {
			t.Fatalf("select: %v", err)
		}
	}
	for i, q := range qs {
		for j, o := range q.Options {
			if before[i][j] != o.ID {
				t.Fatalf("catalog question %s options were reordered", q.ID)
			}
		}
	}
}

func TestSelectShufflesOrder(t *testing.T) {
	qs := catalogOf(30, "math", "1")
	sel := NewWithSource(rand.NewSource(7))
	out, err := sel.Select(qs, Criteria{Category: "1"}, 30)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	ids := make([]string, len(out))
	inOrder := true
	for i, q := range out {
		ids[i] = q.ID
		if q.ID != qs[i].ID {
			inOrder = false
		}
	}
	if inOrder {
		t.Fatalf("expected a shuffled order")
	}
	sort.Strings(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate id %s", ids[i])
		}
	}
}

func TestEligible(t *testing.T) {
	base := makeQuestion("q", "math", "1")
	inactive := base
	inactive.Status = model.StatusInactive
	wildcard := base
	wildcard.Category = model.CategoryAll
	other := base
	other.SubjectID = "eng"

	cases := []struct {
		name string
		q    model.Question
		crit Criteria
		want bool
	}{
		{"active match", base, Criteria{Category: "1"}, true},
		{"inactive", inactive, Criteria{Category: "1"}, false},
		{"category mismatch", base, Criteria{Category: "2"}, false},
		{"wildcard category", wildcard, Criteria{Category: "3"}, true},
		{"explicit subject match", base, Criteria{Category: "1", SubjectID: "math"}, true},
		{"explicit subject mismatch", other, Criteria{Category: "1", SubjectID: "math"}, false},
		{"explicit subject ignores subscription", base, Criteria{Category: "1", SubjectID: "math", Subscriptions: []string{"eng"}}, true},
		{"mixed within subscription", other, Criteria{Category: "1", SubjectID: model.SubjectMixed, Subscriptions: []string{"eng"}}, true},
		{"mixed outside subscription", base, Criteria{Category: "1", Subscriptions: []string{"eng"}}, false},
	}
	for _, tc := range cases {
		if got := Eligible(tc.q, tc.crit); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestLabel(t *testing.T) {
	subjects := []model.Subject{{ID: "math", Name: "Mathematics"}}
	if got := Label(Criteria{SubjectID: "math"}, subjects); got != "Mathematics" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(Criteria{SubjectID: model.SubjectMixed}, subjects); got != "Mixed Practice" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Label(Criteria{Subscriptions: []string{"a", "b"}}, subjects); got != "Mixed (2 subjects)" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestCountEligible(t *testing.T) {
	qs := append(catalogOf(4, "math", "1"), catalogOf(3, "tamil", model.CategoryAll)...)
	qs = append(qs, catalogOf(2, "eng", "2")...)
	inactive := makeQuestion("old", "math", "1")
	inactive.Status = model.StatusInactive
	qs = append(qs, inactive)

	if got := CountEligible(qs, Criteria{Category: "1"}); got != 7 {
		t.Fatalf("expected 7 eligible for category 1, got %d", got)
	}
	if got := CountEligible(qs, Criteria{Category: "1", SubjectID: "math"}); got != 4 {
		t.Fatalf("expected 4 eligible math, got %d", got)
	}
	if got := CountEligible(qs, Criteria{Category: "2", Subscriptions: []string{"eng"}}); got != 2 {
		t.Fatalf("expected 2 subscribed eligible, got %d", got)
	}
}
