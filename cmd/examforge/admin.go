package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/examforge/internal/catalog"
	"github.com/verte-zerg/examforge/internal/config"
	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/scoring"
	"github.com/verte-zerg/examforge/internal/selector"
	"github.com/verte-zerg/examforge/internal/stats"
	"github.com/verte-zerg/examforge/internal/store"
)

var (
	reviewID      string
	reportsStatus string
	reportsSolve  string
)

func newSubjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List subjects with available question counts",
		Args:  cobra.NoArgs,
		RunE:  runSubjectsCmd,
	}
	cmd.Flags().StringVar(&practiceCategory, "category", defaultCategory, "exam category (e.g. 1, 2, 3)")
	cmd.Flags().StringSliceVar(&practiceSubscribe, "subscribe", nil, "subscribed subject ids (marked with *)")
	return cmd
}

func runSubjectsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "category", &practiceCategory, fileCfg.Practice.Category)
	applyStringSliceConfig(cmd, "subscribe", &practiceSubscribe, fileCfg.Practice.Subscriptions)
	applyStringConfig(cmd, "catalog", &practiceCatalog, fileCfg.Practice.Catalog)

	cat, err := catalog.Load(practiceCatalog)
	if err != nil {
		return catalogLoadError(practiceCatalog, err)
	}
	category := strings.ToLower(strings.TrimSpace(practiceCategory))
	return writeSubjects(cmd.OutOrStdout(), cat, category, normalizeIDs(practiceSubscribe))
}

func writeSubjects(w io.Writer, cat model.Catalog, category string, subscriptions []string) error {
	ids := subjectIDs(cat)
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "No subjects found.")
		return err
	}
	subscribed := make(map[string]bool, len(subscriptions))
	for _, id := range subscriptions {
		subscribed[id] = true
	}
	for _, id := range ids {
		count := selector.CountEligible(cat.Questions, selector.Criteria{Category: category, SubjectID: id})
		mark := " "
		if subscribed[id] {
			mark = "*"
		}
		name := catalog.SubjectName(cat.Subjects, id)
		if _, err := fmt.Fprintf(w, "%s %-16s %-28s %4d\n", mark, id, name, count); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	mixed := selector.CountEligible(cat.Questions, selector.Criteria{Category: category, Subscriptions: subscriptions})
	_, err := fmt.Fprintf(w, "  %-16s %-28s %4d\n", model.SubjectMixed, selector.Label(selector.Criteria{Subscriptions: subscriptions}, cat.Subjects), mixed)
	return err
}

// subjectIDs lists declared subjects first, then subjects only seen on questions.
func subjectIDs(cat model.Catalog) []string {
	seen := map[string]bool{}
	var ids []string
	for _, s := range cat.Subjects {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	var extra []string
	for _, q := range cat.Questions {
		if q.SubjectID != "" && !seen[q.SubjectID] {
			seen[q.SubjectID] = true
			extra = append(extra, q.SubjectID)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Print the question review of a stored attempt",
		Args:  cobra.NoArgs,
		RunE:  runReviewCmd,
	}
	cmd.Flags().StringVar(&reviewID, "id", "", "attempt id or prefix (default: latest)")
	return cmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	attempt, err := findAttempt(ctx, st, strings.TrimSpace(reviewID))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no attempt found")
	}
	if err != nil {
		return err
	}
	return writeReview(cmd.OutOrStdout(), attempt)
}

func findAttempt(ctx context.Context, st *store.Store, id string) (model.Attempt, error) {
	if id == "" {
		return st.LastAttempt(ctx)
	}
	attempts, err := st.ListAttempts(ctx, model.StatsConfig{})
	if err != nil {
		return model.Attempt{}, err
	}
	ids := make([]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	full, err := matchID(id, ids)
	if err != nil {
		return model.Attempt{}, err
	}
	return st.GetAttempt(ctx, full)
}

func writeReview(w io.Writer, a model.Attempt) error {
	header := fmt.Sprintf("%s  %s  %d%%  (%d correct, %d incorrect, %d skipped)  %s",
		a.EndedAt.Local().Format("2006-01-02 15:04"), a.Subject, a.ScorePercent,
		a.Correct, a.Incorrect, a.Skipped, stats.FormatDuration(a.TimeTakenSeconds))
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	for _, e := range scoring.Classify(a.Sequence, a.Answers) {
		q := a.Sequence[e.Position]
		lines := []string{"", fmt.Sprintf("Q%d [%s] %s", e.Position+1, e.Status, q.Text)}
		for _, opt := range q.Options {
			marker := " "
			switch {
			case opt.ID == e.CorrectOptionID:
				marker = "+"
			case e.HasChoice && opt.ID == e.ChosenOptionID:
				marker = "x"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", marker, opt.Text))
		}
		if q.Explanation != "" {
			lines = append(lines, "  "+q.Explanation)
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List or resolve question issue reports",
		Args:  cobra.NoArgs,
		RunE:  runReportsCmd,
	}
	cmd.Flags().StringVar(&reportsStatus, "status", model.IssuePending, "filter by status: pending, resolved or all")
	cmd.Flags().StringVar(&reportsSolve, "resolve", "", "mark the report with this id or prefix resolved")
	return cmd
}

func runReportsCmd(cmd *cobra.Command, _ []string) error {
	status := strings.ToLower(strings.TrimSpace(reportsStatus))
	switch status {
	case model.IssuePending, model.IssueResolved:
	case "all":
		status = ""
	default:
		return fmt.Errorf("--status must be pending, resolved or all")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if prefix := strings.TrimSpace(reportsSolve); prefix != "" {
		issues, err := st.ListIssues(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		ids := make([]string, len(issues))
		for i, is := range issues {
			ids[i] = is.ID
		}
		id, err := matchID(prefix, ids)
		if err != nil {
			return fmt.Errorf("report %s: %w", prefix, err)
		}
		if err := st.ResolveIssue(ctx, id); err != nil {
			return fmt.Errorf("failed to resolve report: %w", err)
		}
		_, err = fmt.Fprintf(out, "Resolved %s\n", id)
		return err
	}

	issues, err := st.ListIssues(ctx, status)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	return writeIssues(out, issues)
}

func writeIssues(w io.Writer, issues []model.StoredIssue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "No reports found.")
		return err
	}
	for _, is := range issues {
		id := is.ID
		if len(id) > 8 {
			id = id[:8]
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %-8s  %s\n    %s\n    > %s\n",
			id, is.CreatedAt.Local().Format("2006-01-02 15:04"), is.Status, is.QuestionID, is.QuestionText, is.Description); err != nil {
			return err
		}
	}
	return nil
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the question catalog",
		Args:  cobra.NoArgs,
		RunE:  runCatalogCheckCmd,
	})
	return cmd
}

func runCatalogCheckCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "catalog", &practiceCatalog, fileCfg.Practice.Catalog)
	cat, err := catalog.Load(practiceCatalog)
	if err != nil {
		return catalogLoadError(practiceCatalog, err)
	}
	findings := catalog.Check(cat)
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%d subjects, %d questions\n", len(cat.Subjects), len(cat.Questions)); err != nil {
		return err
	}
	if len(findings) == 0 {
		_, err := fmt.Fprintln(out, "No problems found.")
		return err
	}
	for _, f := range findings {
		logErrln(f.String())
	}
	return fmt.Errorf("%d problems found", len(findings))
}

// matchID resolves an id or unique id prefix.
func matchID(prefix string, ids []string) (string, error) {
	var match string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("id prefix %q is ambiguous", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", store.ErrNotFound
	}
	return match, nil
}
