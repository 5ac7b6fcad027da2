// Package main provides the CLI entrypoint for examforge.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/examforge/internal/catalog"
	"github.com/verte-zerg/examforge/internal/config"
	"github.com/verte-zerg/examforge/internal/model"
	"github.com/verte-zerg/examforge/internal/recorder"
	"github.com/verte-zerg/examforge/internal/selector"
	"github.com/verte-zerg/examforge/internal/session"
	"github.com/verte-zerg/examforge/internal/stats"
	"github.com/verte-zerg/examforge/internal/statsui"
	"github.com/verte-zerg/examforge/internal/store"
	"github.com/verte-zerg/examforge/internal/tui"
)

const (
	defaultCategory    = model.CategoryAll
	defaultCount       = 20
	defaultCurveWindow = 5
	closeTimeout       = 5 * time.Second
)

var (
	practiceCategory  string
	practiceSubject   string
	practiceCount     int
	practiceSubscribe []string
	practiceCatalog   string
	practiceResume    bool

	statsSubject     string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "examforge",
		Short:         "TUI exam practice",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&practiceCatalog, "catalog", config.DefaultCatalogPath(), "question catalog (YAML)")
	rootCmd.Flags().StringVar(&practiceCategory, "category", defaultCategory, "exam category (e.g. 1, 2, 3)")
	rootCmd.Flags().StringVar(&practiceSubject, "subject", model.SubjectMixed, "subject id, or mixed")
	rootCmd.Flags().IntVar(&practiceCount, "count", defaultCount, "questions per session")
	rootCmd.Flags().StringSliceVar(&practiceSubscribe, "subscribe", nil, "subject ids used by mixed practice (comma separated)")
	rootCmd.Flags().BoolVar(&practiceResume, "resume", false, "resume the saved unfinished session")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSubjectsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newReviewCmd())
	rootCmd.AddCommand(newReportsCmd())
	rootCmd.AddCommand(newCatalogCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := practiceConfig(cmd)
	if err != nil {
		return err
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

	ctx := context.Background()
	meta, err := sessionMeta(ctx, st, cfg)
	if err != nil {
		return err
	}

	logFile, err := openLog()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	rec := recorder.New(st, meta, recorder.Options{Logf: log.Printf})
	var machine *session.Machine
	if cfg.Resume {
		machine, err = session.Resume(meta.Sequence, meta.Initial, rec)
	} else {
		machine, err = session.New(meta.Sequence, rec)
	}
	if err != nil {
		closeRecorder(rec)
		return fmt.Errorf("failed to start session: %w", err)
	}

	previous, perr := st.ListAttempts(ctx, model.StatsConfig{Subject: meta.Subject})
	if perr != nil {
		logErrf("failed to load previous attempts: %v\n", perr)
	}
	ui := tui.NewModel(machine, tui.Options{Subject: meta.Subject, Previous: previous})
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := program.Run()
	closeRecorder(rec)
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	if failures := rec.Failures(); failures > 0 {
		logErrf("%d writes failed, see %s\n", failures, config.DefaultLogPath())
	}
	out := cmd.OutOrStdout()
	if c, ok := ui.Result(); ok {
		_, err = fmt.Fprintf(out, "%s: %d%% (%d correct, %d incorrect, %d skipped) in %s\nReview with: examforge review\n",
			meta.Subject, c.ScorePercent, c.Correct, c.Incorrect, c.Skipped, stats.FormatDuration(c.TimeTakenSeconds))
		return err
	}
	if machine.State() == session.Exited {
		_, err = fmt.Fprintln(out, "Session saved. Continue with: examforge --resume")
		return err
	}
	return nil
}

// practiceConfig merges flags over the config file and validates the result.
func practiceConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "category", &practiceCategory, fileCfg.Practice.Category)
	applyStringConfig(cmd, "subject", &practiceSubject, fileCfg.Practice.Subject)
	applyIntConfig(cmd, "count", &practiceCount, fileCfg.Practice.Count)
	applyStringSliceConfig(cmd, "subscribe", &practiceSubscribe, fileCfg.Practice.Subscriptions)
	applyStringConfig(cmd, "catalog", &practiceCatalog, fileCfg.Practice.Catalog)

	cfg := model.Config{
		Category:      strings.ToLower(strings.TrimSpace(practiceCategory)),
		Subject:       strings.ToLower(strings.TrimSpace(practiceSubject)),
		Count:         practiceCount,
		Subscriptions: normalizeIDs(practiceSubscribe),
		CatalogPath:   practiceCatalog,
		Resume:        practiceResume,
	}
	if cfg.Subject == "" {
		cfg.Subject = model.SubjectMixed
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// sessionMeta either loads the saved session or selects a fresh sequence.
// A failed selection never touches saved progress.
func sessionMeta(ctx context.Context, st *store.Store, cfg model.Config) (recorder.Meta, error) {
	if cfg.Resume {
		p, err := st.LoadProgress(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return recorder.Meta{}, fmt.Errorf("no saved session to resume")
		}
		if err != nil {
			return recorder.Meta{}, fmt.Errorf("failed to load saved session: %w", err)
		}
		return recorder.Meta{Subject: p.Subject, StartedAt: p.StartedAt, Sequence: p.Sequence, Initial: p.Snapshot}, nil
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return recorder.Meta{}, catalogLoadError(cfg.CatalogPath, err)
	}
	crit := selector.Criteria{Category: cfg.Category, SubjectID: cfg.Subject, Subscriptions: cfg.Subscriptions}
	sequence, err := selector.New().Select(cat.Questions, crit, cfg.Count)
	if errors.Is(err, selector.ErrEmptySelection) {
		return recorder.Meta{}, fmt.Errorf("no questions available for this selection, adjust category, subject or subscriptions (see: examforge subjects)")
	}
	if err != nil {
		return recorder.Meta{}, err
	}
	return recorder.Meta{Subject: selector.Label(crit, cat.Subjects), Sequence: sequence}, nil
}

// openLog routes the standard logger to a file while the TUI owns the terminal.
func openLog() (*os.File, error) {
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := tea.LogToFile(path, "examforge")
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return f, nil
}

func closeRecorder(rec *recorder.Recorder) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		logErrf("failed to flush session data: %v\n", err)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSubject, "subject", "", "subject filter (as shown in history)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print text output instead of the dashboard")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Subject:     statsSubject,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
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

	if statsPlain {
		return printStats(cmd, st, cfg)
	}

	source := func(ctx context.Context, cfg model.StatsConfig) (stats.Report, error) {
		return stats.BuildReport(ctx, st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(source, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printStats(cmd *cobra.Command, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Attempts); err != nil {
		return err
	}
	if len(report.Attempts) == 0 {
		return nil
	}
	if err := stats.RenderZones(out, report.Dashboard.Zones); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	if err := stats.RenderScoreCurve(out, report.Attempts, cfg.CurveWindow, 0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return stats.RenderHistoryTable(out, report.Attempts)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target, value *[]string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), (*value)...)
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# examforge configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# category = %q           # Exam category; "all" practises every category
# subject = %q        # Subject id, or "mixed"
# count = %d               # Questions per session
# subscribe = []           # Subject ids used by mixed practice
# catalog = %q

[stats]
# curve-window = %d         # Moving average window for the score curve
`,
		defaultCategory,
		model.SubjectMixed,
		defaultCount,
		config.DefaultCatalogPath(),
		defaultCurveWindow,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Count < 1 {
		return fmt.Errorf("--count must be >= 1")
	}
	if cfg.Category == "" {
		return fmt.Errorf("--category must not be empty")
	}
	if !cfg.Resume && cfg.CatalogPath == "" {
		return fmt.Errorf("--catalog must not be empty")
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func catalogLoadError(path string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load catalog: %v", err),
		fmt.Sprintf("expected catalog at: %s", path),
		"Set another path with --catalog or in: examforge config",
		"Validate with: examforge catalog check",
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
