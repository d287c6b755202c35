// Package main provides the CLI entrypoint for speedtype.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/verte-zerg/speedtype/internal/config"
	"github.com/verte-zerg/speedtype/internal/export"
	"github.com/verte-zerg/speedtype/internal/logging"
	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/prompt"
	"github.com/verte-zerg/speedtype/internal/session"
	"github.com/verte-zerg/speedtype/internal/stats"
	"github.com/verte-zerg/speedtype/internal/statsui"
	"github.com/verte-zerg/speedtype/internal/store"
	"github.com/verte-zerg/speedtype/internal/telemetry"
	"github.com/verte-zerg/speedtype/internal/tui"
)

const (
	defaultDifficulty  = "medium"
	defaultCurveWindow = 5
	sparklineLength    = 40
)

var (
	practiceDifficulty string
	practiceRandom     int
	practiceCustom     string
	practiceCustomFile string

	dbPath           string
	telemetryEnabled bool

	statsFilter      filterFlags
	statsCurveWindow int

	summaryFilter filterFlags

	historyAsc        bool
	historyLimit      int
	historyDifficulty string
)

// appState holds what the persistent pre-run sets up for every command.
type appState struct {
	fileCfg  config.FileConfig
	logger   *slog.Logger
	recorder *telemetry.Recorder
	closers  []func(context.Context) error
}

var app appState

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	app.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "speedtype",
		Short:             "Terminal typing speed trainer",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setupApp,
		RunE:              runPracticeCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the results database (env "+config.DBEnv+")")
	rootCmd.PersistentFlags().BoolVar(&telemetryEnabled, "telemetry", false, "write traces and metrics to the state directory")

	rootCmd.Flags().StringVar(&practiceDifficulty, "difficulty", defaultDifficulty, "prompt difficulty (easy, medium, hard)")
	rootCmd.Flags().IntVar(&practiceRandom, "random", 0, fmt.Sprintf("practice random characters of this length (%d-%d)", prompt.MinRandomLength, prompt.MaxRandomLength))
	rootCmd.Flags().StringVar(&practiceCustom, "custom", "", "practice the given text")
	rootCmd.Flags().StringVar(&practiceCustomFile, "custom-file", "", "practice text read from a file")
	rootCmd.MarkFlagsMutuallyExclusive("random", "custom", "custom-file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSummaryCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// setupApp loads .env, the config file, logging and optional telemetry.
func setupApp(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.fileCfg = fileCfg

	levelName := ""
	if fileCfg.Log.Level != nil {
		levelName = *fileCfg.Log.Level
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid [log] level: %w", err)
	}
	logger, closer, err := logging.Init(config.StateDir(), level)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		logger = logging.Discard()
	} else {
		app.closers = append(app.closers, func(context.Context) error { return closer.Close() })
	}
	app.logger = logger

	applyBoolConfig(cmd, "telemetry", &telemetryEnabled, fileCfg.Telemetry.Enabled)
	app.recorder = telemetry.NopRecorder()
	if !telemetryEnabled {
		return nil
	}
	shutdown, err := telemetry.Init(cmd.Context(), config.StateDir())
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	app.closers = append(app.closers, shutdown)
	recorder, err := telemetry.NewRecorder(otel.GetMeterProvider().Meter(telemetry.ScopeName))
	if err != nil {
		return fmt.Errorf("failed to create telemetry instruments: %w", err)
	}
	app.recorder = recorder
	logger.Info("telemetry enabled", slog.String("dir", config.StateDir()))
	return nil
}

// close runs cleanups in reverse order of registration.
func (a *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logErrf("shutdown: %v\n", err)
		}
	}
	a.closers = nil
}

func openStore() (*store.Store, error) {
	path := config.ResolveDBPath(dbPath, app.fileCfg)
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if app.logger != nil {
		app.logger.Debug("store opened", slog.String("path", path))
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg := app.fileCfg
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, fileCfg.Practice.Difficulty)
	if !cmd.Flags().Changed("custom") && !cmd.Flags().Changed("custom-file") {
		applyIntConfig(cmd, "random", &practiceRandom, fileCfg.Practice.RandomLength)
	}

	cfg, err := practiceConfig()
	if err != nil {
		return err
	}

	corpus := prompt.DefaultCorpus()
	corpus.Extend(model.DifficultyEasy, fileCfg.Prompts.Easy)
	corpus.Extend(model.DifficultyMedium, fileCfg.Prompts.Medium)
	corpus.Extend(model.DifficultyHard, fileCfg.Prompts.Hard)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	m, err := tui.NewModel(tui.Options{
		Config:   cfg,
		Store:    st,
		Source:   prompt.NewSource(corpus),
		Engine:   session.NewEngine(session.WithLogger(app.logger)),
		Recorder: app.recorder,
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// practiceConfig validates the practice flags into a model config.
func practiceConfig() (model.Config, error) {
	difficulty, err := model.ParseDifficulty(practiceDifficulty)
	if err != nil {
		return model.Config{}, err
	}
	cfg := model.Config{
		Difficulty:   difficulty,
		RandomLength: practiceRandom,
		CustomText:   practiceCustom,
		CustomFile:   practiceCustomFile,
	}
	if cfg.CustomFile != "" {
		text, err := prompt.LoadFile(cfg.CustomFile)
		if err != nil {
			return model.Config{}, fmt.Errorf("failed to read custom file: %w", err)
		}
		cfg.CustomText = text
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.RandomLength != 0 && (cfg.RandomLength < prompt.MinRandomLength || cfg.RandomLength > prompt.MaxRandomLength) {
		return &model.ValidationError{
			Field:  "--random",
			Reason: fmt.Sprintf("must be between %d and %d", prompt.MinRandomLength, prompt.MaxRandomLength),
		}
	}
	if (cfg.CustomFile != "" || cfg.CustomText != "") && strings.TrimSpace(cfg.CustomText) == "" {
		return &model.ValidationError{Field: "custom text", Reason: "must not be empty"}
	}
	return nil
}

// filterFlags are the result filters shared by stats and summary.
type filterFlags struct {
	difficulty string
	since      string
	last       int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.difficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&f.since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.last, "last", 0, "limit to last N sessions")
}

func (f *filterFlags) statsConfig() (model.StatsConfig, error) {
	var cfg model.StatsConfig
	if f.difficulty != "" {
		d, err := model.ParseDifficulty(f.difficulty)
		if err != nil {
			return model.StatsConfig{}, err
		}
		cfg.Difficulty = string(d)
	}
	if f.since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", f.since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if f.last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	cfg.Last = f.last
	return cfg, nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	statsFilter.register(cmd)
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, app.fileCfg.Stats.CurveWindow)
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	cfg, err := statsFilter.statsConfig()
	if err != nil {
		return err
	}
	cfg.CurveWindow = statsCurveWindow

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a stats summary",
		Args:  cobra.NoArgs,
		RunE:  runSummaryCmd,
	}
	summaryFilter.register(cmd)
	return cmd
}

func runSummaryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := summaryFilter.statsConfig()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return printSummary(cmd.OutOrStdout(), report)
}

func printSummary(w io.Writer, report stats.Report) error {
	if err := stats.RenderSummary(w, report.Summary); err != nil {
		return err
	}
	if report.Summary.Count == 0 {
		return nil
	}
	if len(report.Categories) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := stats.RenderCategoryTable(w, report.Categories); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := stats.RenderTrend(w, report); err != nil {
		return err
	}
	if len(report.Results) == 0 {
		return nil
	}
	recent := report.Results[max(0, len(report.Results)-sparklineLength):]
	wpm := lo.Map(recent, func(r model.StoredResult, _ int) float64 { return r.WPM })
	_, err := fmt.Fprintf(w, "Recent WPM: [%s]\n", stats.Sparkline(wpm))
	return err
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().BoolVar(&historyAsc, "asc", false, "oldest first")
	cmd.Flags().IntVar(&historyLimit, "limit", 0, "show only the most recent N sessions")
	cmd.Flags().StringVar(&historyDifficulty, "difficulty", "", "difficulty filter")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	q := store.Query{Order: store.Descending, Last: historyLimit}
	if historyAsc {
		q.Order = store.Ascending
	}
	if historyDifficulty != "" {
		d, err := model.ParseDifficulty(historyDifficulty)
		if err != nil {
			return err
		}
		q.Difficulty = string(d)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	results, err := st.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	return stats.RenderHistory(cmd.OutOrStdout(), results)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete stored sessions by id",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDeleteCmd,
	}
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	var missing []int64
	for _, id := range ids {
		found, err := st.DeleteByID(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to delete result #%d: %w", id, err)
		}
		if !found {
			missing = append(missing, id)
			logErrf("Result #%d not found\n", id)
			continue
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted result #%d\n", id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d of %d results not found", len(missing), len(ids))
	}
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid result id %q", arg)
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export PATH",
		Short: "Export stored sessions to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	path, rows, err := export.ToCSV(cmd.Context(), st, args[0])
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	app.logger.Info("exported results", slog.String("path", path), slog.Int("rows", rows))
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Exported %d results to %s\n", rows, path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		// The config file may be the thing that is broken, so skip loading it.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv()
		},
		RunE: runConfigCmd,
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

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# speedtype configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# difficulty = %q        # easy, medium or hard
# random-length = 100         # Practice random characters (%d-%d) instead of texts

[prompts]
# Extra texts added to the built-in ones for each difficulty.
# easy = ["The cat sat on the mat."]
# medium = []
# hard = []

[stats]
# curve-window = %d            # Moving average window for the progress chart

[store]
# path = "/path/to/typing_test.db"   # Overridden by --db and $%s

[log]
# level = "info"              # debug, info, warn or error

[telemetry]
# enabled = false             # Write traces and metrics next to the log file
`,
		defaultDifficulty,
		prompt.MinRandomLength,
		prompt.MaxRandomLength,
		defaultCurveWindow,
		config.DBEnv,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
