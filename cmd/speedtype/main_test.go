package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/speedtype/internal/config"
	"github.com/verte-zerg/speedtype/internal/logging"
	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/store"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv(config.DBEnv, "")
	return dir
}

func seedDB(t *testing.T, path string, wpms ...float64) {
	t.Helper()
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close() }()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, wpm := range wpms {
		_, err := st.Insert(context.Background(), model.SessionResult{
			WPM:             wpm,
			Accuracy:        97.5,
			DurationSeconds: 12.5,
			PromptLength:    40,
			Difficulty:      "medium",
			Timestamp:       base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	app.close()
	slog.SetDefault(logging.Discard())
	return out.String(), err
}

func TestHistoryCommand(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "results.db")
	seedDB(t, db, 40, 55)

	out, err := runCLI(t, "--db", db, "history")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "55.0") || !strings.Contains(lines[2], "40.0") {
		t.Fatalf("expected newest first, got:\n%s", out)
	}

	out, err = runCLI(t, "--db", db, "history", "--asc", "--limit", "1")
	if err != nil {
		t.Fatalf("history --asc: %v", err)
	}
	if strings.Contains(out, "40.0") || !strings.Contains(out, "55.0") {
		t.Fatalf("expected only the latest row, got:\n%s", out)
	}
}

func TestDBFromEnvironment(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "env.db")
	seedDB(t, db, 61)
	t.Setenv(config.DBEnv, db)

	out, err := runCLI(t, "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"Total Tests: 1", "Best WPM: 61.0", "Trend: not enough data", "Recent WPM: ["} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryEmpty(t *testing.T) {
	dir := isolate(t)
	out, err := runCLI(t, "--db", filepath.Join(dir, "empty.db"), "summary")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, "No test data available") || strings.Contains(out, "Trend") {
		t.Fatalf("unexpected empty summary:\n%s", out)
	}
}

func TestDeleteCommand(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "results.db")
	seedDB(t, db, 40, 55)

	out, err := runCLI(t, "--db", db, "delete", "1", "99")
	if err == nil {
		t.Fatalf("expected error for missing id")
	}
	if !strings.Contains(out, "Deleted result #1") {
		t.Fatalf("expected deletion notice, got:\n%s", out)
	}

	st, err := store.Open(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st.Close() }()
	summary, err := st.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Count != 1 {
		t.Fatalf("expected one row left, got %d", summary.Count)
	}

	if _, err := runCLI(t, "--db", db, "delete", "abc"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestExportCommand(t *testing.T) {
	dir := isolate(t)
	db := filepath.Join(dir, "results.db")
	seedDB(t, db, 40, 55)

	out, err := runCLI(t, "--db", db, "export", filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 2 results") {
		t.Fatalf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("expected header and two rows, got %d lines", got)
	}
}

func TestUnknownConfigKeyFails(t *testing.T) {
	dir := isolate(t)
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("[practice]\nwords = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runCLI(t, "--db", filepath.Join(dir, "x.db"), "history"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestDefaultConfigTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Practice.Difficulty != nil || cfg.Store.Path != nil {
		t.Fatalf("template must leave every key commented out")
	}
}

func TestPracticeConfig(t *testing.T) {
	t.Cleanup(func() {
		practiceDifficulty, practiceRandom, practiceCustom, practiceCustomFile = defaultDifficulty, 0, "", ""
	})

	practiceDifficulty, practiceRandom = "HARD", 50
	cfg, err := practiceConfig()
	if err != nil {
		t.Fatalf("practiceConfig: %v", err)
	}
	if cfg.Difficulty != model.DifficultyHard || cfg.RandomLength != 50 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	practiceRandom = 5
	var verr *model.ValidationError
	if _, err := practiceConfig(); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	practiceRandom = 0
	file := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(file, []byte("first line\n\n  second line \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	practiceCustomFile = file
	cfg, err = practiceConfig()
	if err != nil {
		t.Fatalf("practiceConfig: %v", err)
	}
	if cfg.CustomText != "first line second line" {
		t.Fatalf("unexpected custom text %q", cfg.CustomText)
	}

	practiceCustomFile = ""
	practiceDifficulty = "extreme"
	if _, err := practiceConfig(); err == nil {
		t.Fatalf("expected difficulty error")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "#7", "3"})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Fatalf("unexpected ids %v", ids)
	}
	for _, bad := range []string{"0", "-1", "x"} {
		if _, err := parseIDs([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
