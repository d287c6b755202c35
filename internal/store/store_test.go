package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "typing_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleResult(wpm float64, difficulty string, ts time.Time) model.SessionResult {
	return model.SessionResult{
		WPM:             wpm,
		Accuracy:        95.5,
		DurationSeconds: 42.25,
		PromptLength:    44,
		Difficulty:      difficulty,
		Timestamp:       ts,
	}
}

func TestInsertQueryRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	in := sampleResult(61.25, "medium", time.Time{})
	id, err := st.Insert(ctx, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}
	got, err := st.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	r := got[0]
	if r.ID != id || r.WPM != in.WPM || r.Accuracy != in.Accuracy || r.DurationSeconds != in.DurationSeconds ||
		r.PromptLength != in.PromptLength || r.Difficulty != in.Difficulty {
		t.Fatalf("round trip mismatch: %+v vs %+v", r, in)
	}
	if !r.Timestamp.Equal(fixed) {
		t.Fatalf("expected store-assigned timestamp %v, got %v", fixed, r.Timestamp)
	}
}

func TestInsertIDsIncrease(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	var prev int64
	for i := 0; i < 3; i++ {
		id, err := st.Insert(ctx, sampleResult(float64(40+i), "easy", time.Time{}))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if id <= prev {
			t.Fatalf("ids must increase: %d after %d", id, prev)
		}
		prev = id
	}
}

func TestQueryOrderingAndFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inputs := []model.SessionResult{
		sampleResult(30, "easy", base.Add(2*time.Hour)),
		sampleResult(40, "hard", base),
		sampleResult(50, "easy", base.Add(time.Hour)),
		sampleResult(60, "easy", base.Add(3*time.Hour)),
	}
	for _, in := range inputs {
		if _, err := st.Insert(ctx, in); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	asc, err := st.Query(ctx, Query{Order: Ascending})
	if err != nil {
		t.Fatalf("query asc: %v", err)
	}
	assertWPMs(t, asc, 40, 50, 30, 60)

	desc, err := st.Query(ctx, Query{Order: Descending})
	if err != nil {
		t.Fatalf("query desc: %v", err)
	}
	assertWPMs(t, desc, 60, 30, 50, 40)

	easy, err := st.Query(ctx, Query{Difficulty: "easy"})
	if err != nil {
		t.Fatalf("query easy: %v", err)
	}
	assertWPMs(t, easy, 50, 30, 60)

	since := base.Add(90 * time.Minute)
	recent, err := st.Query(ctx, Query{Since: &since})
	if err != nil {
		t.Fatalf("query since: %v", err)
	}
	assertWPMs(t, recent, 30, 60)

	last, err := st.Query(ctx, Query{Last: 2})
	if err != nil {
		t.Fatalf("query last: %v", err)
	}
	assertWPMs(t, last, 30, 60)

	lastDesc, err := st.Query(ctx, Query{Last: 2, Order: Descending})
	if err != nil {
		t.Fatalf("query last desc: %v", err)
	}
	assertWPMs(t, lastDesc, 60, 30)
}

func assertWPMs(t *testing.T, results []model.StoredResult, want ...float64) {
	t.Helper()
	if len(results) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.WPM != want[i] {
			t.Fatalf("row %d: expected wpm %v, got %v", i, want[i], r.WPM)
		}
	}
}

func TestDeleteByID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	id, err := st.Insert(ctx, sampleResult(45, "easy", time.Time{}))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	found, err := st.DeleteByID(ctx, id)
	if err != nil || !found {
		t.Fatalf("expected delete to find row: found=%v err=%v", found, err)
	}
	found, err = st.DeleteByID(ctx, id)
	if err != nil || found {
		t.Fatalf("expected second delete to miss: found=%v err=%v", found, err)
	}
}

func TestAggregateEmpty(t *testing.T) {
	st := openTestStore(t)
	summary, err := st.Aggregate(context.Background())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary != (model.Summary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
	cats, err := st.AggregateByCategory(context.Background())
	if err != nil {
		t.Fatalf("aggregate by category: %v", err)
	}
	if len(cats) != 0 {
		t.Fatalf("expected no categories, got %v", cats)
	}
}

func TestAggregate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rows := []model.SessionResult{
		{WPM: 30, Accuracy: 90, Difficulty: "easy"},
		{WPM: 50, Accuracy: 100, Difficulty: "easy"},
		{WPM: 70, Accuracy: 80, Difficulty: "hard"},
	}
	for _, r := range rows {
		if _, err := st.Insert(ctx, r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	summary, err := st.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Count != 3 || summary.AvgWPM != 50 || summary.MaxWPM != 70 || summary.AvgAccuracy != 90 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	cats, err := st.AggregateByCategory(ctx)
	if err != nil {
		t.Fatalf("aggregate by category: %v", err)
	}
	easy, ok := cats["easy"]
	if !ok || easy.Count != 2 || easy.AvgWPM != 40 || easy.AvgAccuracy != 95 {
		t.Fatalf("unexpected easy summary: %+v", easy)
	}
	hard, ok := cats["hard"]
	if !ok || hard.Count != 1 || hard.AvgWPM != 70 {
		t.Fatalf("unexpected hard summary: %+v", hard)
	}
}

func TestLegacyRowsAreReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	if _, err := st.db.ExecContext(ctx,
		`INSERT INTO results (wpm, accuracy, test_duration, test_length, difficulty) VALUES (?, ?, ?, ?, ?)`,
		33.5, 88.0, 20.0, 44, "medium"); err != nil {
		t.Fatalf("legacy insert: %v", err)
	}
	if _, err := st.db.ExecContext(ctx,
		`INSERT INTO results (wpm, timestamp) VALUES (?, ?)`, 12.0, "2023-02-03 04:05:06.789"); err != nil {
		t.Fatalf("legacy insert: %v", err)
	}
	got, err := st.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].WPM != 12 || got[0].Difficulty != "" || got[0].Timestamp.Year() != 2023 {
		t.Fatalf("unexpected legacy row: %+v", got[0])
	}
	if got[1].Timestamp.IsZero() {
		t.Fatalf("expected CURRENT_TIMESTAMP default to be parsed")
	}
}

func TestStorageErrorWrapsClosedDB(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = st.Insert(context.Background(), sampleResult(1, "easy", time.Time{}))
	var serr *StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if serr.Op != "insert" {
		t.Fatalf("unexpected op %q", serr.Op)
	}
	if serr.Err == nil {
		t.Fatalf("expected wrapped driver error")
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2024-03-01 12:00:00",
		"2024-03-01 12:00:00.123",
		"2024-03-01T12:00:00Z",
		"2024-03-01T12:00:00.5+00:00",
	}
	for _, raw := range cases {
		ts, err := parseTimestamp(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if ts.Year() != 2024 || ts.Hour() != 12 {
			t.Fatalf("unexpected parse of %q: %v", raw, ts)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for garbage timestamp")
	}
}

func TestUnreadableTimestampKeepsRow(t *testing.T) {
	st := openTestStore(t)
	var logs bytes.Buffer
	st.logger = slog.New(slog.NewTextHandler(&logs, nil))
	ctx := context.Background()
	if _, err := st.Insert(ctx, sampleResult(40, "easy", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := st.db.ExecContext(ctx,
		`INSERT INTO results (wpm, difficulty, timestamp) VALUES (?, ?, ?)`, 50.0, "hard", "03/01/2024"); err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	got, err := st.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both rows, got %d", len(got))
	}
	for _, r := range got {
		if r.WPM == 50 && !r.Timestamp.IsZero() {
			t.Fatalf("expected zero timestamp for unreadable row, got %v", r.Timestamp)
		}
		if r.WPM == 40 && r.Timestamp.IsZero() {
			t.Fatalf("expected valid row to keep its timestamp")
		}
	}
	if !strings.Contains(logs.String(), "03/01/2024") {
		t.Fatalf("expected warning naming the raw timestamp, got %q", logs.String())
	}
}

func TestSinceIncludesLegacyBoundaryRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for _, raw := range []string{"2024-02-29 23:59:59", "2024-03-01 00:00:00", "2024-03-01T00:00:00.5Z"} {
		if _, err := st.db.ExecContext(ctx,
			`INSERT INTO results (wpm, timestamp) VALUES (?, ?)`, 30.0, raw); err != nil {
			t.Fatalf("raw insert: %v", err)
		}
	}
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := st.Query(ctx, Query{Since: &since})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected boundary and later rows, got %d", len(got))
	}
}
