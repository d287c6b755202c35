package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"
)

func result(id int64, wpm, acc float64, difficulty string, ts time.Time) model.StoredResult {
	return model.StoredResult{
		ID: id,
		SessionResult: model.SessionResult{
			WPM:             wpm,
			Accuracy:        acc,
			DurationSeconds: 30,
			PromptLength:    44,
			Difficulty:      difficulty,
			Timestamp:       ts,
		},
	}
}

func TestSummarize(t *testing.T) {
	if got := Summarize(nil); got != (model.Summary{}) {
		t.Fatalf("expected zero summary, got %+v", got)
	}
	now := time.Now()
	got := Summarize([]model.StoredResult{
		result(1, 30, 90, "easy", now),
		result(2, 50, 100, "easy", now),
		result(3, 70, 80, "hard", now),
	})
	if got.Count != 3 || got.AvgWPM != 50 || got.MaxWPM != 70 || got.AvgAccuracy != 90 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestSummarizeByCategoryAndSort(t *testing.T) {
	now := time.Now()
	cats := SummarizeByCategory([]model.StoredResult{
		result(1, 30, 90, "hard", now),
		result(2, 50, 100, "easy", now),
		result(3, 70, 80, "easy", now),
		result(4, 20, 50, "", now),
	})
	sorted := SortedCategories(cats)
	if len(sorted) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(sorted))
	}
	if sorted[0].Difficulty != "easy" || sorted[1].Difficulty != "hard" || sorted[2].Difficulty != "" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sorted[0].Count != 2 || sorted[0].AvgWPM != 60 || sorted[0].AvgAccuracy != 90 {
		t.Fatalf("unexpected easy summary: %+v", sorted[0])
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	same := MovingAverage([]float64{1, 2}, 1)
	if same[0] != 1 || same[1] != 2 {
		t.Fatalf("window 1 should copy values, got %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	got := Sparkline([]float64{0, 5, 10})
	if len(got) != 3 || got[0] != ' ' || got[2] != '@' {
		t.Fatalf("unexpected sparkline %q", got)
	}
	flat := Sparkline([]float64{3, 3})
	if flat != "++" {
		t.Fatalf("unexpected flat sparkline %q", flat)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, model.Summary{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No test data available") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSummary(&buf, model.Summary{Count: 2, AvgWPM: 45.25, MaxWPM: 60, AvgAccuracy: 97.5})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Total Tests: 2", "Average WPM: 45.2", "Best WPM: 60.0", "Average Accuracy: 97.5%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	var buf bytes.Buffer
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	if err := RenderHistory(&buf, []model.StoredResult{result(7, 55.55, 98, "medium", ts)}); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	for _, want := range []string{"7", "55.5", "98.0%", "Medium"} {
		if !strings.Contains(lines[1], want) {
			t.Fatalf("expected %q in row %q", want, lines[1])
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if CategoryLabel("hard") != "Hard" || CategoryLabel("") != "Unknown" {
		t.Fatalf("unexpected labels")
	}
}
