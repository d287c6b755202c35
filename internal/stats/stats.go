// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/verte-zerg/speedtype/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summarize aggregates results in memory. It matches the store's Aggregate.
func Summarize(results []model.StoredResult) model.Summary {
	if len(results) == 0 {
		return model.Summary{}
	}
	count := float64(len(results))
	return model.Summary{
		Count:       len(results),
		AvgWPM:      lo.SumBy(results, func(r model.StoredResult) float64 { return r.WPM }) / count,
		MaxWPM:      lo.MaxBy(results, func(a, b model.StoredResult) bool { return a.WPM > b.WPM }).WPM,
		AvgAccuracy: lo.SumBy(results, func(r model.StoredResult) float64 { return r.Accuracy }) / count,
	}
}

// SummarizeByCategory groups results on their difficulty label.
func SummarizeByCategory(results []model.StoredResult) map[string]model.CategorySummary {
	groups := lo.GroupBy(results, func(r model.StoredResult) string { return r.Difficulty })
	return lo.MapValues(groups, func(rows []model.StoredResult, difficulty string) model.CategorySummary {
		s := Summarize(rows)
		return model.CategorySummary{
			Difficulty:  difficulty,
			Count:       s.Count,
			AvgWPM:      s.AvgWPM,
			AvgAccuracy: s.AvgAccuracy,
		}
	})
}

// SortedCategories orders categories easy, medium, hard, then any other label.
func SortedCategories(cats map[string]model.CategorySummary) []model.CategorySummary {
	rank := func(label string) int {
		for i, d := range model.Difficulties {
			if string(d) == label {
				return i
			}
		}
		return len(model.Difficulties)
	}
	out := lo.Values(cats)
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i].Difficulty), rank(out[j].Difficulty)
		if ri == rj {
			return out[i].Difficulty < out[j].Difficulty
		}
		return ri < rj
	})
	return out
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
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := lo.Min(values), lo.Max(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	top := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(top)))
		b.WriteByte(sparkChars[max(0, min(idx, top))])
	}
	return b.String()
}

// CategoryLabel capitalizes a difficulty label for display.
func CategoryLabel(label string) string {
	if label == "" {
		return "Unknown"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// RenderSummary prints overall statistics.
func RenderSummary(w io.Writer, s model.Summary) error {
	if _, err := fmt.Fprintf(w, "Total Tests: %d\n", s.Count); err != nil {
		return err
	}
	if s.Count == 0 {
		_, err := fmt.Fprintln(w, "No test data available")
		return err
	}
	lines := []string{
		fmt.Sprintf("Average WPM: %.1f", s.AvgWPM),
		fmt.Sprintf("Best WPM: %.1f", s.MaxWPM),
		fmt.Sprintf("Average Accuracy: %.1f%%", s.AvgAccuracy),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCategoryTable prints per-difficulty statistics.
func RenderCategoryTable(w io.Writer, cats []model.CategorySummary) error {
	if len(cats) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "By Difficulty"); err != nil {
		return err
	}
	headers := []string{"Difficulty", "Tests", "Avg WPM", "Avg Acc"}
	rows := lo.Map(cats, func(c model.CategorySummary, _ int) []string {
		return []string{
			CategoryLabel(c.Difficulty),
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f", c.AvgWPM),
			fmt.Sprintf("%.1f%%", c.AvgAccuracy),
		}
	})
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints stored results as a table in the given order.
func RenderHistory(w io.Writer, results []model.StoredResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	headers := []string{"ID", "WPM", "Accuracy", "Duration (s)", "Length", "Difficulty", "Date/Time"}
	rows := lo.Map(results, func(r model.StoredResult, _ int) []string {
		return HistoryRow(r)
	})
	for _, line := range formatTable(headers, rows, map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRow formats one result for tabular display.
func HistoryRow(r model.StoredResult) []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.Local().Format("2006-01-02 15:04:05")
	}
	return []string{
		fmt.Sprintf("%d", r.ID),
		fmt.Sprintf("%.1f", r.WPM),
		fmt.Sprintf("%.1f%%", r.Accuracy),
		fmt.Sprintf("%.1f", r.DurationSeconds),
		fmt.Sprintf("%d", r.PromptLength),
		CategoryLabel(r.Difficulty),
		ts,
	}
}

// RenderTrend prints the fitted trend or the no-trend notice.
func RenderTrend(w io.Writer, report Report) error {
	if !report.HasTrend {
		_, err := fmt.Fprintln(w, "Trend: not enough data")
		return err
	}
	_, err := fmt.Fprintf(w, "Trend: %+.2f WPM/day\n", report.Trend.SlopePerDay())
	return err
}
