package stats

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLinearTrendTwoPoints(t *testing.T) {
	trend, err := LinearTrend([]Point{{X: 0, Y: 30}, {X: 60, Y: 40}})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if !almostEqual(trend.Slope, 1.0/6) || !almostEqual(trend.Intercept, 30) {
		t.Fatalf("unexpected trend %+v", trend)
	}
	if !almostEqual(trend.At(120), 50) {
		t.Fatalf("expected 50 at x=120, got %v", trend.At(120))
	}
}

func TestLinearTrendNoTrend(t *testing.T) {
	cases := map[string][]Point{
		"empty":     nil,
		"single":    {{X: 10, Y: 40}},
		"identical": {{X: 5, Y: 40}, {X: 5, Y: 60}, {X: 5, Y: 50}},
	}
	for name, points := range cases {
		if _, err := LinearTrend(points); !errors.Is(err, ErrNoTrend) {
			t.Fatalf("%s: expected ErrNoTrend, got %v", name, err)
		}
	}
}

func TestLinearTrendEpochScale(t *testing.T) {
	base := float64(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Unix())
	points := []Point{
		{X: base, Y: 40},
		{X: base + 86400, Y: 42},
		{X: base + 2*86400, Y: 44},
	}
	trend, err := LinearTrend(points)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if math.Abs(trend.SlopePerDay()-2) > 1e-6 {
		t.Fatalf("expected 2 WPM/day, got %v", trend.SlopePerDay())
	}
	if math.Abs(trend.At(base)-40) > 1e-4 {
		t.Fatalf("expected 40 at first point, got %v", trend.At(base))
	}
}

func TestTrendFromResults(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	results := []model.StoredResult{
		{SessionResult: model.SessionResult{WPM: 30, Timestamp: base}},
		{SessionResult: model.SessionResult{WPM: 40, Timestamp: base.Add(time.Minute)}},
	}
	trend, err := TrendFromResults(results)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if !almostEqual(trend.Slope, 1.0/6) {
		t.Fatalf("expected slope 1/6, got %v", trend.Slope)
	}
}

func TestTrendFromResultsSkipsMissingTimestamps(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	results := []model.StoredResult{
		{SessionResult: model.SessionResult{WPM: 99}},
		{SessionResult: model.SessionResult{WPM: 30, Timestamp: base}},
		{SessionResult: model.SessionResult{WPM: 40, Timestamp: base.Add(time.Minute)}},
	}
	trend, err := TrendFromResults(results)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if !almostEqual(trend.Slope, 1.0/6) {
		t.Fatalf("expected slope 1/6, got %v", trend.Slope)
	}
	if _, err := TrendFromResults(results[:2]); !errors.Is(err, ErrNoTrend) {
		t.Fatalf("expected ErrNoTrend with one dated result, got %v", err)
	}
}
