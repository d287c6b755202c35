package stats

import (
	"errors"

	"github.com/verte-zerg/speedtype/internal/model"
)

// ErrNoTrend signals that a trend line cannot be fitted. It is not a failure.
var ErrNoTrend = errors.New("no trend available")

const secondsPerDay = 86400

// Point is one observation for regression.
type Point struct {
	X float64
	Y float64
}

// Trend is a least-squares line y = Slope*x + Intercept.
type Trend struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at x.
func (t Trend) At(x float64) float64 {
	return t.Slope*x + t.Intercept
}

// SlopePerDay converts a per-second slope into WPM change per day.
func (t Trend) SlopePerDay() float64 {
	return t.Slope * secondsPerDay
}

// LinearTrend fits an ordinary least-squares line through points. It returns
// ErrNoTrend for fewer than two points or when every x is identical.
//
// Sums run over x shifted by the first x; the intercept is mapped back.
func LinearTrend(points []Point) (Trend, error) {
	if len(points) < 2 {
		return Trend{}, ErrNoTrend
	}
	x0 := points[0].X
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.X - x0
		sumX += x
		sumY += p.Y
		sumXY += x * p.Y
		sumXX += x * x
	}
	n := float64(len(points))
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return Trend{}, ErrNoTrend
	}
	slope := (n*sumXY - sumX*sumY) / den
	shifted := (sumY - slope*sumX) / n
	return Trend{
		Slope:     slope,
		Intercept: shifted - slope*x0,
	}, nil
}

// EpochSeconds converts a result timestamp into the regression x value.
func EpochSeconds(r model.StoredResult) float64 {
	return float64(r.Timestamp.UnixNano()) / 1e9
}

// TrendFromResults fits WPM against time for ascending results. Results
// without a timestamp are skipped.
func TrendFromResults(results []model.StoredResult) (Trend, error) {
	points := make([]Point, 0, len(results))
	for _, r := range results {
		if r.Timestamp.IsZero() {
			continue
		}
		points = append(points, Point{X: EpochSeconds(r), Y: r.WPM})
	}
	return LinearTrend(points)
}
