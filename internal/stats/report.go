package stats

import (
	"context"
	"errors"

	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/store"
)

// Reader is the slice of the store that reports need.
type Reader interface {
	Query(ctx context.Context, q store.Query) ([]model.StoredResult, error)
	Aggregate(ctx context.Context) (model.Summary, error)
	AggregateByCategory(ctx context.Context) (map[string]model.CategorySummary, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Summary    model.Summary
	Categories []model.CategorySummary
	// Results are the filtered sessions in ascending timestamp order.
	Results  []model.StoredResult
	Trend    Trend
	HasTrend bool
}

// Filtered reports whether cfg narrows the result set.
func Filtered(cfg model.StatsConfig) bool {
	return cfg.Difficulty != "" || cfg.Since != nil || cfg.Last > 0
}

// BuildReport loads and prepares data for stats rendering. Without filters
// the summaries come from the store; with filters they are computed over the
// matching results.
func BuildReport(ctx context.Context, r Reader, cfg model.StatsConfig) (Report, error) {
	results, err := r.Query(ctx, store.Query{
		Order:      store.Ascending,
		Difficulty: cfg.Difficulty,
		Since:      cfg.Since,
		Last:       cfg.Last,
	})
	if err != nil {
		return Report{}, err
	}

	report := Report{Results: results}
	if Filtered(cfg) {
		report.Summary = Summarize(results)
		report.Categories = SortedCategories(SummarizeByCategory(results))
	} else {
		if report.Summary, err = r.Aggregate(ctx); err != nil {
			return Report{}, err
		}
		cats, err := r.AggregateByCategory(ctx)
		if err != nil {
			return Report{}, err
		}
		report.Categories = SortedCategories(cats)
	}

	trend, err := TrendFromResults(results)
	switch {
	case err == nil:
		report.Trend, report.HasTrend = trend, true
	case !errors.Is(err, ErrNoTrend):
		return Report{}, err
	}
	return report, nil
}
