// Package export writes stored results to CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/store"
)

// Header is the first CSV row.
var Header = []string{"ID", "WPM", "Accuracy", "Duration (s)", "Text Length", "Difficulty", "Timestamp"}

const timestampLayout = "2006-01-02 15:04:05"

// Source lists results for export.
type Source interface {
	Query(ctx context.Context, q store.Query) ([]model.StoredResult, error)
}

// ToCSV writes every stored result in ascending timestamp order to path. A
// path without an extension gets ".csv". It returns the written path and the
// number of data rows. A failed export leaves no partial file behind.
func ToCSV(ctx context.Context, src Source, path string) (string, int, error) {
	if filepath.Ext(path) == "" {
		path += ".csv"
	}
	results, err := src.Query(ctx, store.Query{Order: store.Ascending})
	if err != nil {
		return "", 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if committed {
			return
		}
		if cerr := tmp.Close(); cerr != nil {
			// Best-effort close of the abandoned temp file.
			_ = cerr
		}
		if rerr := os.Remove(tmpName); rerr != nil {
			// Best-effort cleanup.
			_ = rerr
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(Header); err != nil {
		return "", 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range results {
		if err := w.Write(Row(r)); err != nil {
			return "", 0, fmt.Errorf("failed to write csv row %d: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close temp file: %w", err)
	}
	committed = true
	if err := os.Rename(tmpName, path); err != nil {
		if rerr := os.Remove(tmpName); rerr != nil {
			// Best-effort cleanup.
			_ = rerr
		}
		return "", 0, fmt.Errorf("failed to move export into place: %w", err)
	}
	return path, len(results), nil
}

// Row formats one result as CSV fields.
func Row(r model.StoredResult) []string {
	ts := ""
	if !r.Timestamp.IsZero() {
		ts = r.Timestamp.UTC().Format(timestampLayout)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		strconv.FormatFloat(r.WPM, 'f', -1, 64),
		strconv.FormatFloat(r.Accuracy, 'f', -1, 64),
		strconv.FormatFloat(r.DurationSeconds, 'f', -1, 64),
		strconv.Itoa(r.PromptLength),
		r.Difficulty,
		ts,
	}
}
