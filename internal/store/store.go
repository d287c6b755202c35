// Package store handles SQLite persistence of session results.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/verte-zerg/speedtype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const tracerName = "github.com/verte-zerg/speedtype/internal/store"

// Order selects the timestamp ordering of query results.
type Order int

// Orderings.
const (
	Ascending Order = iota
	Descending
)

// Query filters and orders stored results.
type Query struct {
	Order      Order
	Difficulty string
	Since      *time.Time
	// Last keeps only the most recent N rows; results still follow Order.
	Last int
}

// Store wraps SQLite access for session results.
type Store struct {
	db     *sql.DB
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("open", fmt.Errorf("failed to create db dir: %w", err))
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, storageErr("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	store := &Store{
		db:     db,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
		now:    time.Now,
	}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, storageErr("migrate", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return storageErr("close", s.db.Close())
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			wpm REAL,
			accuracy REAL,
			test_duration REAL,
			test_length INTEGER,
			difficulty TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_timestamp ON results(timestamp);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Insert appends a result and returns its id. A zero timestamp is set to now.
func (s *Store) Insert(ctx context.Context, result model.SessionResult) (id int64, err error) {
	ctx, span := s.startSpan(ctx, "insert", attribute.String("difficulty", result.Difficulty))
	defer func() { endSpan(span, err) }()

	ts := result.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (wpm, accuracy, test_duration, test_length, difficulty, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.WPM,
		result.Accuracy,
		result.DurationSeconds,
		result.PromptLength,
		result.Difficulty,
		formatTimestamp(ts),
	)
	if err != nil {
		return 0, storageErr("insert", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert", err)
	}
	span.SetAttributes(attribute.Int64("result.id", id))
	return id, nil
}

// DeleteByID removes a result and reports whether a row existed.
func (s *Store) DeleteByID(ctx context.Context, id int64) (found bool, err error) {
	ctx, span := s.startSpan(ctx, "delete", attribute.Int64("result.id", id))
	defer func() { endSpan(span, err) }()

	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete", err)
	}
	return n > 0, nil
}

// Query returns results matching q ordered by timestamp.
func (s *Store) Query(ctx context.Context, q Query) (results []model.StoredResult, err error) {
	ctx, span := s.startSpan(ctx, "query")
	defer func() { endSpan(span, err) }()

	clauses := []string{"1=1"}
	args := []any{}
	if q.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, q.Difficulty)
	}
	if q.Since != nil {
		clauses = append(clauses, "julianday(timestamp) >= julianday(?)")
		args = append(args, formatTimestamp(*q.Since))
	}
	// Last N is taken from the newest end, then re-sorted as requested.
	innerOrder := "ASC"
	if q.Last > 0 || q.Order == Descending {
		innerOrder = "DESC"
	}
	limit := ""
	if q.Last > 0 {
		limit = "LIMIT ?"
		args = append(args, q.Last)
	}
	query := fmt.Sprintf(`SELECT id, wpm, accuracy, test_duration, test_length, difficulty, timestamp
		FROM results
		WHERE %s
		ORDER BY timestamp %s, id %s
		%s`, strings.Join(clauses, " AND "), innerOrder, innerOrder, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		r, raw, err := scanResult(rows)
		if err != nil {
			return nil, storageErr("query", err)
		}
		if raw != "" && r.Timestamp.IsZero() {
			s.logger.Warn("unreadable result timestamp",
				slog.Int64("result.id", r.ID), slog.String("timestamp", raw))
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query", err)
	}
	if innerOrder == "DESC" && q.Order == Ascending {
		reverse(results)
	}
	span.SetAttributes(attribute.Int("result.count", len(results)))
	return results, nil
}

// Aggregate summarizes all stored results.
func (s *Store) Aggregate(ctx context.Context) (summary model.Summary, err error) {
	ctx, span := s.startSpan(ctx, "aggregate")
	defer func() { endSpan(span, err) }()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		return model.Summary{}, storageErr("aggregate", err)
	}
	if count == 0 {
		return model.Summary{}, nil
	}
	var avgWPM, maxWPM, avgAcc sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		`SELECT AVG(wpm), MAX(wpm), AVG(accuracy) FROM results`,
	).Scan(&avgWPM, &maxWPM, &avgAcc); err != nil {
		return model.Summary{}, storageErr("aggregate", err)
	}
	return model.Summary{
		Count:       count,
		AvgWPM:      avgWPM.Float64,
		MaxWPM:      maxWPM.Float64,
		AvgAccuracy: avgAcc.Float64,
	}, nil
}

// AggregateByCategory summarizes results grouped by their stored difficulty label.
func (s *Store) AggregateByCategory(ctx context.Context) (out map[string]model.CategorySummary, err error) {
	ctx, span := s.startSpan(ctx, "aggregate_by_category")
	defer func() { endSpan(span, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(difficulty, ''), AVG(wpm), AVG(accuracy), COUNT(*)
		 FROM results
		 GROUP BY difficulty`)
	if err != nil {
		return nil, storageErr("aggregate_by_category", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out = map[string]model.CategorySummary{}
	for rows.Next() {
		var cs model.CategorySummary
		var avgWPM, avgAcc sql.NullFloat64
		if err := rows.Scan(&cs.Difficulty, &avgWPM, &avgAcc, &cs.Count); err != nil {
			return nil, storageErr("aggregate_by_category", err)
		}
		cs.AvgWPM = avgWPM.Float64
		cs.AvgAccuracy = avgAcc.Float64
		out[cs.Difficulty] = cs
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("aggregate_by_category", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanResult reads one row. A timestamp in no known layout leaves Timestamp
// zero and is returned raw.
func scanResult(s scanner) (model.StoredResult, string, error) {
	var (
		r          model.StoredResult
		wpm        sql.NullFloat64
		accuracy   sql.NullFloat64
		duration   sql.NullFloat64
		length     sql.NullInt64
		difficulty sql.NullString
		timestamp  sql.NullString
	)
	if err := s.Scan(&r.ID, &wpm, &accuracy, &duration, &length, &difficulty, &timestamp); err != nil {
		return model.StoredResult{}, "", err
	}
	if ts, err := parseTimestamp(timestamp.String); err == nil {
		r.Timestamp = ts
	}
	r.WPM = wpm.Float64
	r.Accuracy = accuracy.Float64
	r.DurationSeconds = duration.Float64
	r.PromptLength = int(length.Int64)
	r.Difficulty = difficulty.String
	return r, timestamp.String, nil
}

func reverse(results []model.StoredResult) {
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
}
