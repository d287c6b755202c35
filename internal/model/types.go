// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty labels a prompt category.
type Difficulty string

// Supported difficulty labels.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the selectable difficulties in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty validates a difficulty label.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Difficulties {
		if d == known {
			return d, nil
		}
	}
	return "", &ValidationError{
		Field:  "difficulty",
		Reason: fmt.Sprintf("unknown difficulty %q (use easy, medium or hard)", s),
	}
}

// PromptKind records where a prompt came from.
type PromptKind string

// Prompt kinds.
const (
	PromptCorpus PromptKind = "corpus"
	PromptRandom PromptKind = "random"
	PromptCustom PromptKind = "custom"
)

// Prompt is the text a user must reproduce.
type Prompt struct {
	Text       string
	Difficulty Difficulty
	Kind       PromptKind
}

// Config defines practice settings.
type Config struct {
	Difficulty   Difficulty
	RandomLength int
	CustomText   string
	CustomFile   string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Difficulty  string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// LiveMetrics is recomputed on every text change of a running session.
type LiveMetrics struct {
	WPM             float64
	Accuracy        float64
	ProgressPercent float64
	ElapsedSeconds  float64
}

// SessionResult captures a completed typing session.
type SessionResult struct {
	WPM             float64
	Accuracy        float64
	DurationSeconds float64
	PromptLength    int
	Difficulty      string
	Timestamp       time.Time
}

// StoredResult is a SessionResult with its store-assigned id.
type StoredResult struct {
	ID int64
	SessionResult
}

// Summary aggregates all stored results.
type Summary struct {
	Count       int
	AvgWPM      float64
	MaxWPM      float64
	AvgAccuracy float64
}

// CategorySummary aggregates stored results sharing a difficulty label.
type CategorySummary struct {
	Difficulty  string
	Count       int
	AvgWPM      float64
	AvgAccuracy float64
}
