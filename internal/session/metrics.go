// Package session implements the typing session lifecycle and live scoring.
package session

import (
	"strings"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"
)

// MaxDuration is the hard ceiling for a single session.
const MaxDuration = 300 * time.Second

// WordsTyped counts whitespace-delimited tokens.
func WordsTyped(text string) int {
	return len(strings.Fields(text))
}

// WPM converts a word count and elapsed seconds into words per minute.
func WPM(words int, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(words) / (elapsedSeconds / 60)
}

// Accuracy compares prompt and typed text position by position and divides the
// number of identical runes by the longer of the two lengths. Insertions and
// deletions shift every later position; results recorded by earlier versions
// depend on exactly this behavior.
func Accuracy(prompt, typed string) float64 {
	p := []rune(prompt)
	t := []rune(typed)
	total := max(len(p), len(t))
	if total == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < min(len(p), len(t)); i++ {
		if p[i] == t[i] {
			correct++
		}
	}
	return 100 * float64(correct) / float64(total)
}

// Progress returns the typed share of the prompt, clamped to 100.
func Progress(prompt, typed string) float64 {
	promptLen := runeLen(prompt)
	if promptLen == 0 {
		return 0
	}
	pct := 100 * float64(runeLen(typed)) / float64(promptLen)
	if pct > 100 {
		return 100
	}
	return pct
}

// Compute derives live metrics for typed text against a prompt.
func Compute(prompt, typed string, elapsed time.Duration) model.LiveMetrics {
	seconds := elapsed.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	return model.LiveMetrics{
		WPM:             WPM(WordsTyped(typed), seconds),
		Accuracy:        Accuracy(prompt, typed),
		ProgressPercent: Progress(prompt, typed),
		ElapsedSeconds:  seconds,
	}
}

func runeLen(s string) int {
	return len([]rune(s))
}
