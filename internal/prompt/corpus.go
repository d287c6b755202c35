// Package prompt selects and builds the texts users type.
package prompt

import (
	"strings"

	"github.com/samber/lo"

	"github.com/verte-zerg/speedtype/internal/model"
)

// Corpus maps a difficulty to its candidate texts.
type Corpus map[model.Difficulty][]string

// DefaultCorpus returns the built-in texts.
func DefaultCorpus() Corpus {
	return Corpus{
		model.DifficultyEasy: {
			"The quick brown fox jumps over the lazy dog.",
			"Programming is fun with Python and Tkinter.",
			"Practice makes perfect when learning to type quickly.",
		},
		model.DifficultyMedium: {
			"The Python interpreter is a virtual machine that executes bytecode.",
			"Computer science is no more about computers than astronomy is about telescopes.",
			"The best way to predict the future is to invent it.",
		},
		model.DifficultyHard: {
			"The Zen of Python states: Explicit is better than implicit, simple is better than complex.",
			"In computer science, a hash table is a data structure that implements an associative array.",
			"Asymptotic analysis provides estimates of time and space complexity for algorithms.",
		},
	}
}

// Extend appends extra candidates, skipping blanks and duplicates.
func (c Corpus) Extend(d model.Difficulty, texts []string) {
	cleaned := lo.FilterMap(texts, func(text string, _ int) (string, bool) {
		text = strings.TrimSpace(text)
		return text, text != ""
	})
	c[d] = lo.Uniq(append(c[d], cleaned...))
}

// Candidates returns the texts for a difficulty.
func (c Corpus) Candidates(d model.Difficulty) []string {
	return c[d]
}
