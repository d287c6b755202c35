package prompt

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"
)

// Bounds for random-character prompts.
const (
	MinRandomLength = 10
	MaxRandomLength = 1000
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~ "

// Source produces prompts from the corpus or from user input.
type Source struct {
	corpus Corpus
	rnd    *rand.Rand
}

// NewSource returns a Source seeded with the current time.
func NewSource(corpus Corpus) *Source {
	return NewSourceWithRand(corpus, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSourceWithRand returns a Source using rnd for every random choice.
func NewSourceWithRand(corpus Corpus, rnd *rand.Rand) *Source {
	if corpus == nil {
		corpus = DefaultCorpus()
	}
	return &Source{corpus: corpus, rnd: rnd}
}

// Pick selects a corpus text for the difficulty uniformly at random.
func (s *Source) Pick(d model.Difficulty) (model.Prompt, error) {
	candidates := s.corpus.Candidates(d)
	if len(candidates) == 0 {
		return model.Prompt{}, &model.ValidationError{
			Field:  "difficulty",
			Reason: fmt.Sprintf("no prompts available for %q", d),
		}
	}
	return model.Prompt{
		Text:       candidates[s.rnd.Intn(len(candidates))],
		Difficulty: d,
		Kind:       model.PromptCorpus,
	}, nil
}

// Random builds a prompt of length random characters. The prompt keeps the
// difficulty label that is active when it is requested.
func (s *Source) Random(length int, active model.Difficulty) (model.Prompt, error) {
	if length < MinRandomLength || length > MaxRandomLength {
		return model.Prompt{}, &model.ValidationError{
			Field:  "random length",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinRandomLength, MaxRandomLength, length),
		}
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(randomAlphabet[s.rnd.Intn(len(randomAlphabet))])
	}
	return model.Prompt{Text: b.String(), Difficulty: active, Kind: model.PromptRandom}, nil
}

// Custom wraps user-supplied text. Surrounding whitespace is dropped.
func (s *Source) Custom(text string, active model.Difficulty) (model.Prompt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Prompt{}, &model.ValidationError{Field: "custom text", Reason: "must not be empty"}
	}
	return model.Prompt{Text: text, Difficulty: active, Kind: model.PromptCustom}, nil
}
