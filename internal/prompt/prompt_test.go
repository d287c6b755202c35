package prompt

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/speedtype/internal/model"
)

func newTestSource() *Source {
	return NewSourceWithRand(DefaultCorpus(), rand.New(rand.NewSource(1)))
}

func TestPickReturnsCorpusText(t *testing.T) {
	src := newTestSource()
	corpus := DefaultCorpus()
	for _, d := range model.Difficulties {
		p, err := src.Pick(d)
		if err != nil {
			t.Fatalf("pick %s: %v", d, err)
		}
		if p.Difficulty != d || p.Kind != model.PromptCorpus {
			t.Fatalf("unexpected prompt labels: %+v", p)
		}
		found := false
		for _, c := range corpus[d] {
			if c == p.Text {
				found = true
			}
		}
		if !found {
			t.Fatalf("prompt %q not in %s corpus", p.Text, d)
		}
	}
}

func TestPickUnknownDifficulty(t *testing.T) {
	src := newTestSource()
	_, err := src.Pick(model.Difficulty("expert"))
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRandomLengthBounds(t *testing.T) {
	src := newTestSource()
	for _, n := range []int{0, 9, 1001} {
		if _, err := src.Random(n, model.DifficultyEasy); err == nil {
			t.Fatalf("expected error for length %d", n)
		}
	}
	p, err := src.Random(50, model.DifficultyHard)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len([]rune(p.Text)) != 50 {
		t.Fatalf("expected 50 chars, got %d", len([]rune(p.Text)))
	}
	if p.Difficulty != model.DifficultyHard || p.Kind != model.PromptRandom {
		t.Fatalf("random prompt must keep active difficulty: %+v", p)
	}
	for _, r := range p.Text {
		if !strings.ContainsRune(randomAlphabet, r) {
			t.Fatalf("unexpected rune %q", r)
		}
	}
}

func TestCustomTrimsAndRejectsBlank(t *testing.T) {
	src := newTestSource()
	if _, err := src.Custom("   \n", model.DifficultyEasy); err == nil {
		t.Fatalf("expected error for blank custom text")
	}
	p, err := src.Custom("  hello world \n", model.DifficultyMedium)
	if err != nil {
		t.Fatalf("custom: %v", err)
	}
	if p.Text != "hello world" || p.Difficulty != model.DifficultyMedium || p.Kind != model.PromptCustom {
		t.Fatalf("unexpected prompt: %+v", p)
	}
}

func TestCorpusExtend(t *testing.T) {
	c := DefaultCorpus()
	before := len(c[model.DifficultyEasy])
	c.Extend(model.DifficultyEasy, []string{" new text ", "", c[model.DifficultyEasy][0]})
	got := c.Candidates(model.DifficultyEasy)
	if len(got) != before+1 {
		t.Fatalf("expected %d candidates, got %d", before+1, len(got))
	}
	if got[len(got)-1] != "new text" {
		t.Fatalf("unexpected appended text %q", got[len(got)-1])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("first line\n\n  second line  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if text != "first line second line" {
		t.Fatalf("unexpected text %q", text)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, []byte("\n \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(empty); err == nil {
		t.Fatalf("expected error for empty file")
	}
}
