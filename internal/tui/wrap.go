package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// wrongSpace marks a space in the prompt that was typed as something else.
const wrongSpace = '•'

// cell is one rendered prompt rune.
type cell struct {
	s       string
	width   int
	isSpace bool
}

type span struct {
	start int
	end   int
}

// styleCells colors prompt against typed input. The word under the cursor is
// highlighted and the cursor position is underlined.
func styleCells(prompt, typed []rune, cursor int) []cell {
	word, hasWord := currentWord(wordSpans(prompt), cursor)
	out := make([]cell, 0, len(prompt))
	for i, want := range prompt {
		shown := want
		var style lipgloss.Style
		switch {
		case i < len(typed) && want == ' ' && typed[i] != ' ':
			shown = wrongSpace
			style = incorrectStyle
		case i < len(typed) && typed[i] == want:
			style = correctStyle
		case i < len(typed):
			style = incorrectStyle
		case want != ' ' && hasWord && i >= word.start && i < word.end:
			style = currentWordStyle
		default:
			style = pendingStyle
		}
		if i == cursor && i >= len(typed) {
			style = style.Underline(true)
		}
		out = append(out, cell{
			s:       style.Render(string(shown)),
			width:   runewidth.RuneWidth(shown),
			isSpace: want == ' ',
		})
	}
	return out
}

func wordSpans(prompt []rune) []span {
	var spans []span
	start := -1
	for i, r := range prompt {
		switch {
		case r == ' ' && start >= 0:
			spans = append(spans, span{start: start, end: i})
			start = -1
		case r != ' ' && start < 0:
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(prompt)})
	}
	return spans
}

// currentWord returns the word containing cursor, or the next word after it.
// A negative cursor selects the first word; past the end selects the last.
func currentWord(spans []span, cursor int) (span, bool) {
	if len(spans) == 0 {
		return span{}, false
	}
	if cursor < 0 {
		return spans[0], true
	}
	for _, s := range spans {
		if cursor < s.end {
			return s, true
		}
	}
	return spans[len(spans)-1], true
}

func joinCells(cells []cell) string {
	var b strings.Builder
	for _, c := range cells {
		b.WriteString(c.s)
	}
	return b.String()
}

// wrapCells breaks cells into lines no wider than width, preferring to break
// at the last space. The space at a break is dropped.
func wrapCells(cells []cell, width int) string {
	if width <= 0 {
		return joinCells(cells)
	}
	var out strings.Builder
	line := make([]cell, 0, len(cells))
	lineWidth := 0
	lastSpace := -1
	for i := 0; i < len(cells); {
		c := cells[i]
		if lineWidth+c.width > width && len(line) > 0 {
			if lastSpace >= 0 {
				out.WriteString(joinCells(line[:lastSpace]))
				line = append([]cell{}, line[lastSpace+1:]...)
			} else {
				out.WriteString(joinCells(line))
				line = line[:0]
			}
			out.WriteByte('\n')
			lineWidth, lastSpace = measure(line)
			continue
		}
		line = append(line, c)
		lineWidth += c.width
		if c.isSpace {
			lastSpace = len(line) - 1
		}
		i++
	}
	out.WriteString(joinCells(line))
	return out.String()
}

// measure returns the display width of line and the index of its last space.
func measure(line []cell) (int, int) {
	width, lastSpace := 0, -1
	for i, c := range line {
		width += c.width
		if c.isSpace {
			lastSpace = i
		}
	}
	return width, lastSpace
}
