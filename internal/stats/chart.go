package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"
	"golang.org/x/term"

	"github.com/verte-zerg/speedtype/internal/model"
)

// Series is a named sequence of values drawn left to right.
type Series struct {
	Name   string
	Values []float64
	// X places each value on an axis shared by every series that has one.
	// Without X the values are spread evenly across the width.
	X []float64
	// Points draws unconnected dots instead of a line.
	Points bool
	// Color is an ANSI color sequence overriding the palette.
	Color string
}

// Chart draws series as braille lines on one shared y-scale.
type Chart struct {
	Title  string
	Width  int
	Height int
	// Color forces ANSI color even when the writer is not a terminal.
	Color  bool
	Series []Series
}

type dash struct {
	name   string
	period int
	on     int
}

const (
	defaultChartHeight    = 10
	minChartWidth         = 10
	axisLabelWidth        = 6
	axisSeparator         = " │ "
	colorReset            = "\x1b[0m"
	fallbackTerminalWidth = 80
)

var dashes = []dash{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var palette = []string{
	"\x1b[36m",
	"\x1b[33m",
	"\x1b[35m",
	"\x1b[32m",
}

var difficultyColors = map[string]string{
	string(model.DifficultyEasy):   "\x1b[32m",
	string(model.DifficultyMedium): "\x1b[34m",
	string(model.DifficultyHard):   "\x1b[31m",
}

// ChartWidthFor returns the plot area width that fits in totalWidth columns.
func ChartWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minChartWidth
	}
	return max(minChartWidth, totalWidth-axisLabelWidth-runewidth.StringWidth(axisSeparator))
}

// Render writes the chart. Nothing is written when every series is empty.
func (c Chart) Render(w io.Writer) error {
	series := lo.Filter(c.Series, func(s Series, _ int) bool { return len(s.Values) > 0 })
	if len(series) == 0 {
		return nil
	}
	height := c.Height
	if height <= 0 {
		height = defaultChartHeight
	}
	width := c.Width
	if width <= 0 {
		width = ChartWidthFor(terminalWidth())
	}
	width = max(width, minChartWidth)

	low, high := valueRange(series)
	layers := plotLayers(series, width, height, low, high)

	useColor := colorEnabled(w, c.Color)
	if c.Title != "" {
		if _, err := fmt.Fprintln(w, c.Title); err != nil {
			return err
		}
	}
	labels := axisLabels(low, high, height)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(labels[y], axisLabelWidth))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, owner := compose(layers, x, y)
			if useColor && owner >= 0 {
				row.WriteString(seriesColor(series, owner))
				row.WriteRune(braille(mask))
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(braille(mask))
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, legend(series, useColor))
	return err
}

// ProgressSeries builds the chart series for results in ascending order:
// WPM dots colored by difficulty, the moving average and the trend line, all
// placed by timestamp. Results without a timestamp are left out.
func ProgressSeries(results []model.StoredResult, window int) []Series {
	results = lo.Filter(results, func(r model.StoredResult, _ int) bool { return !r.Timestamp.IsZero() })
	if len(results) == 0 {
		return nil
	}
	xs := lo.Map(results, func(r model.StoredResult, _ int) float64 { return EpochSeconds(r) })

	groups := lo.GroupBy(results, func(r model.StoredResult) string { return r.Difficulty })
	cats := SortedCategories(lo.MapValues(groups, func(rows []model.StoredResult, d string) model.CategorySummary {
		return model.CategorySummary{Difficulty: d}
	}))
	series := make([]Series, 0, len(cats)+2)
	for _, c := range cats {
		rows := groups[c.Difficulty]
		series = append(series, Series{
			Name:   CategoryLabel(c.Difficulty),
			X:      lo.Map(rows, func(r model.StoredResult, _ int) float64 { return EpochSeconds(r) }),
			Values: lo.Map(rows, func(r model.StoredResult, _ int) float64 { return r.WPM }),
			Points: true,
			Color:  difficultyColors[c.Difficulty],
		})
	}
	if window > 1 {
		wpm := lo.Map(results, func(r model.StoredResult, _ int) float64 { return r.WPM })
		series = append(series, Series{
			Name:   fmt.Sprintf("Avg(%d)", window),
			X:      xs,
			Values: MovingAverage(wpm, window),
		})
	}
	if trend, err := TrendFromResults(results); err == nil {
		first, last := xs[0], xs[len(xs)-1]
		series = append(series, Series{
			Name:   "Trend",
			X:      []float64{first, last},
			Values: []float64{trend.At(first), trend.At(last)},
		})
	}
	return series
}

// RenderProgress draws the progress chart for a report.
func RenderProgress(w io.Writer, report Report, window, width, height int, color bool) error {
	if len(report.Results) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	chart := Chart{
		Title:  "WPM Progress",
		Width:  width,
		Height: height,
		Color:  color,
		Series: ProgressSeries(report.Results, window),
	}
	if err := chart.Render(w); err != nil {
		return err
	}
	return RenderTrend(w, report)
}

type canvas [][]uint8

// plotLayers draws each series on its own canvas. Series with X share one
// x range; the rest are resampled across the width.
func plotLayers(series []Series, width, height int, low, high float64) []canvas {
	dotsX, dotsY := width*2, height*4
	all := lo.FlatMap(series, func(s Series, _ int) []float64 { return s.X })
	var xLow, xHigh float64
	if len(all) > 0 {
		xLow, xHigh = lo.Min(all), lo.Max(all)
	}
	column := func(x float64) int {
		if xHigh-xLow < 1e-9 {
			return (dotsX - 1) / 2
		}
		return int(math.Round((x - xLow) / (xHigh - xLow) * float64(dotsX-1)))
	}

	layers := make([]canvas, len(series))
	for i, s := range series {
		layers[i] = newCanvas(width, height)
		style := dashes[i%len(dashes)]
		plot := func(px, py int) {
			if style.visible(px) {
				layers[i].set(px, py)
			}
		}
		prevX, prevY := -1, -1
		step := func(x, y int) {
			if s.Points {
				layers[i].set(x, y)
				return
			}
			if prevX < 0 {
				prevX, prevY = x, y
			}
			bresenham(prevX, prevY, x, y, plot)
			prevX, prevY = x, y
		}
		if len(s.X) == len(s.Values) {
			for j, v := range s.Values {
				step(column(s.X[j]), dotRow(v, low, high, dotsY))
			}
			continue
		}
		for x, v := range resample(s.Values, dotsX) {
			step(x, dotRow(v, low, high, dotsY))
		}
	}
	return layers
}

func seriesColor(series []Series, i int) string {
	if series[i].Color != "" {
		return series[i].Color
	}
	return palette[i%len(palette)]
}

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for y := range c {
		c[y] = make([]uint8, width)
	}
	return c
}

// set turns on the braille dot at dot coordinates (x, y).
func (c canvas) set(x, y int) {
	cy, cx := y/4, x/2
	if x < 0 || y < 0 || cy >= len(c) || cx >= len(c[cy]) {
		return
	}
	c[cy][cx] |= dotBit(x%2, y%4)
}

// Braille cells number their dots down the left column first, with the
// bottom row added last.
func dotBit(col, row int) uint8 {
	left := [4]uint8{0x01, 0x02, 0x04, 0x40}
	right := [4]uint8{0x08, 0x10, 0x20, 0x80}
	if col == 0 {
		return left[row]
	}
	return right[row]
}

func braille(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

// compose merges every layer's dots in one cell; owner is the first layer
// with a dot there, or -1.
func compose(layers []canvas, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, layer := range layers {
		if bits := layer[y][x]; bits != 0 {
			if owner < 0 {
				owner = i
			}
			mask |= bits
		}
	}
	return mask, owner
}

func (d dash) visible(x int) bool {
	return d.period <= 1 || x%d.period < d.on
}

func valueRange(series []Series) (float64, float64) {
	all := lo.FlatMap(series, func(s Series, _ int) []float64 { return s.Values })
	low, high := lo.Min(all), lo.Max(all)
	if high-low < 1e-9 {
		return low - 1, high + 1
	}
	return low, high
}

func dotRow(v, low, high float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - low) / (high - low)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return max(0, min(row, rows-1))
}

// resample stretches or squeezes values to exactly n samples. Shrinking
// averages buckets; stretching interpolates linearly.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	switch {
	case len(values) == n:
		copy(out, values)
	case len(values) == 1 || n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case len(values) > n:
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			out[i] = lo.Sum(values[start:end]) / float64(end-start)
		}
	default:
		step := float64(len(values)-1) / float64(n-1)
		for i := range out {
			pos := float64(i) * step
			idx := min(int(pos), len(values)-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func axisLabels(low, high float64, height int) []string {
	labels := make([]string, height)
	labels[0] = fmt.Sprintf("%.0f", high)
	if height > 1 {
		labels[height-1] = fmt.Sprintf("%.0f", low)
	}
	if height > 2 {
		labels[height/2] = fmt.Sprintf("%.0f", (low+high)/2)
	}
	return labels
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		style := dashes[i%len(dashes)].name
		if s.Points {
			style = "points"
		}
		label := fmt.Sprintf("%c %s (%s)", braille(0x01), s.Name, style)
		if useColor {
			label = seriesColor(series, i) + label + colorReset
		}
		parts = append(parts, label)
	}
	return strings.Repeat(" ", axisLabelWidth) + "   " + strings.Join(parts, "  ")
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTerminalWidth
	}
	return width
}

func colorEnabled(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
