// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/prompt"
	"github.com/verte-zerg/speedtype/internal/session"
	"github.com/verte-zerg/speedtype/internal/stats"
	"github.com/verte-zerg/speedtype/internal/store"
	"github.com/verte-zerg/speedtype/internal/telemetry"
)

const tickInterval = 100 * time.Millisecond

// ResultWriter persists finished sessions.
type ResultWriter interface {
	Insert(ctx context.Context, result model.SessionResult) (int64, error)
	Aggregate(ctx context.Context) (model.Summary, error)
}

// Options wires the practice UI to its collaborators.
type Options struct {
	Config   model.Config
	Store    ResultWriter
	Source   *prompt.Source
	Engine   *session.Engine
	Recorder *telemetry.Recorder
	Logger   *slog.Logger
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	config   model.Config
	store    ResultWriter
	source   *prompt.Source
	engine   *session.Engine
	recorder *telemetry.Recorder
	logger   *slog.Logger
	bar      progress.Model

	width  int
	height int

	difficulty model.Difficulty
	prompt     model.Prompt
	input      []rune
	metrics    model.LiveMetrics
	elapsed    time.Duration

	status    string
	statusErr bool
	summary   model.Summary
}

type tickMsg struct {
	attempt string
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	metricsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#D0D0D0"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	accuracyHigh     = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	accuracyMid      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FA8C16"))
	accuracyLow      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a typing TUI model with its first prompt prepared.
func NewModel(opts Options) (*Model, error) {
	if opts.Engine == nil {
		opts.Engine = session.NewEngine()
	}
	if opts.Source == nil {
		opts.Source = prompt.NewSource(prompt.DefaultCorpus())
	}
	if opts.Recorder == nil {
		opts.Recorder = telemetry.NopRecorder()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	difficulty := opts.Config.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMedium
	}
	m := &Model{
		config:     opts.Config,
		store:      opts.Store,
		source:     opts.Source,
		engine:     opts.Engine,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		difficulty: difficulty,
	}
	if err := m.nextPrompt(); err != nil {
		return nil, err
	}
	m.status = "Press enter to start."
	m.loadSummary()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, m.contentWidth())
		return m, nil
	case tickMsg:
		if !m.engine.Running() || msg.attempt != m.engine.AttemptID() {
			return m, nil
		}
		m.elapsed = m.engine.Elapsed()
		return m, tick(msg.attempt)
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		return m, m.start()
	case tea.KeyCtrlR:
		m.reset("Reset. Press enter to start.")
		return m, nil
	case tea.KeyTab:
		m.reset("")
		m.refreshPrompt()
		return m, nil
	case tea.KeyCtrlE:
		m.setDifficulty(model.DifficultyEasy)
		return m, nil
	case tea.KeyCtrlW:
		m.setDifficulty(model.DifficultyMedium)
		return m, nil
	case tea.KeyCtrlH:
		// Some terminals send ^H for backspace.
		if m.engine.Running() {
			m.backspace()
			return m, nil
		}
		m.setDifficulty(model.DifficultyHard)
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		m.backspace()
		return m, nil
	case tea.KeySpace:
		return m, m.typeRunes([]rune{' '})
	case tea.KeyRunes:
		return m, m.typeRunes(msg.Runes)
	default:
		return m, nil
	}
}

// start begins a session on the prepared prompt.
func (m *Model) start() tea.Cmd {
	if m.engine.Running() {
		return nil
	}
	if err := m.engine.Start(m.prompt); err != nil {
		m.setError(err)
		return nil
	}
	m.input = nil
	m.metrics = model.LiveMetrics{}
	m.elapsed = 0
	m.status = ""
	m.statusErr = false
	return tick(m.engine.AttemptID())
}

// typeRunes appends input; the first keystroke of an idle prompt starts it.
func (m *Model) typeRunes(runes []rune) tea.Cmd {
	var cmd tea.Cmd
	if !m.engine.Running() {
		cmd = m.start()
		if !m.engine.Running() {
			return nil
		}
	}
	for _, r := range runes {
		m.input = append(m.input, r)
		if m.edit() {
			break
		}
	}
	return cmd
}

func (m *Model) backspace() {
	if !m.engine.Running() || len(m.input) == 0 {
		return
	}
	m.input = m.input[:len(m.input)-1]
	m.edit()
}

// edit feeds the current input to the engine and reports whether the session
// finished.
func (m *Model) edit() bool {
	metrics, result, done := m.engine.Update(string(m.input))
	m.metrics = metrics
	m.elapsed = m.engine.Elapsed()
	if !done {
		return false
	}
	m.finish(result)
	return true
}

func (m *Model) finish(result model.SessionResult) {
	ctx := context.Background()
	m.metrics = model.LiveMetrics{
		WPM:             result.WPM,
		Accuracy:        result.Accuracy,
		ProgressPercent: session.Progress(m.prompt.Text, string(m.input)),
		ElapsedSeconds:  result.DurationSeconds,
	}
	m.recorder.SessionCompleted(ctx, result)
	if m.store == nil {
		m.status = formatResult(0, result)
		m.statusErr = false
	} else if id, err := m.store.Insert(ctx, result); err != nil {
		m.recordStoreError(ctx, err)
		m.setError(fmt.Errorf("failed to save result: %w", err))
	} else {
		m.status = formatResult(id, result)
		m.statusErr = false
		m.loadSummary()
	}
	m.engine.Reset()
	m.input = nil
	m.refreshPromptKeepStatus()
}

func (m *Model) reset(status string) {
	m.engine.Reset()
	m.input = nil
	m.metrics = model.LiveMetrics{}
	m.elapsed = 0
	m.status = status
	m.statusErr = false
}

func (m *Model) setDifficulty(d model.Difficulty) {
	if m.engine.Running() {
		m.status = "Reset (ctrl+r) before changing difficulty."
		m.statusErr = false
		return
	}
	m.difficulty = d
	m.refreshPrompt()
}

func (m *Model) refreshPrompt() {
	if err := m.nextPrompt(); err != nil {
		m.setError(err)
		return
	}
	m.status = fmt.Sprintf("%s prompt ready. Press enter to start.", stats.CategoryLabel(string(m.difficulty)))
	m.statusErr = false
}

func (m *Model) refreshPromptKeepStatus() {
	if err := m.nextPrompt(); err != nil {
		m.setError(err)
	}
}

// nextPrompt prepares a prompt in the configured mode: custom text, random
// characters or a corpus pick.
func (m *Model) nextPrompt() error {
	var (
		p   model.Prompt
		err error
	)
	switch {
	case m.config.CustomText != "":
		p, err = m.source.Custom(m.config.CustomText, m.difficulty)
	case m.config.RandomLength > 0:
		p, err = m.source.Random(m.config.RandomLength, m.difficulty)
	default:
		p, err = m.source.Pick(m.difficulty)
	}
	if err != nil {
		return err
	}
	m.prompt = p
	return nil
}

func (m *Model) loadSummary() {
	if m.store == nil {
		return
	}
	ctx := context.Background()
	summary, err := m.store.Aggregate(ctx)
	if err != nil {
		m.recordStoreError(ctx, err)
		m.logger.Error("failed to load summary", "error", err)
		return
	}
	m.summary = summary
}

func (m *Model) recordStoreError(ctx context.Context, err error) {
	op := "unknown"
	var serr *store.StorageError
	if errors.As(err, &serr) {
		op = serr.Op
	}
	m.recorder.StoreError(ctx, op)
	m.logger.Error("store operation failed", "op", op, "error", err)
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

func tick(attempt string) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{attempt: attempt}
	})
}

func formatResult(id int64, r model.SessionResult) string {
	prefix := "Done"
	if id > 0 {
		prefix = fmt.Sprintf("Saved #%d", id)
	}
	return fmt.Sprintf("%s: %.1f WPM · %.1f%% in %.1fs", prefix, r.WPM, r.Accuracy, r.DurationSeconds)
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

// View implements tea.Model.
func (m *Model) View() string {
	text := []rune(m.prompt.Text)
	if len(text) == 0 {
		return ""
	}
	cursor := -1
	if m.engine.Running() && len(m.input) < len(text) {
		cursor = len(m.input)
	}
	cells := styleCells(text, m.input, cursor)
	if m.width == 0 || m.height == 0 {
		return joinCells(cells)
	}
	width := m.contentWidth()
	sections := []string{
		headerStyle.Render(m.renderHeader()),
		"",
		lipgloss.NewStyle().Width(width).Render(wrapCells(cells, width)),
		"",
		m.renderMetrics(),
		m.bar.ViewAs(m.metrics.ProgressPercent / 100),
	}
	if m.status != "" {
		style := footerStyle
		if m.statusErr {
			style = errorStyle
		}
		sections = append(sections, "", style.Render(m.status))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderHeader() string {
	state := "ready"
	if m.engine.Running() {
		state = "typing"
	}
	return fmt.Sprintf("speedtype · %s · %s · %s",
		stats.CategoryLabel(string(m.difficulty)), m.prompt.Kind, state)
}

func (m *Model) renderMetrics() string {
	elapsed := m.metrics.ElapsedSeconds
	if m.engine.Running() {
		elapsed = m.elapsed.Seconds()
	}
	return metricsStyle.Render(fmt.Sprintf("WPM %.1f  ", m.metrics.WPM)) +
		accuracyStyle(m.metrics.Accuracy).Render(fmt.Sprintf("Accuracy %.1f%%", m.metrics.Accuracy)) +
		metricsStyle.Render(fmt.Sprintf("  Time %.1fs  Progress %.0f%%", elapsed, m.metrics.ProgressPercent))
}

// accuracyStyle colors accuracy green above 90, orange above 70, red otherwise.
func accuracyStyle(accuracy float64) lipgloss.Style {
	switch {
	case accuracy > 90:
		return accuracyHigh
	case accuracy > 70:
		return accuracyMid
	default:
		return accuracyLow
	}
}

func (m *Model) renderFooter() string {
	segments := []string{"enter start", "ctrl+r reset", "tab new", "ctrl+e/w/h difficulty", "esc quit"}
	if m.summary.Count > 0 {
		segments = append(segments, fmt.Sprintf("All-time %d tests · %.1f WPM · best %.1f · %.1f%%",
			m.summary.Count, m.summary.AvgWPM, m.summary.MaxWPM, m.summary.AvgAccuracy))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
