package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/speedtype/internal/model"
)

// State is the lifecycle position of the engine.
type State int

// Engine states.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Engine owns one typing attempt at a time. It is not safe for concurrent use;
// callers drive it from a single event loop.
type Engine struct {
	now    func() time.Time
	logger *slog.Logger

	prompt    model.Prompt
	startedAt time.Time
	typed     string
	state     State
	attemptID string
	last      model.LiveMetrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine returns an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a session for prompt. It is ignored while a session is running.
func (e *Engine) Start(prompt model.Prompt) error {
	if prompt.Text == "" {
		return &model.ValidationError{Field: "prompt", Reason: "prompt text must not be empty"}
	}
	if e.state == StateRunning {
		e.logger.Debug("start ignored, session already running", "attempt_id", e.attemptID)
		return nil
	}
	e.prompt = prompt
	e.startedAt = e.now()
	e.typed = ""
	e.state = StateRunning
	e.attemptID = uuid.NewString()
	e.last = model.LiveMetrics{}
	e.logger.Info("session started",
		"attempt_id", e.attemptID,
		"difficulty", string(prompt.Difficulty),
		"kind", string(prompt.Kind),
		"prompt_length", runeLen(prompt.Text),
	)
	return nil
}

// OnTextChanged records the current text buffer and returns live metrics.
// It returns zero metrics when no session is running.
func (e *Engine) OnTextChanged(text string) model.LiveMetrics {
	if e.state != StateRunning {
		return model.LiveMetrics{}
	}
	e.typed = text
	e.last = Compute(e.prompt.Text, text, e.Elapsed())
	return e.last
}

// CheckCompletion reports whether text completes the session. On completion the
// metrics are frozen into a result and the engine stops accepting input until
// Reset and Start. It fires at most once per session.
func (e *Engine) CheckCompletion(text string) (model.SessionResult, bool) {
	if e.state != StateRunning {
		return model.SessionResult{}, false
	}
	elapsed := e.Elapsed()
	if runeLen(text) < runeLen(e.prompt.Text) && elapsed < MaxDuration {
		return model.SessionResult{}, false
	}
	metrics := Compute(e.prompt.Text, text, elapsed)
	e.typed = text
	e.last = metrics
	e.state = StateCompleted
	result := model.SessionResult{
		WPM:             metrics.WPM,
		Accuracy:        metrics.Accuracy,
		DurationSeconds: metrics.ElapsedSeconds,
		PromptLength:    runeLen(e.prompt.Text),
		Difficulty:      string(e.prompt.Difficulty),
	}
	e.logger.Info("session completed",
		"attempt_id", e.attemptID,
		"wpm", result.WPM,
		"accuracy", result.Accuracy,
		"duration_s", result.DurationSeconds,
		"timed_out", elapsed >= MaxDuration,
	)
	return result, true
}

// Update handles one input event: it scores text and checks for completion.
func (e *Engine) Update(text string) (model.LiveMetrics, model.SessionResult, bool) {
	metrics := e.OnTextChanged(text)
	result, done := e.CheckCompletion(text)
	return metrics, result, done
}

// Reset discards the current session. It is safe to call in any state.
func (e *Engine) Reset() {
	if e.state != StateIdle {
		e.logger.Debug("session reset", "attempt_id", e.attemptID, "state", e.state.String())
	}
	e.prompt = model.Prompt{}
	e.startedAt = time.Time{}
	e.typed = ""
	e.state = StateIdle
	e.attemptID = ""
	e.last = model.LiveMetrics{}
}

// Running reports whether a session accepts input.
func (e *Engine) Running() bool {
	return e.state == StateRunning
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Prompt returns the prompt of the current session.
func (e *Engine) Prompt() model.Prompt {
	return e.prompt
}

// Typed returns the last recorded text buffer.
func (e *Engine) Typed() string {
	return e.typed
}

// AttemptID identifies the current attempt in logs and telemetry.
func (e *Engine) AttemptID() string {
	return e.attemptID
}

// Metrics returns the most recently computed metrics.
func (e *Engine) Metrics() model.LiveMetrics {
	if e.state == StateIdle {
		return model.LiveMetrics{}
	}
	return e.last
}

// Elapsed is always derived from the start time, never from a timer.
func (e *Engine) Elapsed() time.Duration {
	if e.state != StateRunning || e.startedAt.IsZero() {
		return 0
	}
	d := e.now().Sub(e.startedAt)
	if d < 0 {
		return 0
	}
	return d
}
