package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// RunState is the lifecycle state of a session's current (or most recent) run.
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrRunInProgress is returned by Run when the session already has a run
// in flight. A Runner owns exactly one conversation; concurrent runs on
// the same session are a caller bug.
var ErrRunInProgress = errors.New("run already in progress")

// defaultMaxIterations caps the request/dispatch cycle so a backend that
// keeps requesting tools cannot spin the loop forever.
const defaultMaxIterations = 20

// Runner drives one conversation against a completion backend: it issues
// requests over the current history, assembles streamed responses,
// dispatches requested tool calls, feeds their results back, and repeats
// until the backend produces a terminal answer or the run is cancelled.
//
// A Runner exclusively owns its History and cancellation flag. Independent
// sessions get independent Runners and share no mutable state.
type Runner struct {
	name       string
	model      string
	requester  Requester
	history    *History
	registry   *Registry
	dispatcher *Dispatcher
	hooks      RunHooks
	logger     *slog.Logger
	params     *GenerationParams
	maxIter    int
	streaming  bool
	sink       ConversationStore
	thread     string
	maxRecent  int

	cancel atomic.Bool
	state  atomic.Int32
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTools registers the tools the backend may call.
func WithTools(tools ...Tool) RunnerOption {
	return func(r *Runner) {
		for _, t := range tools {
			r.registry.Add(t)
		}
	}
}

// WithHooks sets the observability callbacks for runs and tool dispatches.
func WithHooks(h RunHooks) RunnerOption {
	return func(r *Runner) { r.hooks = h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithGenerationParams sets the sampling parameters sent on every request.
func WithGenerationParams(p *GenerationParams) RunnerOption {
	return func(r *Runner) { r.params = p }
}

// WithMaxIterations overrides the request/dispatch cycle cap.
func WithMaxIterations(n int) RunnerOption {
	return func(r *Runner) { r.maxIter = n }
}

// WithStreaming makes the runner request streamed responses and assemble
// them from deltas instead of waiting for atomic answers.
func WithStreaming() RunnerOption {
	return func(r *Runner) { r.streaming = true }
}

// WithInstructions seeds the history with a system turn before the first run.
func WithInstructions(text string) RunnerOption {
	return func(r *Runner) {
		if text != "" {
			r.history.Append(SystemTurn(text))
		}
	}
}

// WithConversationStore persists completed assistant replies to the named
// thread and enables resuming a run from the thread's stored history.
// maxRecent bounds how many stored turns a resume loads (0 = all).
func WithConversationStore(sink ConversationStore, thread string, maxRecent int) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
		r.thread = thread
		r.maxRecent = maxRecent
	}
}

// NewRunner creates a session runner for the given model over the given
// history. The requester handle is injected here; runners never share
// provider state through globals.
func NewRunner(name, model string, requester Requester, history *History, opts ...RunnerOption) *Runner {
	r := &Runner{
		name:      name,
		model:     model,
		requester: requester,
		history:   history,
		registry:  NewRegistry(),
		hooks:     NopHooks{},
		logger:    nopLogger,
		maxIter:   defaultMaxIterations,
	}
	for _, o := range opts {
		o(r)
	}
	r.dispatcher = NewDispatcher(r.registry, r.hooks, r.logger)
	return r
}

// History exposes the session's turn log for inspection.
func (r *Runner) History() *History { return r.history }

// State reports the lifecycle state of the current or most recent run.
func (r *Runner) State() RunState { return RunState(r.state.Load()) }

// RequestCancel asks the current run to stop. Cancellation is cooperative
// and coarse-grained: it is observed only at iteration boundaries, so a
// request or streaming assembly already in flight finishes first. Safe to
// call from any goroutine at any time.
func (r *Runner) RequestCancel() {
	r.cancel.Store(true)
}

// Run executes one full cycle from user input to a terminal answer,
// possibly spanning several request/dispatch iterations. With an empty
// userInput the run resumes on the configured thread's stored history
// alone. Returns the final assistant text on completion; an empty text
// with a nil error means the run was cancelled or the backend produced a
// no-op response (check State to tell them apart).
func (r *Runner) Run(ctx context.Context, userInput string) (string, error) {
	if !r.begin() {
		return "", ErrRunInProgress
	}

	if userInput != "" {
		r.history.Append(UserTurn(userInput))
		if r.sink != nil {
			if err := r.sink.AppendMessage(ctx, r.thread, RoleUser, userInput, nil); err != nil {
				r.logger.Warn("persisting user turn failed", "thread", r.thread, "error", err)
			}
		}
	} else {
		if r.sink == nil {
			return r.fail("", errors.New("no user input and no conversation store to resume from"))
		}
		stored, err := r.sink.Retrieve(ctx, r.thread, r.maxRecent)
		if err != nil {
			return r.fail("", err)
		}
		for _, t := range stored {
			if t.Role == RoleUser || t.Role == RoleAssistant {
				r.history.Append(t)
			}
		}
	}

	if err := r.history.EnforceBudget(); err != nil {
		return r.fail("", err)
	}

	runID := NewID()
	start := time.Now()
	r.hooks.OnRunStart(runID, start, userInput)
	r.logger.Info("run started", "session", r.name, "run_id", runID, "streaming", r.streaming)

	for i := 0; i < r.maxIter; i++ {
		if r.cancel.CompareAndSwap(true, false) {
			r.logger.Info("run cancelled", "session", r.name, "run_id", runID, "iteration", i)
			r.state.Store(int32(StateCancelled))
			r.hooks.OnRunUpdate(runID, StatusCancelled, "")
			r.hooks.OnRunEnd(runID, time.Now(), "")
			return "", nil
		}

		req := Request{
			Model:  r.model,
			Turns:  r.history.Snapshot(),
			Tools:  r.registry.Definitions(),
			Params: r.params,
		}

		var content string
		var calls []ToolCall
		if r.streaming {
			var err error
			content, calls, err = r.requestStreaming(ctx, runID, req)
			if err != nil {
				return r.fail(runID, err)
			}
		} else {
			resp, err := r.requester.Complete(ctx, req)
			if err != nil {
				return r.fail(runID, err)
			}
			content, calls = resp.Content, resp.ToolCalls
		}

		if len(calls) > 0 {
			r.history.Append(AssistantCallTurn(content, calls))
			for _, tc := range calls {
				r.history.Append(r.dispatcher.Dispatch(ctx, runID, tc))
			}
			continue
		}

		// Terminal answer. An empty streamed response completes the run
		// without appending a turn; an atomic response is appended as-is.
		if content != "" || !r.streaming {
			r.history.Append(AssistantTurn(content))
		}
		return r.complete(ctx, runID, content)
	}

	r.logger.Warn("iteration cap reached", "session", r.name, "max", r.maxIter)
	return r.fail(runID, ErrMaxIterations)
}

// requestStreaming issues one streamed request and assembles the response.
// Text fragments surface through OnRunUpdate as they arrive; a receive
// error discards the partial assembly so the history stays untouched.
func (r *Runner) requestStreaming(ctx context.Context, runID string, req Request) (string, []ToolCall, error) {
	stream, err := r.requester.CompleteStream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer stream.Close()

	asm := NewAssembler(func(fragment string) {
		r.hooks.OnRunUpdate(runID, StatusStreaming, fragment)
	})
	if err := asm.Drain(stream); err != nil {
		return "", nil, err
	}
	content, calls := asm.Finalize()
	return content, calls, nil
}

// begin transitions to Running unless a run is already in flight.
func (r *Runner) begin() bool {
	for {
		s := r.state.Load()
		if RunState(s) == StateRunning {
			return false
		}
		if r.state.CompareAndSwap(s, int32(StateRunning)) {
			return true
		}
	}
}

func (r *Runner) complete(ctx context.Context, runID, finalText string) (string, error) {
	if r.sink != nil && finalText != "" {
		if err := r.sink.AppendMessage(ctx, r.thread, RoleAssistant, finalText,
			map[string]string{"assistant": r.name}); err != nil {
			r.logger.Warn("persisting assistant reply failed", "thread", r.thread, "error", err)
		}
	}
	r.state.Store(int32(StateCompleted))
	r.hooks.OnRunUpdate(runID, StatusCompleted, "")
	r.hooks.OnRunEnd(runID, time.Now(), finalText)
	r.logger.Info("run completed", "session", r.name, "run_id", runID)
	return finalText, nil
}

func (r *Runner) fail(runID string, err error) (string, error) {
	r.state.Store(int32(StateFailed))
	if runID != "" {
		r.hooks.OnRunUpdate(runID, StatusFailed, "")
	}
	r.logger.Error("run failed", "session", r.name, "run_id", runID, "error", err)
	return "", err
}
