package relay

import "time"

// Run status values passed to RunHooks.OnRunUpdate.
const (
	StatusStreaming = "streaming"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunHooks receives synchronous notifications at fixed points of a run:
// run start, every streamed text fragment and state transition, every
// dispatched tool call, and run end. Implementations must be fast; they
// run inline on the session's goroutine. The observer package provides an
// OTel-backed implementation.
type RunHooks interface {
	OnRunStart(runID string, start time.Time, request string)
	// OnRunUpdate fires with StatusStreaming and the fragment text for every
	// streamed text delta, and with the terminal status (empty partial) on
	// state transitions.
	OnRunUpdate(runID, status, partial string)
	// OnFunctionCallProcessed fires after every tool dispatch, success or
	// failure, with the stringified result.
	OnFunctionCallProcessed(runID, toolName, arguments, result string)
	OnRunEnd(runID string, end time.Time, finalText string)
}

// NopHooks is a RunHooks that does nothing.
type NopHooks struct{}

func (NopHooks) OnRunStart(string, time.Time, string)           {}
func (NopHooks) OnRunUpdate(string, string, string)             {}
func (NopHooks) OnFunctionCallProcessed(string, string, string, string) {}
func (NopHooks) OnRunEnd(string, time.Time, string)             {}
