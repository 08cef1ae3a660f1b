package main

import (
	"fmt"
	"os"
	"time"

	"github.com/okonen/relay"
)

// consoleHooks prints streamed fragments to stdout as they arrive.
type consoleHooks struct{}

func (consoleHooks) OnRunStart(string, time.Time, string) {}

func (consoleHooks) OnRunUpdate(_, status, partial string) {
	if status == relay.StatusStreaming {
		fmt.Print(partial)
	}
}

func (consoleHooks) OnFunctionCallProcessed(_, toolName, _, _ string) {
	fmt.Fprintf(os.Stderr, "[tool: %s]\n", toolName)
}

func (consoleHooks) OnRunEnd(string, time.Time, string) {}

// fanoutHooks forwards every notification to all members in order.
type fanoutHooks []relay.RunHooks

func joinHooks(hooks ...relay.RunHooks) relay.RunHooks {
	var active fanoutHooks
	for _, h := range hooks {
		if _, nop := h.(relay.NopHooks); nop || h == nil {
			continue
		}
		active = append(active, h)
	}
	if len(active) == 1 {
		return active[0]
	}
	return active
}

func (f fanoutHooks) OnRunStart(runID string, start time.Time, request string) {
	for _, h := range f {
		h.OnRunStart(runID, start, request)
	}
}

func (f fanoutHooks) OnRunUpdate(runID, status, partial string) {
	for _, h := range f {
		h.OnRunUpdate(runID, status, partial)
	}
}

func (f fanoutHooks) OnFunctionCallProcessed(runID, toolName, arguments, result string) {
	for _, h := range f {
		h.OnFunctionCallProcessed(runID, toolName, arguments, result)
	}
}

func (f fanoutHooks) OnRunEnd(runID string, end time.Time, finalText string) {
	for _, h := range f {
		h.OnRunEnd(runID, end, finalText)
	}
}
