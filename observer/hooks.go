package observer

import (
	"context"
	"sync"
	"time"

	"github.com/okonen/relay"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Hooks implements relay.RunHooks on OpenTelemetry. Each run becomes one
// span named run.session, with stream fragments and tool dispatches
// recorded as events and counters. Failed runs end their span on the
// failed status update since no run-end notification follows.
type Hooks struct {
	inst *Instruments

	mu   sync.Mutex
	runs map[string]*runSpan
}

type runSpan struct {
	span      trace.Span
	ctx       context.Context
	start     time.Time
	status    string
	fragments int
	toolCalls int
}

var _ relay.RunHooks = (*Hooks)(nil)

// NewHooks returns a RunHooks that emits OTEL telemetry through inst.
func NewHooks(inst *Instruments) *Hooks {
	return &Hooks{inst: inst, runs: make(map[string]*runSpan)}
}

func (h *Hooks) OnRunStart(runID string, start time.Time, request string) {
	ctx, span := h.inst.Tracer.Start(context.Background(), "run.session",
		trace.WithTimestamp(start),
		trace.WithAttributes(AttrRunID.String(runID)),
	)
	span.AddEvent("run.started", trace.WithAttributes(
		attribute.Int("request_length", len(request)),
	))

	h.mu.Lock()
	h.runs[runID] = &runSpan{span: span, ctx: ctx, start: start}
	h.mu.Unlock()
}

func (h *Hooks) OnRunUpdate(runID, status, partial string) {
	h.mu.Lock()
	rs, ok := h.runs[runID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if status == relay.StatusStreaming {
		rs.fragments++
		h.mu.Unlock()
		return
	}
	rs.status = status
	if status == relay.StatusFailed {
		delete(h.runs, runID)
		h.mu.Unlock()
		h.finish(rs, runID, time.Now())
		return
	}
	h.mu.Unlock()
}

func (h *Hooks) OnFunctionCallProcessed(runID, toolName, arguments, result string) {
	h.mu.Lock()
	rs, ok := h.runs[runID]
	if ok {
		rs.toolCalls++
		rs.span.AddEvent("tool.dispatched", trace.WithAttributes(
			AttrToolName.String(toolName),
			AttrToolResultLength.Int(len(result)),
		))
	}
	h.mu.Unlock()

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("tool call processed"))
	rec.AddAttributes(
		otellog.String("run.id", runID),
		otellog.String("tool.name", toolName),
		otellog.Int("tool.args_length", len(arguments)),
		otellog.Int("tool.result_length", len(result)),
	)
	h.inst.Logger.Emit(context.Background(), rec)
}

func (h *Hooks) OnRunEnd(runID string, end time.Time, finalText string) {
	h.mu.Lock()
	rs, ok := h.runs[runID]
	if ok {
		delete(h.runs, runID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	rs.span.AddEvent("run.ended", trace.WithAttributes(
		attribute.Int("final_length", len(finalText)),
	))
	h.finish(rs, runID, end)
}

func (h *Hooks) finish(rs *runSpan, runID string, end time.Time) {
	status := rs.status
	if status == "" {
		status = relay.StatusCompleted
	}

	rs.span.SetAttributes(
		AttrRunStatus.String(status),
		AttrRunToolCalls.Int(rs.toolCalls),
		AttrRunFragments.Int(rs.fragments),
	)
	if status == relay.StatusFailed {
		rs.span.SetStatus(codes.Error, "run failed")
	}
	rs.span.End(trace.WithTimestamp(end))

	durationMs := float64(end.Sub(rs.start).Milliseconds())
	h.inst.RunsTotal.Add(rs.ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	h.inst.RunDuration.Record(rs.ctx, durationMs, metric.WithAttributes(
		attribute.String("status", status),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("run finished"))
	rec.AddAttributes(
		otellog.String("run.id", runID),
		otellog.String("run.status", status),
		otellog.Int("run.tool_calls", rs.toolCalls),
		otellog.Int("run.stream_fragments", rs.fragments),
		otellog.Float64("duration_ms", durationMs),
	)
	h.inst.Logger.Emit(rs.ctx, rec)
}
