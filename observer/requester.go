package observer

import (
	"context"
	"io"
	"time"

	"github.com/okonen/relay"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedRequester wraps a relay.Requester with OTEL instrumentation.
type ObservedRequester struct {
	inner relay.Requester
	inst  *Instruments
}

var _ relay.Requester = (*ObservedRequester)(nil)

// WrapRequester returns an instrumented requester that emits traces,
// metrics, and logs for every completion call.
func WrapRequester(inner relay.Requester, inst *Instruments) *ObservedRequester {
	return &ObservedRequester{inner: inner, inst: inst}
}

func (o *ObservedRequester) Name() string { return o.inner.Name() }

func (o *ObservedRequester) Complete(ctx context.Context, req relay.Request) (relay.Response, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		o.requestAttrs(req)...,
	))
	defer span.End()
	start := time.Now()

	resp, err := o.inner.Complete(ctx, req)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.record(ctx, span, req.Model, "complete", status, durationMs, resp.Usage)
	return resp, err
}

// CompleteStream opens the span before the request and hands it to the
// returned stream, which ends it when the stream closes. When the open
// itself fails the span ends here.
func (o *ObservedRequester) CompleteStream(ctx context.Context, req relay.Request) (relay.Stream, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.complete_stream", trace.WithAttributes(
		o.requestAttrs(req)...,
	))
	start := time.Now()

	inner, err := o.inner.CompleteStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.record(ctx, span, req.Model, "complete_stream", "error",
			float64(time.Since(start).Milliseconds()), relay.Usage{})
		span.End()
		return nil, err
	}

	return &observedStream{
		inner: inner,
		obs:   o,
		ctx:   ctx,
		span:  span,
		model: req.Model,
		start: start,
	}, nil
}

func (o *ObservedRequester) requestAttrs(req relay.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrLLMModel.String(req.Model),
		AttrLLMProvider.String(o.inner.Name()),
	}
	if len(req.Tools) > 0 {
		names := make([]string, len(req.Tools))
		for i, t := range req.Tools {
			names[i] = t.Name
		}
		attrs = append(attrs,
			AttrToolCount.Int(len(req.Tools)),
			AttrToolNames.StringSlice(names),
		)
	}
	return attrs
}

func (o *ObservedRequester) record(ctx context.Context, span trace.Span, model, method, status string, durationMs float64, usage relay.Usage) {
	cost := o.inst.Cost.Calculate(model, usage.InputTokens, usage.OutputTokens)

	span.SetAttributes(
		AttrTokensInput.Int(usage.InputTokens),
		AttrTokensOutput.Int(usage.OutputTokens),
		AttrCostUSD.Float64(cost),
	)

	o.inst.TokenUsage.Add(ctx, int64(usage.InputTokens), metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "input"),
	))
	o.inst.TokenUsage.Add(ctx, int64(usage.OutputTokens), metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("direction", "output"),
	))
	o.inst.CostTotal.Add(ctx, cost, metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	))
	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
		attribute.String("status", status),
	))
	o.inst.LLMDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrLLMModel.String(model),
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMMethod.String(method),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("llm call completed"))
	rec.AddAttributes(
		otellog.String("llm.model", model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("llm.method", method),
		otellog.Int("llm.tokens.input", usage.InputTokens),
		otellog.Int("llm.tokens.output", usage.OutputTokens),
		otellog.Float64("llm.cost_usd", cost),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}

// observedStream counts deltas as they pass through and ends the span
// once on Close.
type observedStream struct {
	inner relay.Stream
	obs   *ObservedRequester
	ctx   context.Context
	span  trace.Span
	model string
	start time.Time

	chunks int
	failed error
	ended  bool
}

func (s *observedStream) Recv() (relay.Delta, error) {
	d, err := s.inner.Recv()
	switch {
	case err == nil:
		s.chunks++
	case err != io.EOF:
		s.failed = err
	}
	return d, err
}

func (s *observedStream) Close() error {
	err := s.inner.Close()
	if s.ended {
		return err
	}
	s.ended = true

	status := "ok"
	if s.failed != nil {
		status = "error"
		s.span.RecordError(s.failed)
		s.span.SetStatus(codes.Error, s.failed.Error())
	}
	s.span.SetAttributes(AttrStreamChunks.Int(s.chunks))
	s.obs.record(s.ctx, s.span, s.model, "complete_stream", status,
		float64(time.Since(s.start).Milliseconds()), relay.Usage{})
	s.span.End()
	return err
}
