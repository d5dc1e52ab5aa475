// Package telemetry defines the logging, metrics, and tracing facade used
// throughout HUAP Core. Components never call a concrete logging or
// tracing library directly; they depend on these interfaces so that
// production wiring (OpenTelemetry + clue) and tests (no-op) share the
// same call sites.
package telemetry

import (
	"context"
	"time"
)

type (
	// Logger emits structured log messages. Implementations must be
	// safe for concurrent use.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, gauges, and durations for runtime
	// instrumentation.
	Metrics interface {
		// IncCounter increments a named counter by one, tagged with keyvals.
		IncCounter(ctx context.Context, name string, keyvals ...any)
		// RecordDuration records a duration against a named histogram.
		RecordDuration(ctx context.Context, name string, d time.Duration, keyvals ...any)
		// RecordValue records an arbitrary numeric observation.
		RecordValue(ctx context.Context, name string, value float64, keyvals ...any)
	}

	// Tracer creates spans for cross-process observability. It is
	// deliberately independent of trace.Span (the JSONL event model) —
	// this is the out-of-band APM view of the same nesting.
	Tracer interface {
		// StartSpan begins a new span named name, returning a context
		// carrying the span and the Span handle itself.
		StartSpan(ctx context.Context, name string) (context.Context, Span)
	}

	// Span is a single observability span. Implementations must
	// tolerate End being called exactly once.
	Span interface {
		SetAttribute(key string, value any)
		RecordError(err error)
		End()
	}
)
