package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"social-auth/backend/internal/telemetry"
)

// LoggerName is the instrumentation scope of emitted security events.
const LoggerName = "socialauth.telemetry"

// Emitter is the subset of otellog.Logger used to send records.
type Emitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(LoggerName))
}

// NewEventEmitterWithLogger returns an EventEmitter that writes to logger directly.
func NewEventEmitterWithLogger(logger Emitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *telemetry.Event) error { return nil }

type otelEmitter struct {
	logger Emitter
	now    func() time.Time
}

// Emit converts the event to an OTel log record and emits it. The event type becomes
// both the record's event name and an attribute so backends without event-name support
// can still filter on it.
func (e *otelEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = e.now()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(e.now())
	rec.SetSeverity(severity(event.Severity))
	rec.SetSeverityText(severityText(event.Severity))
	if event.EventType != "" {
		rec.SetEventName(event.EventType)
		rec.AddAttributes(otellog.String("event_type", event.EventType))
	}
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
	}
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("source", event.Source))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func severity(s telemetry.Severity) otellog.Severity {
	switch s {
	case telemetry.SeverityWarn:
		return otellog.SeverityWarn
	case telemetry.SeverityError:
		return otellog.SeverityError
	default:
		return otellog.SeverityInfo
	}
}

func severityText(s telemetry.Severity) string {
	switch s {
	case telemetry.SeverityWarn:
		return "WARN"
	case telemetry.SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}
