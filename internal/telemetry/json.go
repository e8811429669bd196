package telemetry

import (
	"encoding/json"
	"time"
)

// jsonEvent is the wire shape of an Event on the Kafka topic.
type jsonEvent struct {
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source,omitempty"`
	Severity  string          `json:"severity"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// String returns "info", "warn" or "error".
func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

func parseSeverity(s string) Severity {
	switch s {
	case "warn":
		return SeverityWarn
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// MarshalEvent encodes event as a JSON document. A zero CreatedAt is stamped with now.
func MarshalEvent(event *Event, now time.Time) ([]byte, error) {
	created := event.CreatedAt
	if created.IsZero() {
		created = now
	}
	return json.Marshal(jsonEvent{
		UserID:    event.UserID,
		SessionID: event.SessionID,
		EventType: event.EventType,
		Source:    event.Source,
		Severity:  event.Severity.String(),
		Metadata:  json.RawMessage(event.Metadata),
		CreatedAt: created.UTC(),
	})
}

// UnmarshalEvent decodes a document written by MarshalEvent.
func UnmarshalEvent(data []byte) (*Event, error) {
	var je jsonEvent
	if err := json.Unmarshal(data, &je); err != nil {
		return nil, err
	}
	return &Event{
		UserID:    je.UserID,
		SessionID: je.SessionID,
		EventType: je.EventType,
		Source:    je.Source,
		Severity:  parseSeverity(je.Severity),
		Metadata:  []byte(je.Metadata),
		CreatedAt: je.CreatedAt,
	}, nil
}
