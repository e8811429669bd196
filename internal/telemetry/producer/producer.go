// Package producer publishes security events to Kafka for the worker's Loki forwarder.
package producer

import (
	"context"

	"github.com/segmentio/kafka-go"

	"social-auth/backend/internal/telemetry"
)

// Producer is an EventEmitter that holds a connection and must be closed.
type Producer interface {
	telemetry.EventEmitter
	// Close flushes and releases the writer. Safe to call more than once.
	Close() error
}

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
