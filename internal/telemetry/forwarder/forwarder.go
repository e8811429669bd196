// Package forwarder moves security events from the Kafka topic into Loki.
package forwarder

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// pushTimeout bounds one Loki push.
const pushTimeout = 10 * time.Second

// Reader is the subset of *kafka.Reader the forwarder consumes from.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher receives each raw event document.
type Pusher interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// Forwarder copies messages from a Reader to a Pusher until its context ends.
type Forwarder struct {
	reader Reader
	pusher Pusher
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// New returns a Forwarder.
func New(reader Reader, pusher Pusher) *Forwarder {
	return &Forwarder{reader: reader, pusher: pusher}
}

// Run reads and pushes until ctx is done. Read and push failures are logged and the
// loop continues; a failed push is not retried.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("forwarder: kafka read error: %v", err)
			continue
		}
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := f.pusher.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.Printf("forwarder: loki push failed (partition %d offset %d): %v", msg.Partition, msg.Offset, err)
		}
		cancel()
	}
}
