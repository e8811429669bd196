package forwarder

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

// scriptedReader returns its results in order, then cancels the run and blocks on ctx.
type scriptedReader struct {
	results []result
	cancel  context.CancelFunc
}

type result struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.results) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

type recordingPusher struct {
	lines []string
	fail  string
}

func (p *recordingPusher) PushEventJSON(ctx context.Context, raw []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("push without deadline")
	}
	p.lines = append(p.lines, string(raw))
	if string(raw) == p.fail {
		return errors.New("loki down")
	}
	return nil
}

func TestForwarder_RunPushesEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &scriptedReader{cancel: cancel, results: []result{
		{msg: kafka.Message{Value: []byte(`{"eventType":"a"}`)}},
		{err: errors.New("rebalance")},
		{msg: kafka.Message{Value: []byte(`{"eventType":"b"}`)}},
		{msg: kafka.Message{Value: []byte(`{"eventType":"c"}`)}},
	}}
	p := &recordingPusher{fail: `{"eventType":"b"}`}

	New(r, p).Run(ctx)

	want := []string{`{"eventType":"a"}`, `{"eventType":"b"}`, `{"eventType":"c"}`}
	if len(p.lines) != len(want) {
		t.Fatalf("pushed %v, want %v", p.lines, want)
	}
	for i := range want {
		if p.lines[i] != want[i] {
			t.Errorf("push %d = %s, want %s", i, p.lines[i], want[i])
		}
	}
}

func TestForwarder_RunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &scriptedReader{cancel: cancel}
	p := &recordingPusher{}
	New(r, p).Run(ctx)
	if len(p.lines) != 0 {
		t.Errorf("pushed %v, want nothing", p.lines)
	}
}
