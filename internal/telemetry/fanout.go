package telemetry

import (
	"context"
	"errors"
)

// Fanout sends every event to each emitter in order. One emitter failing does not stop
// the rest; all errors are joined.
type Fanout []EventEmitter

// NewFanout drops nil emitters. It returns nil when none remain and the single emitter
// itself when only one does.
func NewFanout(emitters ...EventEmitter) EventEmitter {
	var out Fanout
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (f Fanout) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range f {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
