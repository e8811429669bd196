// Package saga records compensating actions for multi-store operations and runs them in
// reverse order when a later step fails.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Compensation undoes one completed step.
type Compensation struct {
	Name string
	Undo func(ctx context.Context) error
}

// Saga is a list of compensations built up as steps succeed. Not safe for concurrent use.
type Saga struct {
	name  string
	steps []Compensation
}

// New returns an empty saga; name prefixes log lines.
func New(name string) *Saga {
	return &Saga{name: name}
}

// Add registers undo for a step that has just succeeded.
func (s *Saga) Add(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, Compensation{Name: name, Undo: undo})
}

// Len returns the number of registered compensations.
func (s *Saga) Len() int {
	return len(s.steps)
}

// Compensate runs every registered compensation, last first, and clears the list. It
// stops at the first failing compensation: earlier steps stay in place for an operator.
// The returned *CompensationError wraps that failure.
func (s *Saga) Compensate(ctx context.Context) error {
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.Undo(ctx); err != nil {
			log.Printf("%s: compensation %q failed: %v", s.name, step.Name, err)
			pending := make([]string, 0, i)
			for j := i - 1; j >= 0; j-- {
				pending = append(pending, s.steps[j].Name)
			}
			s.steps = nil
			return &CompensationError{Step: step.Name, Pending: pending, Err: err}
		}
		log.Printf("%s: compensated %q", s.name, step.Name)
	}
	s.steps = nil
	return nil
}

// CompensationError reports a compensation that failed; Pending lists those not attempted.
type CompensationError struct {
	Step    string
	Pending []string
	Err     error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation %q failed (pending %v): %v", e.Step, e.Pending, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

// IsCompensationError reports whether err carries a *CompensationError.
func IsCompensationError(err error) bool {
	var ce *CompensationError
	return errors.As(err, &ce)
}
