package output

import (
	"errors"
	"fmt"
)

// Sink consumes run lifecycle events (run.started, unit.finished,
// run.finished). Sinks may buffer; Close flushes whatever the format defers.
type Sink interface {
	Write(e Event) error
	Close() error
}

// Manager fans events out to every registered sink.
//
// Sink failures never affect run correctness: aggregate counters and the
// failure ledger are durable before the final events go out, so a broken
// sink only costs reporting. Write and Close therefore try every sink and
// join whatever errors come back.
type Manager struct {
	sinks []Sink
}

func NewManager(sinks ...Sink) *Manager {
	return &Manager{sinks: sinks}
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	if s == nil {
		return errors.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(e Event) error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(e); err != nil {
			errs = append(errs, fmt.Errorf("write %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	if m == nil {
		return errors.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
