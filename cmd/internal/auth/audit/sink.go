package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sink receives audit events. Implementations must be safe for concurrent use
// and must not block the caller for long.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// Nop discards events.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, Event) {}

type multi []Sink

// Multi fans an event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	for _, s := range m {
		s.Record(ctx, ev)
	}
}

// LogSink writes events as structured log lines.
type LogSink struct {
	Log *slog.Logger
}

// Record implements Sink.
func (s LogSink) Record(ctx context.Context, ev Event) {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	attrs := []any{
		"action", ev.Action,
		"outcome", string(ev.Outcome),
		"ip", ev.Source.IP,
	}
	if ev.IdentityID != nil {
		attrs = append(attrs, "identity_id", *ev.IdentityID)
	}
	if ev.ChainID != "" {
		attrs = append(attrs, "chain_id", ev.ChainID)
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	if len(ev.Meta) > 0 {
		attrs = append(attrs, "meta", ev.Meta)
	}

	level := slog.LevelInfo
	switch ev.Outcome {
	case OutcomeFailure, OutcomeRateLimited:
		level = slog.LevelWarn
	case OutcomeLockdown:
		level = slog.LevelError
	}
	log.Log(ctx, level, "audit", attrs...)
}

// Memory keeps events in memory. Useful for tests and local tooling.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Sink.
func (m *Memory) Record(_ context.Context, ev Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// Events returns a copy of recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Actions returns the recorded action names in order.
func (m *Memory) Actions() []string {
	evs := m.Events()
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Action)
	}
	return out
}
