// Package audit records security relevant events of the trust boundary.
// Every decryption is an irreversible disclosure, so each reveal produces
// one event whether it succeeded or not.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome of a reveal.
const (
	OutcomeRevealed = "revealed"
	OutcomeFailed   = "failed"
	OutcomeRefused  = "refused"
)

// Event describes one use of a private key. It never carries the
// decrypted value.
type Event struct {
	RequestID string
	Ceremony  uuid.UUID
	Outcome   string
	Error     string
	At        time.Time
}

// Sink stores audit events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// ZapSink writes events to a structured logger.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink logging under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Record(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("request_id", ev.RequestID),
		zap.Stringer("ceremony", ev.Ceremony),
		zap.String("outcome", ev.Outcome),
		zap.Time("at", ev.At),
	}
	if ev.Error != "" {
		fields = append(fields, zap.String("error", ev.Error))
	}
	s.logger.Info("private key used", fields...)
	return nil
}

// Multi fans events out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
