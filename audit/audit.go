// Package audit records who changed what. Entries go to the structured log
// and, when configured, to a MongoDB collection.
package audit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Entry struct {
	Action    string         `bson:"action" json:"action"`
	Entity    string         `bson:"entity" json:"entity"`
	EntityID  string         `bson:"entity_id" json:"entity_id"`
	ActorID   string         `bson:"actor_id" json:"actor_id"`
	Data      map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// LogSink writes entries to a zap logger
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, e Entry) error {
	s.log.Info("audit",
		zap.String("action", e.Action),
		zap.String("entity", e.Entity),
		zap.String("entity_id", e.EntityID),
		zap.String("actor_id", e.ActorID),
		zap.Any("data", e.Data),
	)
	return nil
}

type multiSink []Sink

// Tee fans an entry out to every sink. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
