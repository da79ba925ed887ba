// Package services holds the business rules behind the HTTP handlers.
// Every mutating method authorizes its caller through authz before touching
// the database.
package services

import (
	"context"
	"errors"

	"quickbite-api/apperr"
	"quickbite-api/audit"
	"quickbite-api/authz"
	"quickbite-api/cache"
	"quickbite-api/events"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators shared by all services. Only DB is required.
type Deps struct {
	DB           *gorm.DB
	Events       events.Publisher
	Audit        audit.Sink
	Cache        *cache.ListingCache
	Log          *zap.Logger
	BcryptCost   int
	MaxListLimit int
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogSink(d.Log)
	}
	if d.MaxListLimit <= 0 {
		d.MaxListLimit = 100
	}
	return d
}

// record writes an audit entry; failures are logged, never returned.
func (d Deps) record(ctx context.Context, caller *authz.Caller, action, entity, id string, data map[string]any) {
	e := audit.Entry{Action: action, Entity: entity, EntityID: id, Data: data}
	if caller != nil {
		e.ActorID = caller.ID
	}
	if err := d.Audit.Record(ctx, e); err != nil {
		d.Log.Warn("failed to write audit entry", zap.String("action", action), zap.Error(err))
	}
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err, "database error")
}
