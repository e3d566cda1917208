package audit

import (
	"context"
	"log/slog"

	"solartrack/internal/database"
	"solartrack/internal/util"

	"github.com/google/uuid"
)

// Store is the persistence surface for audit entries.
type Store interface {
	CreateAuditLog(ctx context.Context, params database.CreateAuditLogParams) error
}

// Auditor records mutation trails asynchronously. A nil Auditor is a
// no-op, so callers never guard their Record calls.
type Auditor struct {
	store Store
}

func New(store Store) *Auditor {
	return &Auditor{store: store}
}

func (a *Auditor) Record(ctx context.Context, entityType string, entityID uuid.UUID, action string, actorID uuid.UUID, oldValues, newValues map[string]any) {
	if a == nil || a.store == nil {
		return
	}

	params := database.CreateAuditLogParams{
		ActorID:    util.Some(actorID),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldValues:  oldValues,
		NewValues:  newValues,
	}

	go func() {
		if err := a.store.CreateAuditLog(context.Background(), params); err != nil {
			slog.Error("Failed to write audit log", "error", err, "entity_type", entityType, "action", action)
		}
	}()
}
