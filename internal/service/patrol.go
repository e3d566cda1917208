package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
)

var (
	ErrNotGuard           = errors.New("actor is not a guard")
	ErrUnknownPatrolSlot  = errors.New("unknown patrol slot")
	ErrOutsideSlotWindow  = errors.New("check filed outside slot window")
	ErrInvalidPatrolState = errors.New("invalid patrol status")
)

// slotWindow is how far from the scheduled slot time a check may still
// be filed, on either side.
const slotWindow = 30 * time.Minute

// slotSchedule maps each shift to its scheduled check times, "HH:MM" in
// the guard's local day.
var slotSchedule = map[model.PatrolShift][]string{
	model.PatrolShiftDay:   {"08:00", "12:00", "18:00"},
	model.PatrolShiftNight: {"00:00", "03:00", "07:00"},
}

// PatrolStore is the persistence surface for duty check records.
type PatrolStore interface {
	CreatePatrolCheck(ctx context.Context, params database.CreatePatrolCheckParams) (model.PatrolCheck, error)
	ListPatrolChecks(ctx context.Context, params database.ListPatrolChecksParams) ([]model.PatrolCheck, error)
}

// PatrolService handles guard duty checks. Duty checks share nothing
// with the fault lifecycle beyond the data store. The slot schedule is
// wall-clock time at the sites, so the filing window is evaluated in
// the configured location rather than UTC.
type PatrolService struct {
	store    PatrolStore
	location *time.Location
	now      func() time.Time
}

func NewPatrolService(store PatrolStore, location *time.Location) *PatrolService {
	if location == nil {
		location = time.UTC
	}
	return &PatrolService{store: store, location: location, now: time.Now}
}

type CreateCheckRequest struct {
	SiteID      uuid.UUID         `validate:"required"`
	Shift       model.PatrolShift `validate:"required"`
	Slot        string            `validate:"required"`
	Status      model.PatrolStatus
	Description string
	PhotoURLs   []string
	Location    util.Optional[model.GeoPoint]
}

// CreateCheck files a duty check for the given slot. Only guards file
// checks, and only within the slot's filing window.
func (s *PatrolService) CreateCheck(ctx context.Context, actor model.User, req CreateCheckRequest) (model.PatrolCheck, error) {
	if actor.Role != model.RoleGuard {
		return model.PatrolCheck{}, ErrNotGuard
	}

	status := req.Status
	if status == "" {
		status = model.PatrolStatusNormal
	}
	if !status.Valid() {
		return model.PatrolCheck{}, ErrInvalidPatrolState
	}

	now := s.now().In(s.location)
	if err := validateSlotWindow(req.Shift, req.Slot, now); err != nil {
		return model.PatrolCheck{}, err
	}

	return s.store.CreatePatrolCheck(ctx, database.CreatePatrolCheckParams{
		GuardID:     actor.ID,
		SiteID:      req.SiteID,
		Shift:       req.Shift,
		Slot:        req.Slot,
		Status:      status,
		Description: strings.TrimSpace(req.Description),
		PhotoURLs:   req.PhotoURLs,
		Location:    req.Location,
		CheckedAt:   now.UTC(),
	})
}

type ListChecksRequest struct {
	SiteID        util.Optional[uuid.UUID]
	GuardID       util.Optional[uuid.UUID]
	CheckedAfter  util.Optional[time.Time]
	CheckedBefore util.Optional[time.Time]
}

// ListChecks returns duty checks. Guards only ever see their own;
// everyone else on staff sees all of them.
func (s *PatrolService) ListChecks(ctx context.Context, actor model.User, req ListChecksRequest) ([]model.PatrolCheck, error) {
	params := database.ListPatrolChecksParams{
		SiteID:        req.SiteID,
		GuardID:       req.GuardID,
		CheckedAfter:  req.CheckedAfter,
		CheckedBefore: req.CheckedBefore,
	}
	if actor.Role == model.RoleGuard {
		params.GuardID = util.Some(actor.ID)
	}
	return s.store.ListPatrolChecks(ctx, params)
}

// Slots returns the scheduled check times for a shift.
func Slots(shift model.PatrolShift) []string {
	return slotSchedule[shift]
}

// validateSlotWindow checks that the slot belongs to the shift and that
// now falls within slotWindow of the slot time. The night shift's 00:00
// slot accepts late filings from the previous day, so the comparison
// runs against the nearest occurrence of the slot time.
func validateSlotWindow(shift model.PatrolShift, slot string, now time.Time) error {
	slots, ok := slotSchedule[shift]
	if !ok {
		return ErrUnknownPatrolSlot
	}
	found := false
	for _, s := range slots {
		if s == slot {
			found = true
			break
		}
	}
	if !found {
		return ErrUnknownPatrolSlot
	}

	slotTime, err := time.Parse("15:04", slot)
	if err != nil {
		return ErrUnknownPatrolSlot
	}

	scheduled := time.Date(now.Year(), now.Month(), now.Day(),
		slotTime.Hour(), slotTime.Minute(), 0, 0, now.Location())

	diff := now.Sub(scheduled)
	// Nearest occurrence across the midnight boundary.
	if diff > 12*time.Hour {
		diff -= 24 * time.Hour
	} else if diff < -12*time.Hour {
		diff += 24 * time.Hour
	}
	if diff < 0 {
		diff = -diff
	}
	if diff > slotWindow {
		return ErrOutsideSlotWindow
	}
	return nil
}
