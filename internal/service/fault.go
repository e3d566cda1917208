package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"solartrack/internal/audit"
	"solartrack/internal/authz"
	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/monitoring"
	"solartrack/internal/util"

	"github.com/google/uuid"
)

var (
	ErrUnauthorized          = errors.New("operation not permitted")
	ErrFaultAlreadyResolved  = errors.New("fault already resolved")
	ErrBlankResolution       = errors.New("resolution description must not be blank")
	ErrBlankComment          = errors.New("comment message must not be blank")
	ErrResolutionMismatch    = errors.New("resolution must be present exactly when status is resolved")
	ErrInvalidFaultStatus    = errors.New("invalid fault status")
	ErrInvalidFaultPriority  = errors.New("invalid fault priority")
	ErrFaultNotVisible       = errors.New("fault not visible to caller")
)

// FaultStore is the persistence surface the fault lifecycle needs.
// *database.Database satisfies it; tests substitute a fake.
type FaultStore interface {
	CreateFault(ctx context.Context, params database.CreateFaultParams) (model.Fault, error)
	GetFaultByID(ctx context.Context, id uuid.UUID) (model.Fault, error)
	ListFaults(ctx context.Context, params database.ListFaultsParams) ([]model.Fault, error)
	UpdateFault(ctx context.Context, id uuid.UUID, params database.UpdateFaultParams) error
	AppendComment(ctx context.Context, faultID uuid.UUID, comment model.Comment) error
	DeleteFault(ctx context.Context, id uuid.UUID) error
}

type FaultService struct {
	store     FaultStore
	telemetry monitoring.Telemetry
	auditor   *audit.Auditor
}

func NewFaultService(store FaultStore, telemetry monitoring.Telemetry, auditor *audit.Auditor) *FaultService {
	return &FaultService{
		store:     store,
		telemetry: telemetry,
		auditor:   auditor,
	}
}

type CreateFaultRequest struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	Location    string
	SiteID      uuid.UUID `validate:"required"`
	Status      util.Optional[model.FaultStatus]
	Priority    model.Priority `validate:"required"`
	AssignedTo  util.Optional[uuid.UUID]
	PhotoURLs   []string
	Resolution  util.Optional[model.Resolution]
}

// CreateFault opens a new fault record. Status defaults to open; an
// explicit resolved status is accepted only together with a resolution.
func (s *FaultService) CreateFault(ctx context.Context, actor model.User, req CreateFaultRequest) (model.Fault, error) {
	if !authz.CanManage(actor.Role) {
		return model.Fault{}, ErrUnauthorized
	}

	status := req.Status.UnwrapOr(model.FaultStatusOpen)
	if !status.Valid() {
		return model.Fault{}, ErrInvalidFaultStatus
	}
	if !req.Priority.Valid() {
		return model.Fault{}, ErrInvalidFaultPriority
	}
	if (status == model.FaultStatusResolved) != req.Resolution.IsSet {
		return model.Fault{}, ErrResolutionMismatch
	}
	if req.Resolution.IsSet {
		resolution, err := normalizeResolution(req.Resolution.Val)
		if err != nil {
			return model.Fault{}, err
		}
		req.Resolution = util.Some(resolution)
	}

	fault, err := s.store.CreateFault(ctx, database.CreateFaultParams{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		SiteID:      req.SiteID,
		Status:      status,
		Priority:    req.Priority,
		CreatedBy:   actor.ID,
		AssignedTo:  req.AssignedTo,
		PhotoURLs:   req.PhotoURLs,
		Resolution:  req.Resolution,
	})
	if err != nil {
		return fault, err
	}

	s.telemetry.RecordFaultCreated(ctx, string(fault.Priority))
	s.auditor.Record(ctx, "fault", fault.ID, "create", actor.ID, nil, map[string]any{
		"title": fault.Title, "site_id": fault.SiteID, "status": fault.Status,
	})
	return fault, nil
}

// GetFault fetches one fault, applying the caller's visibility rules.
func (s *FaultService) GetFault(ctx context.Context, actor model.User, id uuid.UUID) (model.Fault, error) {
	fault, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return fault, err
	}
	if !authz.CanView(actor.Role, actor.SiteIDs, fault.SiteID) {
		return model.Fault{}, ErrFaultNotVisible
	}
	return fault, nil
}

type FaultFilter struct {
	Status        util.Optional[model.FaultStatus]
	SiteID        util.Optional[uuid.UUID]
	CreatedAfter  util.Optional[time.Time]
	CreatedBefore util.Optional[time.Time]
}

// ListFaults lists the faults the caller may see, newest first. A
// customer without site memberships gets an empty list.
func (s *FaultService) ListFaults(ctx context.Context, actor model.User, filter FaultFilter) ([]model.Fault, error) {
	params := database.ListFaultsParams{
		Status:        filter.Status,
		CreatedAfter:  filter.CreatedAfter,
		CreatedBefore: filter.CreatedBefore,
	}

	sites, restricted := authz.VisibleSites(actor)
	if restricted {
		if filter.SiteID.IsSet {
			// Intersect the requested site with the caller's memberships.
			allowed := false
			for _, siteID := range sites {
				if siteID == filter.SiteID.Val {
					allowed = true
					break
				}
			}
			if !allowed {
				return []model.Fault{}, nil
			}
			params.SiteIDs = util.Some([]uuid.UUID{filter.SiteID.Val})
		} else {
			if sites == nil {
				sites = []uuid.UUID{}
			}
			params.SiteIDs = util.Some(sites)
		}
	} else if filter.SiteID.IsSet {
		params.SiteIDs = util.Some([]uuid.UUID{filter.SiteID.Val})
	}

	return s.store.ListFaults(ctx, params)
}

type UpdateFaultRequest struct {
	Title       util.Optional[string]
	Description util.Optional[string]
	Location    util.Optional[string]
	SiteID      util.Optional[uuid.UUID]
	Status      util.Optional[model.FaultStatus]
	Priority    util.Optional[model.Priority]
	AssignedTo  util.Optional[util.Optional[uuid.UUID]]
	PhotoURLs   util.Optional[[]string]
}

// UpdateFault applies general edits. The resolution/status invariant is
// enforced strictly: moving into resolved requires an existing
// resolution (use ResolveFault), and moving out of resolved drops it.
func (s *FaultService) UpdateFault(ctx context.Context, actor model.User, id uuid.UUID, req UpdateFaultRequest) (model.Fault, error) {
	if !authz.CanManage(actor.Role) {
		return model.Fault{}, ErrUnauthorized
	}

	fault, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Fault{}, err
	}

	params := database.UpdateFaultParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		SiteID:      req.SiteID,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		PhotoURLs:   req.PhotoURLs,
	}

	if req.Status.IsSet {
		status := req.Status.Val
		if !status.Valid() {
			return model.Fault{}, ErrInvalidFaultStatus
		}
		if status == model.FaultStatusResolved && !fault.Resolution.IsSet {
			return model.Fault{}, ErrResolutionMismatch
		}
		if status != model.FaultStatusResolved && fault.Resolution.IsSet {
			params.ClearResolution = true
		}
		params.Status = req.Status
	}
	if req.Priority.IsSet && !req.Priority.Val.Valid() {
		return model.Fault{}, ErrInvalidFaultPriority
	}

	oldStatus := fault.Status
	if err := s.store.UpdateFault(ctx, id, params); err != nil {
		return model.Fault{}, err
	}

	updated, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Fault{}, err
	}

	s.auditor.Record(ctx, "fault", id, "update", actor.ID,
		map[string]any{"status": oldStatus},
		map[string]any{"status": updated.Status})
	return updated, nil
}

type ResolveFaultRequest struct {
	Description string `validate:"required"`
	Materials   []string
	CompletedAt util.Optional[time.Time]
	PhotoURLs   []string
}

// ResolveFault performs the dedicated resolve transition: status moves to
// resolved and the resolution is attached in one atomic write. Blank
// material entries are dropped; photo lists merge existing-then-new in
// order, without de-duplication.
func (s *FaultService) ResolveFault(ctx context.Context, actor model.User, id uuid.UUID, req ResolveFaultRequest) (model.Fault, error) {
	fault, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Fault{}, err
	}
	if !authz.CanResolve(actor.Role, fault.Status) {
		if fault.Status == model.FaultStatusResolved {
			return model.Fault{}, ErrFaultAlreadyResolved
		}
		return model.Fault{}, ErrUnauthorized
	}

	resolution, err := normalizeResolution(model.Resolution{
		Description: req.Description,
		Materials:   req.Materials,
		CompletedAt: req.CompletedAt.UnwrapOr(time.Now().UTC()),
		CompletedBy: actor.ID,
		PhotoURLs:   req.PhotoURLs,
	})
	if err != nil {
		return model.Fault{}, err
	}
	if fault.Resolution.IsSet {
		resolution.PhotoURLs = append(append([]string{}, fault.Resolution.Val.PhotoURLs...), req.PhotoURLs...)
	}

	err = s.store.UpdateFault(ctx, id, database.UpdateFaultParams{
		Status:     util.Some(model.FaultStatusResolved),
		Resolution: util.Some(resolution),
	})
	if err != nil {
		return model.Fault{}, err
	}

	updated, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Fault{}, err
	}

	s.telemetry.RecordFaultResolved(ctx, ComputeDuration(updated.CreatedAt, resolution.CompletedAt).TotalHours)
	s.auditor.Record(ctx, "fault", id, "resolve", actor.ID,
		map[string]any{"status": fault.Status},
		map[string]any{"status": model.FaultStatusResolved, "completed_at": resolution.CompletedAt})
	return updated, nil
}

type UpdateResolutionRequest struct {
	Description util.Optional[string]
	Materials   util.Optional[[]string]
	CompletedAt util.Optional[time.Time]
	PhotoURLs   []string
}

// UpdateResolution edits the resolution of an already resolved fault
// without touching its status. New photos append after the existing ones.
func (s *FaultService) UpdateResolution(ctx context.Context, actor model.User, id uuid.UUID, req UpdateResolutionRequest) (model.Fault, error) {
	if !authz.CanManage(actor.Role) {
		return model.Fault{}, ErrUnauthorized
	}

	fault, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Fault{}, err
	}
	if fault.Status != model.FaultStatusResolved || !fault.Resolution.IsSet {
		return model.Fault{}, ErrResolutionMismatch
	}

	resolution := fault.Resolution.Val
	if req.Description.IsSet {
		resolution.Description = req.Description.Val
	}
	if req.Materials.IsSet {
		resolution.Materials = req.Materials.Val
	}
	if req.CompletedAt.IsSet {
		resolution.CompletedAt = req.CompletedAt.Val
	}
	resolution.PhotoURLs = append(resolution.PhotoURLs, req.PhotoURLs...)

	resolution, err = normalizeResolution(resolution)
	if err != nil {
		return model.Fault{}, err
	}

	err = s.store.UpdateFault(ctx, id, database.UpdateFaultParams{
		Resolution: util.Some(resolution),
	})
	if err != nil {
		return model.Fault{}, err
	}
	return s.store.GetFaultByID(ctx, id)
}

// AddComment appends one immutable comment. The author name is
// denormalized at write time; the message is trimmed and must not be
// blank. Prior comments are never touched.
func (s *FaultService) AddComment(ctx context.Context, actor model.User, id uuid.UUID, message string) (model.Comment, error) {
	fault, err := s.store.GetFaultByID(ctx, id)
	if err != nil {
		return model.Comment{}, err
	}
	if !authz.CanComment(actor.Role, actor.SiteIDs, fault.SiteID) {
		return model.Comment{}, ErrUnauthorized
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return model.Comment{}, ErrBlankComment
	}

	comment := model.Comment{
		ID:         uuid.New(),
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.AppendComment(ctx, id, comment); err != nil {
		return model.Comment{}, err
	}
	return comment, nil
}

// DeleteFault removes the record irreversibly.
func (s *FaultService) DeleteFault(ctx context.Context, actor model.User, id uuid.UUID) error {
	if !authz.CanManage(actor.Role) {
		return ErrUnauthorized
	}
	if err := s.store.DeleteFault(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, "fault", id, "delete", actor.ID, nil, nil)
	return nil
}

// normalizeResolution rejects blank descriptions and drops blank or
// whitespace-only material entries while preserving order.
func normalizeResolution(resolution model.Resolution) (model.Resolution, error) {
	resolution.Description = strings.TrimSpace(resolution.Description)
	if resolution.Description == "" {
		return resolution, ErrBlankResolution
	}

	materials := make([]string, 0, len(resolution.Materials))
	for _, material := range resolution.Materials {
		material = strings.TrimSpace(material)
		if material != "" {
			materials = append(materials, material)
		}
	}
	resolution.Materials = materials

	if resolution.PhotoURLs == nil {
		resolution.PhotoURLs = []string{}
	}
	if resolution.CompletedAt.IsZero() {
		resolution.CompletedAt = time.Now().UTC()
	}
	return resolution, nil
}
