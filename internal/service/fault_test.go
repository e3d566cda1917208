package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFaultStore mirrors the persistence semantics in memory.
type fakeFaultStore struct {
	faults map[uuid.UUID]model.Fault
}

func newFakeFaultStore() *fakeFaultStore {
	return &fakeFaultStore{faults: make(map[uuid.UUID]model.Fault)}
}

func (f *fakeFaultStore) CreateFault(ctx context.Context, params database.CreateFaultParams) (model.Fault, error) {
	fault := model.Fault{
		ID:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		SiteID:      params.SiteID,
		Status:      params.Status,
		Priority:    params.Priority,
		CreatedBy:   params.CreatedBy,
		AssignedTo:  params.AssignedTo,
		PhotoURLs:   params.PhotoURLs,
		Comments:    []model.Comment{},
		Resolution:  params.Resolution,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	f.faults[fault.ID] = fault
	return fault, nil
}

func (f *fakeFaultStore) GetFaultByID(ctx context.Context, id uuid.UUID) (model.Fault, error) {
	fault, ok := f.faults[id]
	if !ok {
		return model.Fault{}, database.ErrFaultNotFound
	}
	return fault, nil
}

func (f *fakeFaultStore) ListFaults(ctx context.Context, params database.ListFaultsParams) ([]model.Fault, error) {
	var out []model.Fault
	for _, fault := range f.faults {
		if params.SiteIDs.IsSet {
			found := false
			for _, siteID := range params.SiteIDs.Val {
				if siteID == fault.SiteID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if params.Status.IsSet && fault.Status != params.Status.Val {
			continue
		}
		out = append(out, fault)
	}
	if out == nil {
		out = []model.Fault{}
	}
	return out, nil
}

func (f *fakeFaultStore) UpdateFault(ctx context.Context, id uuid.UUID, params database.UpdateFaultParams) error {
	fault, ok := f.faults[id]
	if !ok {
		return database.ErrFaultNotFound
	}
	if params.Title.IsSet {
		fault.Title = params.Title.Val
	}
	if params.Description.IsSet {
		fault.Description = params.Description.Val
	}
	if params.Location.IsSet {
		fault.Location = params.Location.Val
	}
	if params.SiteID.IsSet {
		fault.SiteID = params.SiteID.Val
	}
	if params.Status.IsSet {
		fault.Status = params.Status.Val
	}
	if params.Priority.IsSet {
		fault.Priority = params.Priority.Val
	}
	if params.AssignedTo.IsSet {
		fault.AssignedTo = params.AssignedTo.Val
	}
	if params.PhotoURLs.IsSet {
		fault.PhotoURLs = params.PhotoURLs.Val
	}
	if params.Resolution.IsSet {
		fault.Resolution = util.Some(params.Resolution.Val)
	}
	if params.ClearResolution {
		fault.Resolution = util.None[model.Resolution]()
	}
	fault.UpdatedAt = time.Now().UTC()
	f.faults[id] = fault
	return nil
}

func (f *fakeFaultStore) AppendComment(ctx context.Context, faultID uuid.UUID, comment model.Comment) error {
	fault, ok := f.faults[faultID]
	if !ok {
		return database.ErrFaultNotFound
	}
	fault.Comments = append(fault.Comments, comment)
	f.faults[faultID] = fault
	return nil
}

func (f *fakeFaultStore) DeleteFault(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.faults[id]; !ok {
		return database.ErrFaultNotFound
	}
	delete(f.faults, id)
	return nil
}

type fakeTelemetry struct {
	created  int
	resolved int
}

func (f *fakeTelemetry) RecordFaultCreated(ctx context.Context, priority string)      { f.created++ }
func (f *fakeTelemetry) RecordFaultResolved(ctx context.Context, resolutionHours int) { f.resolved++ }
func (f *fakeTelemetry) Logger() *slog.Logger                                         { return slog.Default() }
func (f *fakeTelemetry) Shutdown(ctx context.Context) error                           { return nil }

func newTestFaultService() (*FaultService, *fakeFaultStore, *fakeTelemetry) {
	store := newFakeFaultStore()
	telemetry := &fakeTelemetry{}
	return NewFaultService(store, telemetry, nil), store, telemetry
}

func technician() model.User {
	return model.User{ID: uuid.New(), Name: "Mehmet", Role: model.RoleTechnician}
}

func customerOf(sites ...uuid.UUID) model.User {
	return model.User{ID: uuid.New(), Name: "Müşteri", Role: model.RoleCustomer, SiteIDs: sites}
}

func TestCreateFaultDefaultsToOpen(t *testing.T) {
	svc, _, telemetry := newTestFaultService()

	fault, err := svc.CreateFault(context.Background(), technician(), CreateFaultRequest{
		Title:       "Panel çatlağı",
		Description: "A12 panelinde çatlak var",
		SiteID:      uuid.New(),
		Priority:    model.PriorityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, model.FaultStatusOpen, fault.Status)
	assert.False(t, fault.Resolution.IsSet)
	assert.Equal(t, 1, telemetry.created)
}

func TestCreateFaultRejectsNonStaff(t *testing.T) {
	svc, _, _ := newTestFaultService()

	req := CreateFaultRequest{
		Title:       "x",
		Description: "y",
		SiteID:      uuid.New(),
		Priority:    model.PriorityLow,
	}

	for _, role := range []model.Role{model.RoleCustomer, model.RoleGuard} {
		actor := model.User{ID: uuid.New(), Role: role}
		_, err := svc.CreateFault(context.Background(), actor, req)
		assert.ErrorIs(t, err, ErrUnauthorized, "role %s", role)
	}
}

func TestCreateFaultResolvedRequiresResolution(t *testing.T) {
	svc, _, _ := newTestFaultService()

	_, err := svc.CreateFault(context.Background(), technician(), CreateFaultRequest{
		Title:       "x",
		Description: "y",
		SiteID:      uuid.New(),
		Priority:    model.PriorityLow,
		Status:      util.Some(model.FaultStatusResolved),
	})
	assert.ErrorIs(t, err, ErrResolutionMismatch)
}

func TestResolveFault(t *testing.T) {
	svc, store, telemetry := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title:       "İnvertör hatası",
		Description: "f",
		SiteID:      uuid.New(),
		Priority:    model.PriorityUrgent,
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveFault(context.Background(), actor, fault.ID, ResolveFaultRequest{
		Description: "  Sigorta değiştirildi  ",
		Materials:   []string{"Sigorta", "  ", "", "Kablo"},
		PhotoURLs:   []string{"https://example.com/a.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.FaultStatusResolved, resolved.Status)
	require.True(t, resolved.Resolution.IsSet)
	assert.Equal(t, "Sigorta değiştirildi", resolved.Resolution.Val.Description)
	assert.Equal(t, []string{"Sigorta", "Kablo"}, resolved.Resolution.Val.Materials)
	assert.Equal(t, actor.ID, resolved.Resolution.Val.CompletedBy)
	assert.Equal(t, 1, telemetry.resolved)

	// Status and resolution land together.
	stored := store.faults[fault.ID]
	assert.Equal(t, model.FaultStatusResolved, stored.Status)
	assert.True(t, stored.Resolution.IsSet)
}

func TestResolveFaultBlankDescriptionRejected(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.ResolveFault(context.Background(), actor, fault.ID, ResolveFaultRequest{
		Description: "   ",
	})
	assert.ErrorIs(t, err, ErrBlankResolution)
}

func TestResolveFaultTwiceRejected(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.ResolveFault(context.Background(), actor, fault.ID, ResolveFaultRequest{Description: "tamam"})
	require.NoError(t, err)

	_, err = svc.ResolveFault(context.Background(), actor, fault.ID, ResolveFaultRequest{Description: "tekrar"})
	assert.ErrorIs(t, err, ErrFaultAlreadyResolved)
}

func TestResolveFaultCustomerRejected(t *testing.T) {
	svc, _, _ := newTestFaultService()
	siteID := uuid.New()

	fault, err := svc.CreateFault(context.Background(), technician(), CreateFaultRequest{
		Title: "x", Description: "y", SiteID: siteID, Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	// Site membership grants viewing and commenting, never resolving.
	_, err = svc.ResolveFault(context.Background(), customerOf(siteID), fault.ID, ResolveFaultRequest{
		Description: "ben çözdüm",
	})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdateFaultIntoResolvedRequiresExistingResolution(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.UpdateFault(context.Background(), actor, fault.ID, UpdateFaultRequest{
		Status: util.Some(model.FaultStatusResolved),
	})
	assert.ErrorIs(t, err, ErrResolutionMismatch)
}

func TestUpdateFaultOutOfResolvedDropsResolution(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.ResolveFault(context.Background(), actor, fault.ID, ResolveFaultRequest{Description: "tamam"})
	require.NoError(t, err)

	updated, err := svc.UpdateFault(context.Background(), actor, fault.ID, UpdateFaultRequest{
		Status: util.Some(model.FaultStatusInProgress),
	})
	require.NoError(t, err)

	assert.Equal(t, model.FaultStatusInProgress, updated.Status)
	assert.False(t, updated.Resolution.IsSet)
}

func TestAddCommentAppendsExactlyOne(t *testing.T) {
	svc, store, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	first, err := svc.AddComment(context.Background(), actor, fault.ID, "  ilk yorum  ")
	require.NoError(t, err)
	assert.Equal(t, "ilk yorum", first.Message)
	assert.Equal(t, actor.Name, first.AuthorName)

	second, err := svc.AddComment(context.Background(), actor, fault.ID, "ikinci yorum")
	require.NoError(t, err)

	comments := store.faults[fault.ID].Comments
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
	assert.False(t, comments[1].CreatedAt.Before(comments[0].CreatedAt))
}

func TestAddCommentBlankRejected(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()

	fault, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: uuid.New(), Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), actor, fault.ID, "   ")
	assert.ErrorIs(t, err, ErrBlankComment)
}

func TestAddCommentCustomerSiteMembership(t *testing.T) {
	svc, _, _ := newTestFaultService()
	siteID := uuid.New()

	fault, err := svc.CreateFault(context.Background(), technician(), CreateFaultRequest{
		Title: "x", Description: "y", SiteID: siteID, Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), customerOf(siteID), fault.ID, "sahamdaki arıza")
	assert.NoError(t, err)

	_, err = svc.AddComment(context.Background(), customerOf(uuid.New()), fault.ID, "başka saha")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListFaultsCustomerScope(t *testing.T) {
	svc, _, _ := newTestFaultService()
	actor := technician()
	siteA := uuid.New()
	siteB := uuid.New()

	for _, siteID := range []uuid.UUID{siteA, siteA, siteB} {
		_, err := svc.CreateFault(context.Background(), actor, CreateFaultRequest{
			Title: "x", Description: "y", SiteID: siteID, Priority: model.PriorityLow,
		})
		require.NoError(t, err)
	}

	faults, err := svc.ListFaults(context.Background(), customerOf(siteA), FaultFilter{})
	require.NoError(t, err)
	assert.Len(t, faults, 2)

	// Membership-less customers see nothing at all.
	faults, err = svc.ListFaults(context.Background(), customerOf(), FaultFilter{})
	require.NoError(t, err)
	assert.Empty(t, faults)

	// Requesting a site outside the membership yields nothing, not an error.
	faults, err = svc.ListFaults(context.Background(), customerOf(siteA), FaultFilter{
		SiteID: util.Some(siteB),
	})
	require.NoError(t, err)
	assert.Empty(t, faults)

	faults, err = svc.ListFaults(context.Background(), actor, FaultFilter{})
	require.NoError(t, err)
	assert.Len(t, faults, 3)
}

func TestViewAfterResolveStillVisibleToCustomer(t *testing.T) {
	svc, _, _ := newTestFaultService()
	siteID := uuid.New()
	tech := technician()
	customer := customerOf(siteID)

	fault, err := svc.CreateFault(context.Background(), tech, CreateFaultRequest{
		Title: "x", Description: "y", SiteID: siteID, Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = svc.ResolveFault(context.Background(), tech, fault.ID, ResolveFaultRequest{Description: "tamam"})
	require.NoError(t, err)

	got, err := svc.GetFault(context.Background(), customer, fault.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolution.IsSet)

	_, err = svc.ResolveFault(context.Background(), customer, fault.ID, ResolveFaultRequest{Description: "z"})
	assert.Error(t, err)
}
