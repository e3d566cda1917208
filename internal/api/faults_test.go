package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/service"
	"solartrack/internal/storage"
	"solartrack/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
	out := []model.Fault{}
	for _, fault := range f.faults {
		out = append(out, fault)
	}
	return out, nil
}

func (f *fakeFaultStore) UpdateFault(ctx context.Context, id uuid.UUID, params database.UpdateFaultParams) error {
	fault, ok := f.faults[id]
	if !ok {
		return database.ErrFaultNotFound
	}
	if params.PhotoURLs.IsSet {
		fault.PhotoURLs = params.PhotoURLs.Val
	}
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
	delete(f.faults, id)
	return nil
}

type fakeTelemetry struct{}

func (fakeTelemetry) RecordFaultCreated(ctx context.Context, priority string)      {}
func (fakeTelemetry) RecordFaultResolved(ctx context.Context, resolutionHours int) {}
func (fakeTelemetry) Logger() *slog.Logger                                         { return slog.Default() }
func (fakeTelemetry) Shutdown(ctx context.Context) error                           { return nil }

// countingStorage records uploads so tests can assert nothing reached
// blob storage on a rejected request.
type countingStorage struct {
	uploads int
}

func (s *countingStorage) Upload(ctx context.Context, kind storage.PhotoKind, entityID uuid.UUID, filename string, content io.Reader, contentType string) (storage.PhotoRef, error) {
	s.uploads++
	return storage.PhotoRef{Key: "test/" + filename, URL: "/files/test/" + filename}, nil
}

func (s *countingStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, storage.ErrFileNotFound
}

func (s *countingStorage) Delete(ctx context.Context, key string) error { return nil }

func (s *countingStorage) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func newTestApp(store *fakeFaultStore, blobs *countingStorage, actor model.User) *fiber.App {
	faultSvc := service.NewFaultService(store, fakeTelemetry{}, nil)
	h := NewHandler(nil, &database.Database{}, nil, faultSvc, nil, blobs, validator.New())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", actor)
		return c.Next()
	})
	app.Post("/faults", h.CreateFault)
	app.Post("/faults/:id/photos", h.UploadFaultPhotos)
	return app
}

func TestCreateFaultWithResolution(t *testing.T) {
	store := newFakeFaultStore()
	actor := model.User{ID: uuid.New(), Role: model.RoleTechnician, Name: "Ali"}
	app := newTestApp(store, &countingStorage{}, actor)

	body := map[string]any{
		"title":       "İnvertör arızası",
		"description": "Sahada giderildi, kayıt sonradan girildi.",
		"site_id":     uuid.New().String(),
		"status":      "cozuldu",
		"priority":    "orta",
		"resolution": map[string]any{
			"description":  "Sigorta değiştirildi",
			"materials":    []string{"Sigorta"},
			"completed_at": "2025-06-15T14:00:00Z",
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/faults", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Len(t, store.faults, 1)
	for _, fault := range store.faults {
		assert.Equal(t, model.FaultStatusResolved, fault.Status)
		require.True(t, fault.Resolution.IsSet)
		assert.Equal(t, "Sigorta değiştirildi", fault.Resolution.Val.Description)
		assert.Equal(t, actor.ID, fault.Resolution.Val.CompletedBy)
	}
}

func TestCreateFaultResolvedWithoutResolutionRejected(t *testing.T) {
	store := newFakeFaultStore()
	actor := model.User{ID: uuid.New(), Role: model.RoleTechnician}
	app := newTestApp(store, &countingStorage{}, actor)

	raw, err := json.Marshal(map[string]any{
		"title":       "İnvertör arızası",
		"description": "Açıklama",
		"site_id":     uuid.New().String(),
		"status":      "cozuldu",
		"priority":    "orta",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/faults", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, store.faults)
}

func TestUploadFaultPhotosRejectsCustomerBeforeUpload(t *testing.T) {
	store := newFakeFaultStore()
	siteID := uuid.New()
	fault, err := store.CreateFault(context.Background(), database.CreateFaultParams{
		Title:     "Panel arızası",
		SiteID:    siteID,
		Status:    model.FaultStatusOpen,
		Priority:  model.PriorityMedium,
		CreatedBy: uuid.New(),
	})
	require.NoError(t, err)

	// The customer may view the fault but must not be able to park
	// files in blob storage through the upload endpoint.
	actor := model.User{ID: uuid.New(), Role: model.RoleCustomer, SiteIDs: []uuid.UUID{siteID}}
	blobs := &countingStorage{}
	app := newTestApp(store, blobs, actor)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photos", "panel.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/faults/"+fault.ID.String()+"/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, blobs.uploads)
	assert.Empty(t, store.faults[fault.ID].PhotoURLs)
}
