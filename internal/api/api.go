// Package api exposes the JSON HTTP surface. Handlers parse and
// validate the wire format, delegate to the services, and translate
// failures to localized responses; no business rules live here.
package api

import (
	"errors"
	"log/slog"
	"time"

	"solartrack/internal/database"
	"solartrack/internal/middleware"
	"solartrack/internal/model"
	"solartrack/internal/service"
	"solartrack/internal/storage"
	"solartrack/internal/util"
	"solartrack/internal/validator"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const timeLayout = time.RFC3339

type Handler struct {
	store    *session.Store
	db       *database.Database
	auth     *service.AuthService
	faults   *service.FaultService
	patrols  *service.PatrolService
	blobs    storage.Storage
	validate *validator.Validator
}

func NewHandler(
	store *session.Store,
	db *database.Database,
	auth *service.AuthService,
	faults *service.FaultService,
	patrols *service.PatrolService,
	blobs storage.Storage,
	validate *validator.Validator,
) *Handler {
	return &Handler{
		store:    store,
		db:       db,
		auth:     auth,
		faults:   faults,
		patrols:  patrols,
		blobs:    blobs,
		validate: validate,
	}
}

// RegisterRoutes wires every endpoint. Everything except login, health
// and file retrieval sits behind the session middleware.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Post("/login", h.Login)
	app.Get("/files/+", h.ServeFile)

	authed := app.Group("/", middleware.AuthenticatedSession(h.store, h.db))

	authed.Post("/logout", h.Logout)
	authed.Get("/me", h.Me)

	authed.Get("/faults", h.ListFaults)
	authed.Post("/faults", h.CreateFault)
	authed.Get("/faults/:id", h.GetFault)
	authed.Patch("/faults/:id", h.UpdateFault)
	authed.Delete("/faults/:id", h.DeleteFault)
	authed.Post("/faults/:id/resolve", h.ResolveFault)
	authed.Patch("/faults/:id/resolution", h.UpdateResolution)
	authed.Post("/faults/:id/comments", h.AddComment)
	authed.Post("/faults/:id/photos", h.UploadFaultPhotos)

	authed.Get("/users/team", h.ListTeam)
	authed.Post("/users/team", h.CreateTeamMember)
	authed.Get("/users/customers", h.ListCustomers)
	authed.Post("/users/customers", h.CreateCustomer)
	authed.Patch("/users/:id", h.UpdateUser)
	authed.Delete("/users/:id", h.DeleteUser)

	authed.Get("/sites", h.ListSites)
	authed.Post("/sites", h.CreateSite)

	authed.Get("/patrol-checks", h.ListPatrolChecks)
	authed.Post("/patrol-checks", h.CreatePatrolCheck)
	authed.Get("/patrol-checks/slots", h.PatrolSlots)

	authed.Get("/stats", h.FaultStats)
	authed.Get("/stats/team", h.TeamPerformance)
	authed.Get("/reports/faults.csv", h.ExportFaultsCSV)

	authed.Post("/uploads", h.UploadPhoto)
}

// mapError converts a service failure to a status code and a localized
// message. Unknown errors become opaque 500s; details go to the log
// only.
func mapError(c *fiber.Ctx, err error) error {
	type mapping struct {
		status int
		key    string
	}

	known := []struct {
		err error
		m   mapping
	}{
		{service.ErrInvalidCredentials, mapping{fiber.StatusUnauthorized, "auth.invalid_credentials"}},
		{service.ErrAccountDisabled, mapping{fiber.StatusForbidden, "auth.account_disabled"}},
		{service.ErrTooManyAttempts, mapping{fiber.StatusTooManyRequests, "auth.too_many_attempts"}},
		{service.ErrNetworkUnavailable, mapping{fiber.StatusServiceUnavailable, "auth.network_unavailable"}},
		{service.ErrEmailAlreadyRegistered, mapping{fiber.StatusConflict, "auth.email_taken"}},
		{service.ErrPasswordMismatch, mapping{fiber.StatusBadRequest, "auth.password_mismatch"}},
		{service.ErrPasswordTooShort, mapping{fiber.StatusBadRequest, "auth.password_too_short"}},
		{service.ErrCustomerNeedsSite, mapping{fiber.StatusBadRequest, "customer.site_required"}},
		{service.ErrInvalidRole, mapping{fiber.StatusBadRequest, "validation.failed"}},
		{service.ErrSelfDeletion, mapping{fiber.StatusForbidden, "auth.self_deletion"}},
		{service.ErrUnauthorized, mapping{fiber.StatusForbidden, "auth.unauthorized"}},
		{service.ErrFaultAlreadyResolved, mapping{fiber.StatusConflict, "fault.already_resolved"}},
		{service.ErrBlankResolution, mapping{fiber.StatusBadRequest, "fault.blank_resolution"}},
		{service.ErrBlankComment, mapping{fiber.StatusBadRequest, "fault.blank_comment"}},
		{service.ErrResolutionMismatch, mapping{fiber.StatusUnprocessableEntity, "fault.resolution_mismatch"}},
		{service.ErrInvalidFaultStatus, mapping{fiber.StatusBadRequest, "fault.invalid_status"}},
		{service.ErrInvalidFaultPriority, mapping{fiber.StatusBadRequest, "fault.invalid_priority"}},
		// A hidden fault reads as absent, not as forbidden.
		{service.ErrFaultNotVisible, mapping{fiber.StatusNotFound, "fault.not_found"}},
		{service.ErrNotGuard, mapping{fiber.StatusForbidden, "patrol.not_guard"}},
		{service.ErrUnknownPatrolSlot, mapping{fiber.StatusBadRequest, "patrol.unknown_slot"}},
		{service.ErrOutsideSlotWindow, mapping{fiber.StatusUnprocessableEntity, "patrol.outside_window"}},
		{database.ErrFaultNotFound, mapping{fiber.StatusNotFound, "fault.not_found"}},
		{database.ErrUserNotFound, mapping{fiber.StatusNotFound, "error.not_found"}},
		{database.ErrSiteNotFound, mapping{fiber.StatusNotFound, "error.not_found"}},
		{database.ErrEmailTaken, mapping{fiber.StatusConflict, "auth.email_taken"}},
		{storage.ErrFileNotFound, mapping{fiber.StatusNotFound, "error.not_found"}},
	}

	for _, entry := range known {
		if errors.Is(err, entry.err) {
			return c.Status(entry.m.status).JSON(fiber.Map{
				"error": middleware.T(c, entry.m.key),
			})
		}
	}

	var validationErrs playgroundvalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields = append(fields, fieldErr.Field())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  middleware.T(c, "validation.failed"),
			"fields": fields,
		})
	}

	slog.Error("Request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": middleware.T(c, "error.unexpected"),
	})
}

// Wire representations. The model structs stay free of JSON concerns
// and credentials never leave through here.

type userResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Name     string   `json:"name"`
	PhotoURL string   `json:"photo_url,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Company  string   `json:"company,omitempty"`
	Address  string   `json:"address,omitempty"`
	SiteIDs  []string `json:"site_ids,omitempty"`
	Disabled bool     `json:"disabled"`
}

func toUserResponse(user model.User) userResponse {
	resp := userResponse{
		ID:       user.ID.String(),
		Email:    user.Email,
		Role:     string(user.Role),
		Name:     user.Name,
		PhotoURL: user.PhotoURL.UnwrapOr(""),
		Phone:    user.Phone.UnwrapOr(""),
		Company:  user.Company.UnwrapOr(""),
		Address:  user.Address.UnwrapOr(""),
		Disabled: user.Disabled,
	}
	for _, siteID := range user.SiteIDs {
		resp.SiteIDs = append(resp.SiteIDs, siteID.String())
	}
	return resp
}

func toUserResponses(users []model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	return out
}

type resolutionResponse struct {
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
	CompletedAt string   `json:"completed_at"`
	CompletedBy string   `json:"completed_by"`
	PhotoURLs   []string `json:"photo_urls"`
}

type faultResponse struct {
	ID          string              `json:"id"`
	ShortID     string              `json:"short_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Location    string              `json:"location,omitempty"`
	SiteID      string              `json:"site_id"`
	Status      string              `json:"status"`
	Priority    string              `json:"priority"`
	CreatedBy   string              `json:"created_by"`
	AssignedTo  string              `json:"assigned_to,omitempty"`
	PhotoURLs   []string            `json:"photo_urls"`
	Comments    []model.Comment     `json:"comments"`
	Resolution  *resolutionResponse `json:"resolution,omitempty"`
	Duration    string              `json:"duration"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

func newFaultResponse(fault model.Fault) faultResponse {
	resp := faultResponse{
		ID:          fault.ID.String(),
		ShortID:     fault.ShortID(),
		Title:       fault.Title,
		Description: fault.Description,
		Location:    fault.Location,
		SiteID:      fault.SiteID.String(),
		Status:      string(fault.Status),
		Priority:    string(fault.Priority),
		CreatedBy:   fault.CreatedBy.String(),
		PhotoURLs:   fault.PhotoURLs,
		Comments:    fault.Comments,
		Duration:    service.ElapsedDuration(fault, time.Now().UTC()).Format(),
		CreatedAt:   fault.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   fault.UpdatedAt.UTC().Format(timeLayout),
	}
	if resp.PhotoURLs == nil {
		resp.PhotoURLs = []string{}
	}
	if resp.Comments == nil {
		resp.Comments = []model.Comment{}
	}
	if fault.AssignedTo.IsSet {
		resp.AssignedTo = fault.AssignedTo.Val.String()
	}
	if fault.Resolution.IsSet {
		resolution := fault.Resolution.Val
		resp.Resolution = &resolutionResponse{
			Description: resolution.Description,
			Materials:   resolution.Materials,
			CompletedAt: resolution.CompletedAt.UTC().Format(timeLayout),
			CompletedBy: resolution.CompletedBy.String(),
			PhotoURLs:   resolution.PhotoURLs,
		}
	}
	return resp
}

func newFaultResponses(faults []model.Fault) []faultResponse {
	out := make([]faultResponse, 0, len(faults))
	for _, fault := range faults {
		out = append(out, newFaultResponse(fault))
	}
	return out
}

type patrolCheckResponse struct {
	ID          string          `json:"id"`
	GuardID     string          `json:"guard_id"`
	SiteID      string          `json:"site_id"`
	Shift       string          `json:"shift"`
	Slot        string          `json:"slot"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	PhotoURLs   []string        `json:"photo_urls"`
	Location    *model.GeoPoint `json:"location,omitempty"`
	CheckedAt   string          `json:"checked_at"`
}

func newPatrolCheckResponse(check model.PatrolCheck) patrolCheckResponse {
	resp := patrolCheckResponse{
		ID:          check.ID.String(),
		GuardID:     check.GuardID.String(),
		SiteID:      check.SiteID.String(),
		Shift:       string(check.Shift),
		Slot:        check.Slot,
		Status:      string(check.Status),
		Description: check.Description,
		PhotoURLs:   check.PhotoURLs,
		CheckedAt:   check.CheckedAt.UTC().Format(timeLayout),
	}
	if resp.PhotoURLs == nil {
		resp.PhotoURLs = []string{}
	}
	if check.Location.IsSet {
		location := check.Location.Val
		resp.Location = &location
	}
	return resp
}

func optionalString(s string) util.Optional[string] {
	if s == "" {
		return util.None[string]()
	}
	return util.Some(s)
}
