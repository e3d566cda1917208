package api

import (
	"log/slog"
	"strings"

	"solartrack/internal/authz"
	"solartrack/internal/database"
	"solartrack/internal/middleware"
	"solartrack/internal/model"
	"solartrack/internal/service"
	"solartrack/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.LoginRequest{
		Email:    strings.TrimSpace(strings.ToLower(body.Email)),
		Password: body.Password,
	}
	if err := h.validate.Validate(req); err != nil {
		return mapError(c, err)
	}

	user, err := h.auth.Login(c.Context(), req)
	if err != nil {
		return mapError(c, err)
	}

	sess, err := h.store.Get(c)
	if err != nil {
		return mapError(c, err)
	}
	// Fresh session id on every login.
	if err := sess.Regenerate(); err != nil {
		return mapError(c, err)
	}
	sess.Set("user_id", user.ID.String())
	if err := sess.Save(); err != nil {
		return mapError(c, err)
	}

	slog.Info("User logged in", "user_id", user.ID, "role", user.Role, "ip", c.IP())
	return c.JSON(fiber.Map{"user": toUserResponse(user)})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return mapError(c, err)
	}

	userID := sess.Get("user_id")
	if err := sess.Destroy(); err != nil {
		return mapError(c, err)
	}

	if userID != nil {
		slog.Info("User logged out", "user_id", userID, "ip", c.IP())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": middleware.T(c, "auth.login_required"),
		})
	}
	return c.JSON(fiber.Map{"user": toUserResponse(user)})
}

func (h *Handler) ListTeam(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	if !authz.CanManageUsers(actor.Role) {
		return mapError(c, service.ErrUnauthorized)
	}

	team, err := h.auth.ListTeam(c.Context(), actor)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"users": toUserResponses(team)})
}

type createTeamMemberBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	PhotoURL string `json:"photo_url"`
}

func (h *Handler) CreateTeamMember(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	var body createTeamMemberBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.CreateTeamMemberRequest{
		Email:    strings.TrimSpace(strings.ToLower(body.Email)),
		Password: body.Password,
		Name:     strings.TrimSpace(body.Name),
		Role:     model.Role(body.Role),
		Phone:    optionalString(body.Phone),
		PhotoURL: optionalString(body.PhotoURL),
	}
	if err := h.validate.Validate(req); err != nil {
		return mapError(c, err)
	}

	user, err := h.auth.CreateTeamMember(c.Context(), actor, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": toUserResponse(user)})
}

func (h *Handler) ListCustomers(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	if !authz.CanManageUsers(actor.Role) {
		return mapError(c, service.ErrUnauthorized)
	}

	customers, err := h.auth.ListCustomers(c.Context(), actor)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"users": toUserResponses(customers)})
}

type createCustomerBody struct {
	Email           string   `json:"email"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
	Name            string   `json:"name"`
	Company         string   `json:"company"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	SiteIDs         []string `json:"site_ids"`
}

func (h *Handler) CreateCustomer(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	var body createCustomerBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	siteIDs, err := parseUUIDs(body.SiteIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.CreateCustomerRequest{
		Email:           strings.TrimSpace(strings.ToLower(body.Email)),
		Password:        body.Password,
		ConfirmPassword: body.ConfirmPassword,
		Name:            strings.TrimSpace(body.Name),
		Company:         optionalString(body.Company),
		Phone:           optionalString(body.Phone),
		Address:         optionalString(body.Address),
		SiteIDs:         siteIDs,
	}
	if err := h.validate.Validate(req); err != nil {
		return mapError(c, err)
	}

	user, err := h.auth.CreateCustomer(c.Context(), actor, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": toUserResponse(user)})
}

type updateUserBody struct {
	Name     *string  `json:"name"`
	Phone    *string  `json:"phone"`
	Company  *string  `json:"company"`
	Address  *string  `json:"address"`
	PhotoURL *string  `json:"photo_url"`
	SiteIDs  []string `json:"site_ids"`
	Disabled *bool    `json:"disabled"`
}

func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	var body updateUserBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.UpdateUserRequest{
		Name:     optionalFromPtr(body.Name),
		Phone:    optionalFromPtr(body.Phone),
		Company:  optionalFromPtr(body.Company),
		Address:  optionalFromPtr(body.Address),
		PhotoURL: optionalFromPtr(body.PhotoURL),
		Disabled: optionalBoolFromPtr(body.Disabled),
	}
	if body.SiteIDs != nil {
		siteIDs, err := parseUUIDs(body.SiteIDs)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.SiteIDs = util.Some(siteIDs)
	}

	if err := h.auth.UpdateUser(c.Context(), actor, userID, req); err != nil {
		return mapError(c, err)
	}

	user, err := h.db.GetUserByID(c.Context(), userID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"user": toUserResponse(user)})
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	if err := h.auth.DeleteUser(c.Context(), actor, userID); err != nil {
		return mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ListSites(c *fiber.Ctx) error {
	sites, err := h.db.ListSites(c.Context())
	if err != nil {
		return mapError(c, err)
	}

	out := make([]fiber.Map, 0, len(sites))
	for _, site := range sites {
		out = append(out, fiber.Map{"id": site.ID.String(), "name": site.Name})
	}
	return c.JSON(fiber.Map{"sites": out})
}

type createSiteBody struct {
	Name string `json:"name"`
}

func (h *Handler) CreateSite(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	if !authz.CanManageUsers(actor.Role) {
		return mapError(c, service.ErrUnauthorized)
	}

	var body createSiteBody
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	site, err := h.db.CreateSite(c.Context(), database.CreateSiteParams{Name: strings.TrimSpace(body.Name)})
	if err != nil {
		return mapError(c, err)
	}

	slog.Info("Site created", "site_id", site.ID, "actor_id", actor.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"site": fiber.Map{"id": site.ID.String(), "name": site.Name},
	})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func optionalFromPtr(p *string) util.Optional[string] {
	if p == nil {
		return util.None[string]()
	}
	return util.Some(*p)
}

func optionalBoolFromPtr(p *bool) util.Optional[bool] {
	if p == nil {
		return util.None[bool]()
	}
	return util.Some(*p)
}
