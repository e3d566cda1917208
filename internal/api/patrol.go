package api

import (
	"time"

	"solartrack/internal/middleware"
	"solartrack/internal/model"
	"solartrack/internal/service"
	"solartrack/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createPatrolCheckBody struct {
	SiteID      string          `json:"site_id"`
	Shift       string          `json:"shift"`
	Slot        string          `json:"slot"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	PhotoURLs   []string        `json:"photo_urls"`
	Location    *model.GeoPoint `json:"location"`
}

func (h *Handler) CreatePatrolCheck(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	var body createPatrolCheckBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	siteID, err := uuid.Parse(body.SiteID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.CreateCheckRequest{
		SiteID:      siteID,
		Shift:       model.PatrolShift(body.Shift),
		Slot:        body.Slot,
		Status:      model.PatrolStatus(body.Status),
		Description: body.Description,
		PhotoURLs:   body.PhotoURLs,
	}
	if body.Location != nil {
		req.Location = util.Some(*body.Location)
	}
	if err := h.validate.Validate(req); err != nil {
		return mapError(c, err)
	}

	check, err := h.patrols.CreateCheck(c.Context(), actor, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"check": newPatrolCheckResponse(check)})
}

func (h *Handler) ListPatrolChecks(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	var req service.ListChecksRequest
	if site := c.Query("site_id"); site != "" {
		siteID, err := uuid.Parse(site)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.SiteID = util.Some(siteID)
	}
	if guard := c.Query("guard_id"); guard != "" {
		guardID, err := uuid.Parse(guard)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.GuardID = util.Some(guardID)
	}
	if after := c.Query("checked_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.CheckedAfter = util.Some(t)
	}
	if before := c.Query("checked_before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.CheckedBefore = util.Some(t)
	}

	checks, err := h.patrols.ListChecks(c.Context(), actor, req)
	if err != nil {
		return mapError(c, err)
	}

	out := make([]patrolCheckResponse, 0, len(checks))
	for _, check := range checks {
		out = append(out, newPatrolCheckResponse(check))
	}
	return c.JSON(fiber.Map{"checks": out})
}

// PatrolSlots returns the slot schedule per shift so clients never
// hardcode it.
func (h *Handler) PatrolSlots(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"slots": fiber.Map{
			string(model.PatrolShiftDay):   service.Slots(model.PatrolShiftDay),
			string(model.PatrolShiftNight): service.Slots(model.PatrolShiftNight),
		},
	})
}
