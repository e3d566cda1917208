package api

import (
	"time"

	"solartrack/internal/middleware"
	"solartrack/internal/report"
	"solartrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// FaultStats aggregates the caller's visible faults. The same filters
// as the fault list apply.
func (h *Handler) FaultStats(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	filter, err := faultFilterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	faults, err := h.faults.ListFaults(c.Context(), actor, filter)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"stats": service.ComputeFaultStats(faults)})
}

func (h *Handler) TeamPerformance(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	filter, err := faultFilterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	faults, err := h.faults.ListFaults(c.Context(), actor, filter)
	if err != nil {
		return mapError(c, err)
	}

	team, err := h.auth.ListTeam(c.Context(), actor)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"performance": service.ComputeTeamPerformance(faults, team)})
}

// ExportFaultsCSV streams the caller's filtered fault set as a CSV
// download.
func (h *Handler) ExportFaultsCSV(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	filter, err := faultFilterFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	faults, err := h.faults.ListFaults(c.Context(), actor, filter)
	if err != nil {
		return mapError(c, err)
	}

	sites, err := h.db.ListSites(c.Context())
	if err != nil {
		return mapError(c, err)
	}
	siteNames := make(map[uuid.UUID]string, len(sites))
	for _, site := range sites {
		siteNames[site.ID] = site.Name
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+report.Filename(time.Now().UTC())+`"`)
	return c.SendString(report.FaultsCSV(faults, siteNames))
}
