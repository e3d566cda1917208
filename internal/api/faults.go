package api

import (
	"time"

	"solartrack/internal/authz"
	"solartrack/internal/middleware"
	"solartrack/internal/model"
	"solartrack/internal/service"
	"solartrack/internal/storage"
	"solartrack/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) ListFaults(c *fiber.Ctx) error {
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
	return c.JSON(fiber.Map{"faults": newFaultResponses(faults)})
}

type createFaultBody struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Location    string            `json:"location"`
	SiteID      string            `json:"site_id"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	AssignedTo  string            `json:"assigned_to"`
	PhotoURLs   []string          `json:"photo_urls"`
	Resolution  *resolveFaultBody `json:"resolution"`
}

func (h *Handler) CreateFault(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	var body createFaultBody
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

	req := service.CreateFaultRequest{
		Title:       body.Title,
		Description: body.Description,
		Location:    body.Location,
		SiteID:      siteID,
		Priority:    model.Priority(body.Priority),
		PhotoURLs:   body.PhotoURLs,
	}
	if body.Status != "" {
		req.Status = util.Some(model.FaultStatus(body.Status))
	}
	if body.AssignedTo != "" {
		assigneeID, err := uuid.Parse(body.AssignedTo)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.AssignedTo = util.Some(assigneeID)
	}
	// A fault may be recorded after the fact, already resolved.
	if body.Resolution != nil {
		resolution := model.Resolution{
			Description: body.Resolution.Description,
			Materials:   body.Resolution.Materials,
			PhotoURLs:   body.Resolution.PhotoURLs,
			CompletedBy: actor.ID,
		}
		if body.Resolution.CompletedAt != "" {
			completedAt, err := time.Parse(time.RFC3339, body.Resolution.CompletedAt)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": middleware.T(c, "validation.failed"),
				})
			}
			resolution.CompletedAt = completedAt
		}
		req.Resolution = util.Some(resolution)
	}
	if err := h.validate.Validate(req); err != nil {
		return mapError(c, err)
	}

	fault, err := h.faults.CreateFault(c.Context(), actor, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"fault": newFaultResponse(fault)})
}

func (h *Handler) GetFault(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	fault, err := h.faults.GetFault(c.Context(), actor, faultID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"fault": newFaultResponse(fault)})
}

type updateFaultBody struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	SiteID      *string  `json:"site_id"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	AssignedTo  *string  `json:"assigned_to"`
	PhotoURLs   []string `json:"photo_urls"`
}

func (h *Handler) UpdateFault(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	var body updateFaultBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.UpdateFaultRequest{
		Title:       optionalFromPtr(body.Title),
		Description: optionalFromPtr(body.Description),
		Location:    optionalFromPtr(body.Location),
	}
	if body.SiteID != nil {
		siteID, err := uuid.Parse(*body.SiteID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.SiteID = util.Some(siteID)
	}
	if body.Status != nil {
		req.Status = util.Some(model.FaultStatus(*body.Status))
	}
	if body.Priority != nil {
		req.Priority = util.Some(model.Priority(*body.Priority))
	}
	if body.AssignedTo != nil {
		// An empty string clears the assignment.
		if *body.AssignedTo == "" {
			req.AssignedTo = util.Some(util.None[uuid.UUID]())
		} else {
			assigneeID, err := uuid.Parse(*body.AssignedTo)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": middleware.T(c, "validation.failed"),
				})
			}
			req.AssignedTo = util.Some(util.Some(assigneeID))
		}
	}
	if body.PhotoURLs != nil {
		req.PhotoURLs = util.Some(body.PhotoURLs)
	}

	fault, err := h.faults.UpdateFault(c.Context(), actor, faultID, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"fault": newFaultResponse(fault)})
}

func (h *Handler) DeleteFault(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	if err := h.faults.DeleteFault(c.Context(), actor, faultID); err != nil {
		return mapError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type resolveFaultBody struct {
	Description string   `json:"description"`
	Materials   []string `json:"materials"`
	CompletedAt string   `json:"completed_at"`
	PhotoURLs   []string `json:"photo_urls"`
}

func (h *Handler) ResolveFault(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	var body resolveFaultBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.ResolveFaultRequest{
		Description: body.Description,
		Materials:   body.Materials,
		PhotoURLs:   body.PhotoURLs,
	}
	if body.CompletedAt != "" {
		completedAt, err := time.Parse(time.RFC3339, body.CompletedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.CompletedAt = util.Some(completedAt)
	}

	fault, err := h.faults.ResolveFault(c.Context(), actor, faultID, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"fault": newFaultResponse(fault)})
}

type updateResolutionBody struct {
	Description *string  `json:"description"`
	Materials   []string `json:"materials"`
	CompletedAt string   `json:"completed_at"`
	PhotoURLs   []string `json:"photo_urls"`
}

func (h *Handler) UpdateResolution(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	var body updateResolutionBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	req := service.UpdateResolutionRequest{
		Description: optionalFromPtr(body.Description),
		PhotoURLs:   body.PhotoURLs,
	}
	if body.Materials != nil {
		req.Materials = util.Some(body.Materials)
	}
	if body.CompletedAt != "" {
		completedAt, err := time.Parse(time.RFC3339, body.CompletedAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": middleware.T(c, "validation.failed"),
			})
		}
		req.CompletedAt = util.Some(completedAt)
	}

	fault, err := h.faults.UpdateResolution(c.Context(), actor, faultID, req)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"fault": newFaultResponse(fault)})
}

type addCommentBody struct {
	Message string `json:"message"`
}

func (h *Handler) AddComment(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	var body addCommentBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	comment, err := h.faults.AddComment(c.Context(), actor, faultID, body.Message)
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// UploadFaultPhotos accepts multipart photo files and appends their
// stored URLs to the fault's photo list. The edit capability is checked
// before anything is written to blob storage so rejected callers cannot
// leave orphaned files behind.
func (h *Handler) UploadFaultPhotos(c *fiber.Ctx) error {
	actor, _ := middleware.CurrentUser(c)
	if !authz.CanManage(actor.Role) {
		return mapError(c, service.ErrUnauthorized)
	}

	faultID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	fault, err := h.faults.GetFault(c.Context(), actor, faultID)
	if err != nil {
		return mapError(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	files := form.File["photos"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	urls := append([]string{}, fault.PhotoURLs...)
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return mapError(c, err)
		}
		ref, err := h.blobs.Upload(c.Context(), storage.PhotoKindFault, faultID,
			fileHeader.Filename, file, fileHeader.Header.Get("Content-Type"))
		file.Close()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": middleware.T(c, "storage.upload_failed"),
			})
		}
		urls = append(urls, ref.URL)
	}

	updated, err := h.faults.UpdateFault(c.Context(), actor, faultID, service.UpdateFaultRequest{
		PhotoURLs: util.Some(urls),
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(fiber.Map{"fault": newFaultResponse(updated)})
}

func faultFilterFromQuery(c *fiber.Ctx) (service.FaultFilter, error) {
	var filter service.FaultFilter

	if status := c.Query("status"); status != "" {
		filter.Status = util.Some(model.FaultStatus(status))
	}
	if site := c.Query("site_id"); site != "" {
		siteID, err := uuid.Parse(site)
		if err != nil {
			return filter, err
		}
		filter.SiteID = util.Some(siteID)
	}
	if after := c.Query("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return filter, err
		}
		filter.CreatedAfter = util.Some(t)
	}
	if before := c.Query("created_before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return filter, err
		}
		filter.CreatedBefore = util.Some(t)
	}
	return filter, nil
}
