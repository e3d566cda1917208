package api

import (
	"io"

	"solartrack/internal/middleware"
	"solartrack/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UploadPhoto stores a single photo and returns its reference. Clients
// attach the returned URL to the record they are filing (resolution or
// duty check payloads carry photo_urls inline).
func (h *Handler) UploadPhoto(c *fiber.Ctx) error {
	kind := storage.PhotoKind(c.FormValue("kind"))
	switch kind {
	case storage.PhotoKindFault, storage.PhotoKindResolution, storage.PhotoKindPatrol:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	entityID, err := uuid.Parse(c.FormValue("entity_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": middleware.T(c, "validation.failed"),
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return mapError(c, err)
	}
	defer file.Close()

	ref, err := h.blobs.Upload(c.Context(), kind, entityID,
		fileHeader.Filename, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": middleware.T(c, "storage.upload_failed"),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"photo": ref})
}

// ServeFile streams a stored blob. Only meaningful for the local
// backend; S3 URLs point at the bucket directly.
func (h *Handler) ServeFile(c *fiber.Ctx) error {
	key := c.Params("+")
	if key == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	blob, err := h.blobs.Download(c.Context(), key)
	if err != nil {
		return mapError(c, err)
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return mapError(c, err)
	}
	return c.Send(data)
}
