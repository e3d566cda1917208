package middleware

import (
	"solartrack/internal/database"
	"solartrack/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// AuthenticatedSession resolves the session's user id to a full profile
// and stores it in Locals. Every request behind it can rely on a
// resolved role; nothing downstream reads the session directly.
func AuthenticatedSession(sessionStore *session.Store, db *database.Database) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionStore.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": T(c, "error.unexpected"),
			})
		}

		rawID, ok := sess.Get("user_id").(string)
		if !ok || rawID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": T(c, "auth.login_required"),
			})
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": T(c, "auth.login_required"),
			})
		}

		user, err := db.GetUserByID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": T(c, "auth.login_required"),
			})
		}
		if user.Disabled {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": T(c, "auth.account_disabled"),
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// CurrentUser returns the profile resolved by AuthenticatedSession.
func CurrentUser(c *fiber.Ctx) (model.User, bool) {
	user, ok := c.Locals("user").(model.User)
	return user, ok
}
