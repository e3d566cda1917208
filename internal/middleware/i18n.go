package middleware

import (
	"slices"
	"strings"

	"solartrack/internal/i18n"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// I18nMiddleware resolves the request language: session first, then the
// lang query parameter, then Accept-Language, defaulting to Turkish.
func I18nMiddleware(i18nInstance *i18n.I18n, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}

		lang, ok := sess.Get("lang").(string)
		if !ok || lang == "" {
			lang = c.Query("lang")
			if lang == "" {
				if strings.HasPrefix(c.Get("Accept-Language"), "en") {
					lang = "en"
				} else {
					lang = "tr"
				}
			}
		}

		if !slices.Contains(i18nInstance.GetAvailableLanguages(), lang) {
			lang = "tr"
		}

		if currentLang, ok := sess.Get("lang").(string); !ok || currentLang != lang {
			sess.Set("lang", lang)
			if err := sess.Save(); err != nil {
				return err
			}
		}

		c.Locals("lang", lang)
		c.Locals("i18n", i18nInstance)
		return c.Next()
	}
}

func GetLang(c *fiber.Ctx) string {
	if lang, ok := c.Locals("lang").(string); ok {
		return lang
	}
	return "tr"
}

func GetI18n(c *fiber.Ctx) *i18n.I18n {
	if i18nInstance, ok := c.Locals("i18n").(*i18n.I18n); ok {
		return i18nInstance
	}
	return nil
}

func T(c *fiber.Ctx, key string) string {
	lang := GetLang(c)
	if i18nInstance := GetI18n(c); i18nInstance != nil {
		return i18nInstance.T(lang, key)
	}
	return key
}
