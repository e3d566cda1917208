// Package i18n holds the translation table for user-facing messages.
// Every error shown to a user resolves through here so wording lives in
// one place instead of being duplicated per handler.
package i18n

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Translations map[string]string

type I18n struct {
	translations map[string]Translations
	defaultLang  string
}

func New(defaultLang string) *I18n {
	return &I18n{
		translations: make(map[string]Translations),
		defaultLang:  defaultLang,
	}
}

// LoadTranslations reads every <lang>.json file under dir into the
// table. The file stem is the language code.
func (i *I18n) LoadTranslations(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}

		lang := strings.TrimSuffix(filepath.Base(path), ".json")

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := file.Close(); err != nil {
				slog.Warn("Failed to close translation file", "path", path, "error", err)
			}
		}()

		var translations Translations
		if err := json.NewDecoder(file).Decode(&translations); err != nil {
			return fmt.Errorf("i18n: failed to decode %s: %w", path, err)
		}

		i.translations[lang] = translations
		return nil
	})
}

// T resolves key in lang, falling back to the default language, then to
// a marker string so missing keys are visible rather than silent.
func (i *I18n) T(lang, key string) string {
	if translations, ok := i.translations[lang]; ok {
		if translation, ok := translations[key]; ok {
			return translation
		}
	}

	if lang != i.defaultLang {
		if translations, ok := i.translations[i.defaultLang]; ok {
			if translation, ok := translations[key]; ok {
				return translation
			}
		}
	}

	return fmt.Sprintf("[missing: %s]", key)
}

func (i *I18n) GetAvailableLanguages() []string {
	var langs []string
	for lang := range i.translations {
		langs = append(langs, lang)
	}
	return langs
}
