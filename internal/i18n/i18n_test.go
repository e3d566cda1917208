package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTranslations(t *testing.T) *I18n {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"tr.json": `{"greeting": "Merhaba", "farewell": "Hoşça kal"}`,
		"en.json": `{"greeting": "Hello"}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	i := New("tr")
	require.NoError(t, i.LoadTranslations(dir))
	return i
}

func TestTranslationLookup(t *testing.T) {
	i := setupTranslations(t)

	assert.Equal(t, "Merhaba", i.T("tr", "greeting"))
	assert.Equal(t, "Hello", i.T("en", "greeting"))
}

func TestFallbackToDefaultLanguage(t *testing.T) {
	i := setupTranslations(t)

	// en has no farewell entry, so the Turkish one is served.
	assert.Equal(t, "Hoşça kal", i.T("en", "farewell"))
	assert.Equal(t, "Hoşça kal", i.T("de", "farewell"))
}

func TestMissingKeyMarker(t *testing.T) {
	i := setupTranslations(t)

	assert.Equal(t, "[missing: nonexistent]", i.T("tr", "nonexistent"))
}

func TestLoadTranslationsBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tr.json"), []byte("{broken"), 0644))

	err := New("tr").LoadTranslations(dir)
	assert.Error(t, err)
}

func TestGetAvailableLanguages(t *testing.T) {
	i := setupTranslations(t)

	assert.ElementsMatch(t, []string{"tr", "en"}, i.GetAvailableLanguages())
}
