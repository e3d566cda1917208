package report

import (
	"strings"
	"testing"
	"time"

	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultsCSVEmptySet(t *testing.T) {
	out := FaultsCSV(nil, nil)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `"Arıza No","Başlık","Saha","Durum","Öncelik","Oluşturma Tarihi","Çözüm Tarihi"`, lines[0])
}

func TestFaultsCSVRowCount(t *testing.T) {
	siteID := uuid.New()
	faults := make([]model.Fault, 5)
	for i := range faults {
		faults[i] = model.Fault{
			ID:        uuid.New(),
			Title:     "Panel hatası",
			SiteID:    siteID,
			Status:    model.FaultStatusOpen,
			Priority:  model.PriorityHigh,
			CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		}
	}

	out := FaultsCSV(faults, map[uuid.UUID]string{siteID: "Saha 1"})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 6)
}

func TestFaultsCSVResolvedAndUnresolvedColumns(t *testing.T) {
	siteID := uuid.New()
	resolved := model.Fault{
		ID:        uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Title:     "İnvertör arızası",
		SiteID:    siteID,
		Status:    model.FaultStatusResolved,
		Priority:  model.PriorityUrgent,
		CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Resolution: util.Some(model.Resolution{
			Description: "Sigorta değiştirildi",
			CompletedAt: time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC),
		}),
	}
	open := model.Fault{
		ID:        uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
		Title:     "Kablo hasarı",
		SiteID:    siteID,
		Status:    model.FaultStatusInProgress,
		Priority:  model.PriorityMedium,
		CreatedAt: time.Date(2025, 3, 12, 8, 15, 0, 0, time.UTC),
	}

	out := FaultsCSV([]model.Fault{resolved, open}, map[uuid.UUID]string{siteID: "Merkez GES"})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"D430C8","İnvertör arızası","Merkez GES","Cozuldu","Acil","10.03.2025 09:00:00","11.03.2025 14:30:00"`, lines[1])
	assert.Equal(t, `"D430C8","Kablo hasarı","Merkez GES","Devam ediyor","Orta","12.03.2025 08:15:00","-"`, lines[2])
}

func TestFaultsCSVQuotesEmbeddedQuotesAndCommas(t *testing.T) {
	fault := model.Fault{
		ID:        uuid.New(),
		Title:     `Panel "A12", sıra 3`,
		SiteID:    uuid.New(),
		Status:    model.FaultStatusOpen,
		Priority:  model.PriorityLow,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	out := FaultsCSV([]model.Fault{fault}, nil)

	assert.Contains(t, out, `"Panel ""A12"", sıra 3"`)
	assert.Contains(t, out, `"Bilinmeyen Saha"`)
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 7, 4, 16, 45, 0, 0, time.UTC)
	assert.Equal(t, "ariza-raporu-2025-07-04.csv", Filename(now))
}
