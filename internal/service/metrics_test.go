package service

import (
	"testing"
	"time"

	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestComputeDuration(t *testing.T) {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		gap       time.Duration
		wantDays  int
		wantHours int
		wantTotal int
	}{
		{"twenty five hours", 25 * time.Hour, 1, 1, 25},
		{"exactly one day", 24 * time.Hour, 1, 0, 24},
		{"under one hour", 30 * time.Minute, 0, 0, 0},
		{"zero", 0, 0, 0, 0},
		{"negative clamps to zero", -2 * time.Hour, 0, 0, 0},
		{"three days five hours", 77 * time.Hour, 3, 5, 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ComputeDuration(base, base.Add(tt.gap))
			assert.Equal(t, tt.wantDays, d.Days)
			assert.Equal(t, tt.wantHours, d.Hours)
			assert.Equal(t, tt.wantTotal, d.TotalHours)
		})
	}
}

func TestDurationFormat(t *testing.T) {
	assert.Equal(t, "1 gün 1 saat", Duration{Days: 1, Hours: 1, TotalHours: 25}.Format())
	assert.Equal(t, "1 gün 0 saat", Duration{Days: 1, Hours: 0, TotalHours: 24}.Format())
	assert.Equal(t, "5 saat", Duration{Days: 0, Hours: 5, TotalHours: 5}.Format())
	assert.Equal(t, "1 saatten az", Duration{}.Format())
}

func TestElapsedDurationUsesResolutionTime(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(100 * time.Hour)

	open := model.Fault{CreatedAt: created}
	assert.Equal(t, 100, ElapsedDuration(open, now).TotalHours)

	resolved := model.Fault{
		CreatedAt: created,
		Resolution: util.Some(model.Resolution{
			CompletedAt: created.Add(25 * time.Hour),
		}),
	}
	assert.Equal(t, 25, ElapsedDuration(resolved, now).TotalHours)
}

func TestComputeFaultStatsEmptySet(t *testing.T) {
	stats := ComputeFaultStats(nil)

	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.ResolutionRate)
	assert.Equal(t, 0.0, stats.AvgResolutionHours)
}

func TestComputeFaultStatsAllResolved(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	faults := []model.Fault{
		{
			Status:     model.FaultStatusResolved,
			CreatedAt:  created,
			Resolution: util.Some(model.Resolution{CompletedAt: created.Add(10 * time.Hour)}),
		},
		{
			Status:     model.FaultStatusResolved,
			CreatedAt:  created,
			Resolution: util.Some(model.Resolution{CompletedAt: created.Add(30 * time.Hour)}),
		},
	}

	stats := ComputeFaultStats(faults)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1.0, stats.ResolutionRate)
	assert.Equal(t, 20.0, stats.AvgResolutionHours)
}

func TestComputeFaultStatsMixed(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	faults := []model.Fault{
		{Status: model.FaultStatusOpen, CreatedAt: created},
		{Status: model.FaultStatusInProgress, CreatedAt: created},
		{Status: model.FaultStatusPending, CreatedAt: created},
		{
			Status:     model.FaultStatusResolved,
			CreatedAt:  created,
			Resolution: util.Some(model.Resolution{CompletedAt: created.Add(8 * time.Hour)}),
		},
	}

	stats := ComputeFaultStats(faults)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 0.25, stats.ResolutionRate)
	assert.Equal(t, 1, stats.ByStatus[model.FaultStatusOpen])
	assert.Equal(t, 1, stats.ByStatus[model.FaultStatusInProgress])
	assert.Equal(t, 1, stats.ByStatus[model.FaultStatusPending])
	assert.Equal(t, 1, stats.ByStatus[model.FaultStatusResolved])
	assert.Equal(t, 8.0, stats.AvgResolutionHours)
}

func TestComputeTeamPerformanceExcludesManagers(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	tech := model.User{ID: uuid.New(), Name: "Ali", Role: model.RoleTechnician}
	manager := model.User{ID: uuid.New(), Name: "Veli", Role: model.RoleManager}
	guard := model.User{ID: uuid.New(), Name: "Ayşe", Role: model.RoleGuard}

	faults := []model.Fault{
		{
			Status:     model.FaultStatusResolved,
			CreatedAt:  created,
			AssignedTo: util.Some(tech.ID),
			Resolution: util.Some(model.Resolution{CompletedAt: created.Add(12 * time.Hour)}),
		},
		{
			Status:     model.FaultStatusOpen,
			CreatedAt:  created,
			AssignedTo: util.Some(tech.ID),
		},
		{
			Status:     model.FaultStatusOpen,
			CreatedAt:  created,
			AssignedTo: util.Some(manager.ID),
		},
	}

	perf := ComputeTeamPerformance(faults, []model.User{tech, manager, guard})

	assert.Equal(t, []string{"Veli"}, perf.Managers)
	// Guards never handle faults, so they do not appear at all.
	assert.Len(t, perf.Assignees, 1)

	entry := perf.Assignees[0]
	assert.Equal(t, "Ali", entry.Name)
	assert.Equal(t, 2, entry.Assigned)
	assert.Equal(t, 1, entry.Resolved)
	assert.Equal(t, 0.5, entry.ResolutionRate)
	assert.Equal(t, 12.0, entry.AvgResolutionHours)
}
