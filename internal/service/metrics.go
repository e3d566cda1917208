package service

import (
	"fmt"
	"time"

	"solartrack/internal/authz"
	"solartrack/internal/model"
)

// Duration is the elapsed fault age decomposed into whole days plus the
// remaining whole hours, never rounded independently.
type Duration struct {
	Days       int
	Hours      int
	TotalHours int
}

// ComputeDuration measures created..until. A negative gap clamps to zero.
func ComputeDuration(created, until time.Time) Duration {
	totalHours := int(until.Sub(created).Hours())
	if totalHours < 0 {
		totalHours = 0
	}
	return Duration{
		Days:       totalHours / 24,
		Hours:      totalHours % 24,
		TotalHours: totalHours,
	}
}

// ElapsedDuration measures a fault's age: up to its resolution time when
// resolved, otherwise up to now.
func ElapsedDuration(fault model.Fault, now time.Time) Duration {
	until := now
	if fault.Resolution.IsSet {
		until = fault.Resolution.Val.CompletedAt
	}
	return ComputeDuration(fault.CreatedAt, until)
}

// Format renders the duration in Turkish. The sub-hour case always reads
// "1 saatten az" regardless of where it is displayed.
func (d Duration) Format() string {
	switch {
	case d.Days > 0:
		return fmt.Sprintf("%d gün %d saat", d.Days, d.Hours)
	case d.Hours > 0:
		return fmt.Sprintf("%d saat", d.Hours)
	default:
		return "1 saatten az"
	}
}

type FaultStats struct {
	Total              int                       `json:"total"`
	ByStatus           map[model.FaultStatus]int `json:"by_status"`
	ResolutionRate     float64                   `json:"resolution_rate"`
	AvgResolutionHours float64                   `json:"avg_resolution_hours"`
}

// ComputeFaultStats aggregates counts, resolution rate and mean
// resolution hours over the given record set. An empty set yields a zero
// rate, never a division by zero.
func ComputeFaultStats(faults []model.Fault) FaultStats {
	stats := FaultStats{
		Total: len(faults),
		ByStatus: map[model.FaultStatus]int{
			model.FaultStatusOpen:       0,
			model.FaultStatusInProgress: 0,
			model.FaultStatusPending:    0,
			model.FaultStatusResolved:   0,
		},
	}

	var resolvedHours int
	var resolvedCount int
	for _, fault := range faults {
		stats.ByStatus[fault.Status]++
		if fault.Status == model.FaultStatusResolved && fault.Resolution.IsSet {
			resolvedHours += ComputeDuration(fault.CreatedAt, fault.Resolution.Val.CompletedAt).TotalHours
			resolvedCount++
		}
	}

	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.ByStatus[model.FaultStatusResolved]) / float64(stats.Total)
	}
	if resolvedCount > 0 {
		stats.AvgResolutionHours = float64(resolvedHours) / float64(resolvedCount)
	}
	return stats
}

type AssigneePerformance struct {
	UserID             string  `json:"user_id"`
	Name               string  `json:"name"`
	Assigned           int     `json:"assigned"`
	Resolved           int     `json:"resolved"`
	ResolutionRate     float64 `json:"resolution_rate"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

type TeamPerformance struct {
	Assignees []AssigneePerformance `json:"assignees"`
	Managers  []string              `json:"managers"`
}

// ComputeTeamPerformance groups assigned faults per team member.
// Managers never enter the aggregation; they are listed separately.
func ComputeTeamPerformance(faults []model.Fault, team []model.User) TeamPerformance {
	perf := TeamPerformance{
		Assignees: []AssigneePerformance{},
		Managers:  []string{},
	}

	for _, member := range team {
		if member.Role == model.RoleManager {
			perf.Managers = append(perf.Managers, member.Name)
			continue
		}
		if !authz.CanManage(member.Role) {
			continue
		}

		entry := AssigneePerformance{
			UserID: member.ID.String(),
			Name:   member.Name,
		}
		var resolvedHours int
		for _, fault := range faults {
			if !fault.AssignedTo.IsSet || fault.AssignedTo.Val != member.ID {
				continue
			}
			entry.Assigned++
			if fault.Status == model.FaultStatusResolved && fault.Resolution.IsSet {
				entry.Resolved++
				resolvedHours += ComputeDuration(fault.CreatedAt, fault.Resolution.Val.CompletedAt).TotalHours
			}
		}
		if entry.Assigned > 0 {
			entry.ResolutionRate = float64(entry.Resolved) / float64(entry.Assigned)
		}
		if entry.Resolved > 0 {
			entry.AvgResolutionHours = float64(resolvedHours) / float64(entry.Resolved)
		}
		perf.Assignees = append(perf.Assignees, entry)
	}
	return perf
}
