// Package report renders fault record sets as downloadable documents.
package report

import (
	"strings"
	"time"

	"solartrack/internal/model"

	"github.com/google/uuid"
)

// dateLayout matches the Turkish locale rendering used everywhere a
// timestamp is shown to users.
const dateLayout = "02.01.2006 15:04:05"

const unknownSiteName = "Bilinmeyen Saha"

var csvHeader = []string{
	"Arıza No", "Başlık", "Saha", "Durum", "Öncelik", "Oluşturma Tarihi", "Çözüm Tarihi",
}

// FaultsCSV serializes the given fault set to CSV. Every cell is quoted,
// embedded quotes are doubled, and unresolved records carry a literal
// "-" in the resolution column. The output always has one header line
// plus one line per record.
func FaultsCSV(faults []model.Fault, siteNames map[uuid.UUID]string) string {
	var b strings.Builder
	writeRow(&b, csvHeader)

	for _, fault := range faults {
		siteName, ok := siteNames[fault.SiteID]
		if !ok {
			siteName = unknownSiteName
		}
		resolvedAt := "-"
		if fault.Resolution.IsSet {
			resolvedAt = fault.Resolution.Val.CompletedAt.Format(dateLayout)
		}
		writeRow(&b, []string{
			fault.ShortID(),
			fault.Title,
			siteName,
			displayStatus(fault.Status),
			displayPriority(fault.Priority),
			fault.CreatedAt.Format(dateLayout),
			resolvedAt,
		})
	}
	return b.String()
}

// Filename derives the download name for a report generated on the
// given day.
func Filename(now time.Time) string {
	return "ariza-raporu-" + now.Format("2006-01-02") + ".csv"
}

func writeRow(b *strings.Builder, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// displayStatus renders the wire value for humans: first letter
// uppercased, dash replaced by a space ("devam-ediyor" reads
// "Devam ediyor").
func displayStatus(status model.FaultStatus) string {
	return titleCase(strings.ReplaceAll(string(status), "-", " "))
}

func displayPriority(priority model.Priority) string {
	return titleCase(string(priority))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
