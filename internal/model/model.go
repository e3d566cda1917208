package model

import (
	"strings"
	"time"

	"solartrack/internal/util"

	"github.com/google/uuid"
)

// Role is the closed set of account roles. Anything outside this set
// resolves to no capabilities at all.
type Role string

const (
	RoleTechnician Role = "tekniker"
	RoleEngineer   Role = "muhendis"
	RoleManager    Role = "yonetici"
	RoleCustomer   Role = "musteri"
	RoleGuard      Role = "bekci"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTechnician, RoleEngineer, RoleManager, RoleCustomer, RoleGuard:
		return true
	}
	return false
}

type FaultStatus string

const (
	FaultStatusOpen       FaultStatus = "acik"
	FaultStatusInProgress FaultStatus = "devam-ediyor"
	FaultStatusPending    FaultStatus = "beklemede"
	FaultStatusResolved   FaultStatus = "cozuldu"
)

func (s FaultStatus) Valid() bool {
	switch s {
	case FaultStatusOpen, FaultStatusInProgress, FaultStatusPending, FaultStatusResolved:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "dusuk"
	PriorityMedium Priority = "orta"
	PriorityHigh   Priority = "yuksek"
	PriorityUrgent Priority = "acil"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	Name         string
	PhotoURL     util.Optional[string]
	Phone        util.Optional[string]
	Company      util.Optional[string]
	Address      util.Optional[string]
	// SiteIDs is populated for customer accounts only. It is the sole
	// basis of a customer's fault visibility.
	SiteIDs   []uuid.UUID
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Site struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type Comment struct {
	ID         uuid.UUID `json:"id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type Resolution struct {
	Description string    `json:"description"`
	Materials   []string  `json:"materials"`
	CompletedAt time.Time `json:"completed_at"`
	CompletedBy uuid.UUID `json:"completed_by"`
	PhotoURLs   []string  `json:"photo_urls"`
}

type Fault struct {
	ID          uuid.UUID
	Title       string
	Description string
	Location    string
	SiteID      uuid.UUID
	Status      FaultStatus
	Priority    Priority
	CreatedBy   uuid.UUID
	AssignedTo  util.Optional[uuid.UUID]
	PhotoURLs   []string
	Comments    []Comment
	Resolution  util.Optional[Resolution]
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShortID is the human-facing fault number shown in lists and reports.
func (f Fault) ShortID() string {
	s := strings.ReplaceAll(f.ID.String(), "-", "")
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return strings.ToUpper(s)
}

type PatrolShift string

const (
	PatrolShiftDay   PatrolShift = "gunduz"
	PatrolShiftNight PatrolShift = "gece"
)

func (s PatrolShift) Valid() bool {
	return s == PatrolShiftDay || s == PatrolShiftNight
}

type PatrolStatus string

const (
	PatrolStatusNormal   PatrolStatus = "normal"
	PatrolStatusAbnormal PatrolStatus = "anormal"
)

func (s PatrolStatus) Valid() bool {
	return s == PatrolStatusNormal || s == PatrolStatusAbnormal
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PatrolCheck is a guard's scheduled patrol record. It shares the data
// store with faults but has no ties to the fault lifecycle.
type PatrolCheck struct {
	ID          uuid.UUID
	GuardID     uuid.UUID
	SiteID      uuid.UUID
	Shift       PatrolShift
	Slot        string
	Status      PatrolStatus
	Description string
	PhotoURLs   []string
	Location    util.Optional[GeoPoint]
	CheckedAt   time.Time
	CreatedAt   time.Time
}
