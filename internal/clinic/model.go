package clinic

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// IsStaff reports whether the role may perform roster and status changes.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleDoctor
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ParseStatus normalizes a requested status value. Matching is
// case-insensitive; anything outside the three known states is rejected.
func ParseStatus(s string) (AppointmentStatus, bool) {
	switch AppointmentStatus(strings.ToLower(s)) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCancelled:
		return StatusCancelled, true
	}
	return "", false
}

// User identity records are keyed by an opaque, externally issued ID.
// The identity provider authenticates; we only keep the directory entry.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

type Doctor struct {
	ID             uuid.UUID
	Name           string
	Specialization string
	Image          *string
	UserID         *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Service struct {
	ID          uuid.UUID
	Name        string
	Description string
	Duration    int // minutes
	Price       float64
	Category    *string
	CreatedAt   time.Time
}

type Appointment struct {
	ID        uuid.UUID
	PatientID string
	DoctorID  uuid.UUID
	ServiceID uuid.UUID
	Date      time.Time // date only, UTC midnight
	Slot      string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AppointmentDetail struct {
	Appointment
	Doctor  *Doctor
	Service *Service
	Patient *User
}
