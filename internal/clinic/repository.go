package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned by the atomic check-and-insert when a
	// non-cancelled appointment already holds the (doctor, date, slot) key.
	ErrSlotTaken = errors.New("slot already has an active appointment")
)

// NewDoctor carries the fields for a roster insert. UserID, when set, links
// the doctor to an identity record that must be promoted in the same unit
// of work.
type NewDoctor struct {
	Name           string
	Specialization string
	Image          *string
	UserID         *string
}

// NewAppointment carries the fields for a booking insert. Status is always
// set by the store, never by the caller.
type NewAppointment struct {
	PatientID string
	DoctorID  uuid.UUID
	ServiceID uuid.UUID
	Date      time.Time
	Slot      string
}

// Repository is the directory store contract. It owns all durable state;
// services never hold mutable entity copies across calls.
type Repository interface {
	// Users
	FindUser(ctx context.Context, id string) (*User, error)
	UpsertUser(ctx context.Context, id, email, name string) (*User, error)
	UpdateUserRole(ctx context.Context, id string, role Role) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Doctors. CreateDoctor promotes the linked user (if any) to the doctor
	// role in the same transaction as the insert. DeleteDoctor demotes the
	// linked user, removes the doctor's appointments, then the doctor row,
	// all in one transaction.
	FindDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	FindDoctorByUser(ctx context.Context, userID string) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	CreateDoctor(ctx context.Context, d NewDoctor) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error

	// Services
	FindService(ctx context.Context, id uuid.UUID) (*Service, error)
	ListServices(ctx context.Context) ([]Service, error)
	CreateService(ctx context.Context, s Service) (*Service, error)

	// Appointments
	FindAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, excludeStatus AppointmentStatus) ([]Appointment, error)

	// CreateAppointmentIfFree re-checks the active-slot key and inserts a
	// pending appointment as a single atomic operation, returning
	// ErrSlotTaken on conflict.
	CreateAppointmentIfFree(ctx context.Context, a NewAppointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID string) ([]AppointmentDetail, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error)
}
