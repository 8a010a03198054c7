package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/carewell/clinic-scheduling/internal/redis"
)

// CreateAppointment books a slot for a patient. A distributed lock on the
// (doctor, date, slot) key keeps concurrent requests for the same slot out of
// the critical section, and the repository re-checks the key atomically with
// the insert, so at most one non-cancelled appointment can ever hold it.
// New appointments start pending.
func (s *Scheduler) CreateAppointment(ctx context.Context, patientID string, doctorID, serviceID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	if !IsTimeSlot(slot) {
		return nil, ErrInvalidSlot
	}

	if _, err := s.repo.FindUser(ctx, patientID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if _, err := s.repo.FindDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if _, err := s.repo.FindService(ctx, serviceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	day := DateOnly(date)
	key := redisclient.BookingKey(doctorID, day, slot)

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, key, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateAppointmentIfFree(lockCtx, NewAppointment{
			PatientID: patientID,
			DoctorID:  doctorID,
			ServiceID: serviceID,
			Date:      day,
			Slot:      slot,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return err
			}
			return fmt.Errorf("create appointment: %w", err)
		}
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// ListAppointments returns the requester's appointments. With asDoctor set,
// the requester's linked Doctor record scopes the list; a requester with no
// linked doctor gets an empty result rather than an error, mirroring the
// patient view of someone who has never booked.
func (s *Scheduler) ListAppointments(ctx context.Context, requesterID string, asDoctor bool) ([]AppointmentDetail, error) {
	if !asDoctor {
		appts, err := s.repo.ListAppointmentsByPatient(ctx, requesterID)
		if err != nil {
			return nil, fmt.Errorf("list patient appointments: %w", err)
		}
		return appts, nil
	}

	doc, err := s.repo.FindDoctorByUser(ctx, requesterID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return []AppointmentDetail{}, nil
		}
		return nil, fmt.Errorf("load doctor for requester: %w", err)
	}

	appts, err := s.repo.ListAppointmentsByDoctor(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return appts, nil
}
