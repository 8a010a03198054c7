package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// allowedTransitions is the appointment lifecycle graph. Pending can be
// confirmed or cancelled, confirmed can only be cancelled, cancelled is
// terminal. Nothing returns to pending.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

func transitionAllowed(from, to AppointmentStatus) bool {
	if from == to {
		return true // no-op writes are harmless
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetStatus applies a lifecycle transition to one appointment. Only staff
// (admin or doctor) may call it; patients interact with the lifecycle solely
// by creating appointments. Cancelling frees the slot for the next
// availability read — nothing else is touched.
func (s *Scheduler) SetStatus(ctx context.Context, appointmentID uuid.UUID, requested string, requesterRole Role) (*Appointment, error) {
	if !requesterRole.IsStaff() {
		return nil, ErrForbidden
	}

	status, ok := ParseStatus(requested)
	if !ok {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.FindAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !transitionAllowed(appt.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, appt.Status, status)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appointmentID, status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return updated, nil
}
