package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TakenSlots returns the slot labels held by non-cancelled appointments for
// one doctor on one date. An unknown doctor yields an empty set: no doctor,
// no bookings. The result is a snapshot; the authoritative conflict check
// happens inside CreateAppointment.
func (s *Scheduler) TakenSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	appts, err := s.repo.FindAppointmentsByDoctorDate(ctx, doctorID, DateOnly(date), StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("find appointments: %w", err)
	}

	taken := make([]string, 0, len(appts))
	for _, a := range appts {
		taken = append(taken, a.Slot)
	}
	return taken, nil
}
