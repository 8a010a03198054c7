package clinic

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/carewell/clinic-scheduling/internal/redis"
	"github.com/carewell/clinic-scheduling/internal/storage"
)

var (
	ErrForbidden       = errors.New("requester role is not allowed to perform this operation")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

	ErrInvalidSlot          = errors.New("time is not a recognized slot label")
	ErrInvalidStatus        = errors.New("status must be pending, confirmed or cancelled")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrDoctorFieldsMissing  = errors.New("doctor name and specialization are required")
	ErrServiceFieldsInvalid = errors.New("service needs a name, a positive duration and a non-negative price")
)

// Scheduler implements the scheduling operations: availability, booking,
// appointment lifecycle, the doctor roster and identity sync. All durable
// state goes through the repository; the locker serializes booking attempts
// per slot key.
type Scheduler struct {
	repo   Repository
	locker redisclient.Locker
	images storage.ImageStore
	log    zerolog.Logger
}

func NewScheduler(repo Repository, locker redisclient.Locker, images storage.ImageStore, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		repo:   repo,
		locker: locker,
		images: images,
		log:    log,
	}
}

// DateOnly strips the time-of-day component; appointment dates are stored as
// UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
