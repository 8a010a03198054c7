package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/storage"
)

// AddDoctor creates a roster entry. When linkedUserID is set, the referenced
// user must exist and is promoted to the doctor role in the same unit of
// work as the insert.
func (s *Scheduler) AddDoctor(ctx context.Context, name, specialization string, image *string, linkedUserID *string) (*Doctor, error) {
	if name == "" || specialization == "" {
		return nil, ErrDoctorFieldsMissing
	}

	if linkedUserID != nil {
		if *linkedUserID == "" {
			linkedUserID = nil
		} else if _, err := s.repo.FindUser(ctx, *linkedUserID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load linked user: %w", err)
		}
	}

	doc, err := s.repo.CreateDoctor(ctx, NewDoctor{
		Name:           name,
		Specialization: specialization,
		Image:          image,
		UserID:         linkedUserID,
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	return doc, nil
}

// RemoveDoctor deletes a roster entry. The linked user (if any) is demoted
// back to patient and every appointment referencing the doctor is deleted,
// all in one transaction. The profile image is cleaned up afterwards on a
// best-effort basis; a failure there is logged, never propagated.
func (s *Scheduler) RemoveDoctor(ctx context.Context, doctorID uuid.UUID, requesterRole Role) error {
	if !requesterRole.IsStaff() {
		return ErrForbidden
	}

	doc, err := s.repo.FindDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return err
		}
		return fmt.Errorf("load doctor: %w", err)
	}

	if err := s.repo.DeleteDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return err
		}
		return fmt.Errorf("delete doctor: %w", err)
	}

	if doc.Image != nil && storage.Managed(*doc.Image) {
		if err := s.images.Delete(ctx, *doc.Image); err != nil {
			s.log.Warn().Err(err).
				Str("doctor_id", doctorID.String()).
				Str("image", *doc.Image).
				Msg("failed to delete doctor image")
		}
	}

	return nil
}

// ListDoctors returns the roster, optionally narrowed to doctors compatible
// with a service category (matched against specialization).
func (s *Scheduler) ListDoctors(ctx context.Context, category string) ([]Doctor, error) {
	docs, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if category == "" {
		return docs, nil
	}

	filtered := docs[:0]
	for _, d := range docs {
		if d.Specialization == category {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}
