package clinic

import (
	"context"
	"fmt"
)

// ListServices returns the bookable offerings. Read-only to the booking flow.
func (s *Scheduler) ListServices(ctx context.Context) ([]Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// CreateService adds an offering to the catalog, staff only.
func (s *Scheduler) CreateService(ctx context.Context, requesterRole Role, svc Service) (*Service, error) {
	if !requesterRole.IsStaff() {
		return nil, ErrForbidden
	}
	if svc.Name == "" || svc.Duration <= 0 || svc.Price < 0 {
		return nil, ErrServiceFieldsInvalid
	}

	created, err := s.repo.CreateService(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return created, nil
}
