package clinic

import (
	"context"
	"errors"
	"fmt"
)

// SyncUser ensures an identity record exists for an externally authenticated
// requester. First sight creates the record with the patient role; repeat
// calls refresh email and name without touching the role or creating a
// duplicate. The identity provider is trusted as given.
func (s *Scheduler) SyncUser(ctx context.Context, id, email, name string) (*User, error) {
	if id == "" || email == "" {
		return nil, errors.New("user id and email are required")
	}
	if name == "" {
		name = "No Name"
	}

	u, err := s.repo.UpsertUser(ctx, id, email, name)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// GetUser loads one identity record.
func (s *Scheduler) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// ListUsers returns the whole directory, staff only.
func (s *Scheduler) ListUsers(ctx context.Context, requesterRole Role) ([]User, error) {
	if !requesterRole.IsStaff() {
		return nil, ErrForbidden
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
