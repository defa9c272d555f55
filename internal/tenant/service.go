package tenant

import (
	"context"
	"fmt"
	"log/slog"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/logging"
)

// Store is the persistence port for settings.
type Store interface {
	Get(ctx context.Context, tenantID string) (Settings, error)
	Save(ctx context.Context, s Settings) (Settings, error)
}

// Service reads and updates tenant settings.
type Service struct {
	store Store
}

// NewService creates a service backed by store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the effective settings for tenantID.
func (s *Service) Get(ctx context.Context, tenantID string) (Settings, error) {
	if tenantID == "" {
		return Settings{}, fmt.Errorf("%w: tenant id required", apperrors.ErrValidation)
	}
	return s.store.Get(ctx, tenantID)
}

// Update merges p into the current settings and persists the result.
func (s *Service) Update(ctx context.Context, tenantID string, p Patch) (Settings, error) {
	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}
	next, err := current.Apply(p)
	if err != nil {
		return Settings{}, err
	}
	saved, err := s.store.Save(ctx, next)
	if err != nil {
		return Settings{}, err
	}
	logging.FromContext(ctx).Info("tenant settings updated", slog.String("tenant_id", tenantID))
	return saved, nil
}
