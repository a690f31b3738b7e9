package database

import (
	"context"
	"errors"
	"fmt"

	"SafePlan/internal/config"
	"github.com/google/uuid"
)

// ErrPlanNotFound is returned when a plan id is unknown (or was evicted).
var ErrPlanNotFound = errors.New("plan not found")

// Store persists generated plans and their exercise illustrations.
type Store interface {
	SavePlan(ctx context.Context, plan StoredPlan) error
	GetPlan(ctx context.Context, id uuid.UUID) (StoredPlan, error)
	// ListPlans returns the newest plans first along with the total count.
	ListPlans(ctx context.Context, limit, offset int) ([]StoredPlan, int, error)
	DeletePlan(ctx context.Context, id uuid.UUID) error

	SaveExerciseImage(ctx context.Context, planID uuid.UUID, img ExerciseImage) error
	ExerciseImages(ctx context.Context, planID uuid.UUID) ([]ExerciseImage, error)

	// Health returns a map of health status information.
	Health() map[string]string
	Close()
}

// NewStore picks the backend named in cfg.StorageBackend.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendMemory:
		return NewMemoryStore(cfg.PlanCacheSize)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}
