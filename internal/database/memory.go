package database

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryEntry struct {
	plan   StoredPlan
	images map[string]ExerciseImage
	order  []string // image keys in insertion order
}

// MemoryStore keeps the most recent plans in an LRU. Evicted plans behave as
// if they were never stored.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[uuid.UUID, *memoryEntry]
	size  int
}

func NewMemoryStore(size int) (*MemoryStore, error) {
	cache, err := lru.New[uuid.UUID, *memoryEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan cache: %w", err)
	}
	return &MemoryStore{cache: cache, size: size}, nil
}

func (m *MemoryStore) SavePlan(_ context.Context, plan StoredPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(plan.ID, &memoryEntry{plan: plan, images: make(map[string]ExerciseImage)})
	return nil
}

func (m *MemoryStore) GetPlan(_ context.Context, id uuid.UUID) (StoredPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache.Get(id)
	if !ok {
		return StoredPlan{}, ErrPlanNotFound
	}
	return entry.plan, nil
}

func (m *MemoryStore) ListPlans(_ context.Context, limit, offset int) ([]StoredPlan, int, error) {
	m.mu.Lock()
	entries := m.cache.Values()
	m.mu.Unlock()

	plans := make([]StoredPlan, 0, len(entries))
	for _, e := range entries {
		plans = append(plans, e.plan)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})

	total := len(plans)
	if offset < 0 || offset >= total {
		return []StoredPlan{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return plans[offset:end], total, nil
}

func (m *MemoryStore) DeletePlan(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cache.Remove(id) {
		return ErrPlanNotFound
	}
	return nil
}

func (m *MemoryStore) SaveExerciseImage(_ context.Context, planID uuid.UUID, img ExerciseImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache.Peek(planID)
	if !ok {
		return ErrPlanNotFound
	}
	if _, exists := entry.images[img.Key]; !exists {
		entry.order = append(entry.order, img.Key)
	}
	entry.images[img.Key] = img
	return nil
}

func (m *MemoryStore) ExerciseImages(_ context.Context, planID uuid.UUID) ([]ExerciseImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache.Peek(planID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	out := make([]ExerciseImage, 0, len(entry.order))
	for _, key := range entry.order {
		out = append(out, entry.images[key])
	}
	return out, nil
}

func (m *MemoryStore) Health() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]string{
		"status":   "up",
		"backend":  "memory",
		"plans":    strconv.Itoa(m.cache.Len()),
		"capacity": strconv.Itoa(m.size),
	}
}

func (m *MemoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Purge()
}
