package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/plebnames/go-plebnames/pkg/types"
)

// Ensure MemoryStorage implements Storage
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage is a process-local Storage used when no database is
// configured. It is safe for concurrent use.
type MemoryStorage struct {
	mu          sync.RWMutex
	resolutions map[string]types.Resolution
	sightings   []types.Sighting
	now         func() time.Time
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		resolutions: make(map[string]types.Resolution),
		now:         time.Now,
	}
}

// EnsureIndexes is a no-op.
func (s *MemoryStorage) EnsureIndexes(_ context.Context) error {
	return nil
}

// SaveResolution stores a copy of resolution.
func (s *MemoryStorage) SaveResolution(_ context.Context, resolution *types.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[resolution.NormalizedName] = *resolution
	return nil
}

// LoadResolution returns a copy of the stored snapshot.
func (s *MemoryStorage) LoadResolution(_ context.Context, normalizedName string) (*types.Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolution, ok := s.resolutions[normalizedName]
	if !ok {
		return nil, ErrNotFound
	}
	return &resolution, nil
}

// StoreSighting stores a sighting unless the outpoint is already known.
func (s *MemoryStorage) StoreSighting(_ context.Context, outpoint *transaction.Outpoint, record *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := outpoint.String()
	for _, existing := range s.sightings {
		if existing.Outpoint == key {
			return nil
		}
	}
	s.sightings = append(s.sightings, newSighting(outpoint, record, s.now()))
	return nil
}

// DeleteSighting removes the sighting of outpoint.
func (s *MemoryStorage) DeleteSighting(_ context.Context, outpoint *transaction.Outpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := outpoint.String()
	s.sightings = slices.DeleteFunc(s.sightings, func(sighting types.Sighting) bool {
		return sighting.Outpoint == key
	})
	return nil
}

// FindSightings applies the same filter and pagination rules as MongoStorage.
func (s *MemoryStorage) FindSightings(_ context.Context, query *types.SightingQuery) ([]types.Sighting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := sightingFilter(query)
	var results []types.Sighting
	for _, sighting := range s.sightings {
		if name, ok := filter["name"]; ok && sighting.Name != name {
			continue
		}
		if key, ok := filter["key"]; ok && string(sighting.Key) != key {
			continue
		}
		results = append(results, sighting)
	}

	slices.SortStableFunc(results, func(a, b types.Sighting) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if query != nil && query.SortOrder != nil && *query.SortOrder == types.SortOrderDesc {
		slices.Reverse(results)
	}

	if query != nil && query.Skip != nil && *query.Skip > 0 {
		if *query.Skip >= len(results) {
			return nil, nil
		}
		results = results[*query.Skip:]
	}
	if query != nil && query.Limit != nil && *query.Limit > 0 && *query.Limit < len(results) {
		results = results[:*query.Limit]
	}
	return results, nil
}
