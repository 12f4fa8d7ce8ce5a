// Package storage persists resolution snapshots and the record sightings of
// the overlay lookup service in MongoDB.
//
// Snapshots are a cache of a projection that can always be recomputed from
// the ledger; they are never authoritative.
package storage

import (
	"context"
	"errors"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/plebnames/go-plebnames/pkg/types"
)

// Static error variables for err113 compliance
var (
	// ErrNotFound is returned when no snapshot exists for a name.
	ErrNotFound = errors.New("resolution snapshot not found")
)

// Storage defines the interface for PlebNames storage operations
type Storage interface {
	// EnsureIndexes ensures the necessary indexes are created for the collections
	EnsureIndexes(ctx context.Context) error

	// SaveResolution upserts the snapshot of a resolution, keyed by normalized name
	SaveResolution(ctx context.Context, resolution *types.Resolution) error

	// LoadResolution returns the last snapshot of a normalized name or ErrNotFound
	LoadResolution(ctx context.Context, normalizedName string) (*types.Resolution, error)

	// StoreSighting stores a record observed in an admitted output
	StoreSighting(ctx context.Context, outpoint *transaction.Outpoint, record *types.Record) error

	// DeleteSighting deletes the sighting of an outpoint
	DeleteSighting(ctx context.Context, outpoint *transaction.Outpoint) error

	// FindSightings finds sightings matching a query
	FindSightings(ctx context.Context, query *types.SightingQuery) ([]types.Sighting, error)
}
