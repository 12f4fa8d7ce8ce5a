package inscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/overlay/lookup"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/storage"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Static error variables for err113 compliance
var (
	errValidQueryMustBeProvided  = errors.New("a valid query must be provided")
	errLookupServiceNotSupported = errors.New("lookup service not supported")
	errInvalidStringQuery        = errors.New("invalid string query: only 'findAll' is supported")
	errQueryLimitInvalid         = errors.New("query.limit must be a positive number if provided")
	errQuerySkipInvalid          = errors.New("query.skip must be a non-negative number if provided")
	errQuerySortOrderInvalid     = errors.New("query.sortOrder must be 'asc' or 'desc' if provided")
	errResolverNotConfigured     = errors.New("query.resolve is not supported by this host")
)

// NameResolver resolves a name against the ledger.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (*types.Resolution, error)
}

// Query is the object form of a lookup query.
type Query struct {
	// Resolve asks for the full resolution of a name instead of sightings.
	Resolve *string `json:"resolve,omitempty"`

	types.SightingQuery
}

// LookupService implements the overlay LookupService interface for name
// records. Admitted record outputs are stored as sightings; lookups list
// sightings or resolve a name through the configured resolver.
type LookupService struct {
	storage  storage.Storage
	resolver NameResolver
}

// Compile-time verification that LookupService implements engine.LookupService
var _ engine.LookupService = (*LookupService)(nil)

// NewLookupService creates a lookup service. resolver may be nil, which
// disables `resolve` queries.
func NewLookupService(storage storage.Storage, resolver NameResolver) *LookupService {
	return &LookupService{
		storage:  storage,
		resolver: resolver,
	}
}

// OutputAdmittedByTopic stores the record carried by an admitted output.
// Outputs of other topics and scripts that are not records are ignored.
func (s *LookupService) OutputAdmittedByTopic(ctx context.Context, payload *engine.OutputAdmittedByTopic) error {
	if payload.Topic != Topic {
		return nil
	}

	data, err := records.PayloadFromScript(payload.LockingScript)
	if err != nil {
		return nil //nolint:nilerr // admitted by another rule set, nothing to index
	}
	record, err := records.Parse(data)
	if err != nil {
		return nil //nolint:nilerr // not a record
	}

	return s.storage.StoreSighting(ctx, payload.Outpoint, record)
}

// OutputSpent removes the sighting of a spent output.
func (s *LookupService) OutputSpent(ctx context.Context, payload *engine.OutputSpent) error {
	if payload.Topic != Topic {
		return nil
	}
	return s.storage.DeleteSighting(ctx, payload.Outpoint)
}

// OutputEvicted removes the sighting of an evicted output.
func (s *LookupService) OutputEvicted(ctx context.Context, outpoint *transaction.Outpoint) error {
	return s.storage.DeleteSighting(ctx, outpoint)
}

// OutputNoLongerRetainedInHistory is a no-op; sightings carry no history.
func (s *LookupService) OutputNoLongerRetainedInHistory(_ context.Context, _ *transaction.Outpoint, _ string) error {
	return nil
}

// OutputBlockHeightUpdated is a no-op; resolution reads heights from the ledger.
func (s *LookupService) OutputBlockHeightUpdated(_ context.Context, _ *chainhash.Hash, _ uint32, _ uint64) error {
	return nil
}

// Lookup answers a lookup question.
//
// Supported query formats:
//   - String "findAll": Returns all sightings
//   - Object with name, key, limit, skip, sortOrder: Filtered sightings
//   - Object with resolve: The resolution of a name
func (s *LookupService) Lookup(ctx context.Context, question *lookup.LookupQuestion) (*lookup.LookupAnswer, error) {
	if len(question.Query) == 0 {
		return nil, errValidQueryMustBeProvided
	}
	if question.Service != Service {
		return nil, fmt.Errorf("%w: expected '%s', got '%s'", errLookupServiceNotSupported, Service, question.Service)
	}

	var queryStr string
	if err := json.Unmarshal(question.Query, &queryStr); err == nil {
		if queryStr != "findAll" {
			return nil, fmt.Errorf("%w: got '%s'", errInvalidStringQuery, queryStr)
		}
		sightings, err := s.storage.FindSightings(ctx, &types.SightingQuery{})
		if err != nil {
			return nil, err
		}
		return freeform(sightings), nil
	}

	var query Query
	if err := json.Unmarshal(question.Query, &query); err != nil {
		return nil, fmt.Errorf("failed to parse query JSON: %w", err)
	}
	if err := validateQuery(&query); err != nil {
		return nil, fmt.Errorf("invalid query format: %w", err)
	}

	if query.Resolve != nil {
		if s.resolver == nil {
			return nil, errResolverNotConfigured
		}
		resolution, err := s.resolver.Resolve(ctx, *query.Resolve)
		if err != nil {
			return nil, err
		}
		return freeform(resolution), nil
	}

	sightings, err := s.storage.FindSightings(ctx, &query.SightingQuery)
	if err != nil {
		return nil, err
	}
	return freeform(sightings), nil
}

// GetDocumentation returns the service documentation.
func (s *LookupService) GetDocumentation() string {
	return LookupDocumentation
}

// GetMetaData returns the service metadata.
func (s *LookupService) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "PlebNames Lookup Service",
		Description: "Indexes PlebNames records and resolves names.",
	}
}

func validateQuery(query *Query) error {
	if query.Limit != nil && *query.Limit < 0 {
		return errQueryLimitInvalid
	}
	if query.Skip != nil && *query.Skip < 0 {
		return errQuerySkipInvalid
	}
	if query.SortOrder != nil && *query.SortOrder != types.SortOrderAsc && *query.SortOrder != types.SortOrderDesc {
		return errQuerySortOrderInvalid
	}
	return nil
}

func freeform(result any) *lookup.LookupAnswer {
	return &lookup.LookupAnswer{
		Type:   lookup.AnswerTypeFreeform,
		Result: result,
	}
}
