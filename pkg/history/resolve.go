package history

import (
	"context"
	"time"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Resolve computes the current record of a name from the ledger.
//
// Parameters:
//   - ctx: Bounds the whole resolution; checked before every ledger query
//   - ledger: The ledger query service
//   - name: The name as typed by a user; it is normalized first
//   - opts: Replay options
//
// Returns:
//   - *types.Resolution: Unclaimed, or the claimed record with its change log
//   - error: *names.InvalidNameError, ErrResolutionBudgetExceeded,
//     *LedgerQueryError or the context's error. No partial resolution is
//     returned alongside an error.
func Resolve(ctx context.Context, ledger Ledger, name string, opts Options) (*types.Resolution, error) {
	normalized, padAddress, err := names.AddressForName(name, opts.Network)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claim, err := ledger.GetFirstInputOfAddress(ctx, padAddress)
	if err != nil {
		return nil, &LedgerQueryError{Op: "GetFirstInputOfAddress", Address: padAddress, Err: err}
	}

	resolution := &types.Resolution{
		Name:           name,
		NormalizedName: normalized,
		PadAddress:     padAddress,
		Status:         types.StatusUnclaimed,
	}
	if claim == nil || claim.SourceAddress == "" {
		resolution.ResolvedAt = time.Now().UTC()
		return resolution, nil
	}

	h := New(normalized, claim.SourceAddress, opts)
	if err := h.Follow(ctx, ledger); err != nil {
		return nil, err
	}

	record := h.Data()
	claimCopy := *claim
	resolution.Status = types.StatusClaimed
	resolution.Claim = &claimCopy
	resolution.Record = &record
	resolution.Changes = h.Changes()
	resolution.Rejections = h.Rejections()
	resolution.Scripts = h.Scripts()
	resolution.Stats = h.Stats()
	resolution.ResolvedAt = time.Now().UTC()
	return resolution, nil
}
