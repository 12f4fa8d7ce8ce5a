package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Test Resolve

func TestResolve_EndToEnd(t *testing.T) {
	ledger := newLedger(t, "alice", addrA, map[string][]types.OutScript{
		addrA: payloads("alice.website=https://alice.example"),
	})

	resolution, err := Resolve(context.Background(), ledger, "Alice", Options{})
	require.NoError(t, err)

	assert.Equal(t, "Alice", resolution.Name)
	assert.Equal(t, "allce", resolution.NormalizedName)
	assert.Equal(t, padAddressOf(t, "alice"), resolution.PadAddress)
	assert.True(t, resolution.Claimed())
	require.NotNil(t, resolution.Claim)
	assert.Equal(t, addrA, resolution.Claim.SourceAddress)

	require.NotNil(t, resolution.Record)
	assert.Equal(t, addrA, resolution.Record.Owner)
	assert.Equal(t, "https://alice.example", resolution.Record.Website)
	assert.Len(t, resolution.Changes, 1)
	assert.False(t, resolution.ResolvedAt.IsZero())
	ledger.AssertExpectations(t)
}

func TestResolve_Unclaimed(t *testing.T) {
	ledger := newLedger(t, "nobody", "", nil)

	resolution, err := Resolve(context.Background(), ledger, "nobody", Options{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusUnclaimed, resolution.Status)
	assert.Nil(t, resolution.Record)
	assert.Empty(t, resolution.Changes)
	ledger.AssertNotCalled(t, "GetOutScriptsOfAddress", mock.Anything, mock.Anything)
}

func TestResolve_Deterministic(t *testing.T) {
	scripts := map[string][]types.OutScript{
		addrA: payloads("alice.website=a", "alice.owner="+addrB, "alice.nostr=late"),
		addrB: payloads("alice.lightningAddress=bob@wallet.example", "alice.website=b"),
	}

	first, err := Resolve(context.Background(), newLedger(t, "alice", addrA, scripts), "alice", Options{})
	require.NoError(t, err)
	second, err := Resolve(context.Background(), newLedger(t, "alice", addrA, scripts), "alice", Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, first.Changes, second.Changes)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, "b", first.Record.Website)
	assert.Equal(t, addrB, first.Record.Owner)
}

func TestResolve_InvalidName(t *testing.T) {
	ledger := new(MockLedger)

	resolution, err := Resolve(context.Background(), ledger, "!!!", Options{})
	require.ErrorIs(t, err, names.ErrInvalidName)
	assert.Nil(t, resolution)
	ledger.AssertNotCalled(t, "GetFirstInputOfAddress", mock.Anything, mock.Anything)
}

func TestResolve_LedgerError(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("GetFirstInputOfAddress", mock.Anything, mock.Anything).Return(nil, errTestLedger)

	resolution, err := Resolve(context.Background(), ledger, "alice", Options{})
	require.ErrorIs(t, err, ErrLedgerQuery)
	require.ErrorIs(t, err, errTestLedger)
	assert.Nil(t, resolution)
}

func TestResolve_BudgetExceededReturnsNoResolution(t *testing.T) {
	ledger := newLedger(t, "alice", addrA, map[string][]types.OutScript{
		addrA: payloads("alice.owner=" + addrB),
		addrB: payloads("alice.owner=" + addrA),
	})

	resolution, err := Resolve(context.Background(), ledger, "alice", Options{MaxTransfers: 3})
	require.ErrorIs(t, err, ErrResolutionBudgetExceeded)
	assert.Nil(t, resolution)
}
