package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/types"
)

const sender = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

// Static error variables for testing
var (
	errTestSource = errors.New("explorer down")
)

// MockUTXOSource is a mock implementation of UTXOSource
type MockUTXOSource struct {
	mock.Mock
}

func (m *MockUTXOSource) GetUtxosOfAddress(ctx context.Context, address string) ([]types.UTXO, error) {
	args := m.Called(ctx, address)
	utxos, _ := args.Get(0).([]types.UTXO)
	return utxos, args.Error(1)
}

func fundedSource(value uint64) *MockUTXOSource {
	source := new(MockUTXOSource)
	source.On("GetUtxosOfAddress", mock.Anything, sender).Return([]types.UTXO{
		{Txid: fmt.Sprintf("%064x", 1), Vout: 2, Value: value},
		{Txid: fmt.Sprintf("%064x", 2), Vout: 0, Value: 1},
	}, nil)
	return source
}

func payToScript(t *testing.T, address string) []byte {
	t.Helper()
	decoded, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	require.NoError(t, err)
	raw, err := txscript.PayToAddrScript(decoded)
	require.NoError(t, err)
	return raw
}

// Test Build

func TestBuild_ClaimAndInscribe(t *testing.T) {
	b := New(fundedSource(10000), Options{})

	template, err := b.Build(context.Background(), Request{
		Name:          "Alice",
		SenderAddress: sender,
		Claim:         true,
		Inscriptions: []Inscription{
			{Key: types.KeyWebsite, Value: "https://alice.example"},
			{Key: types.KeyNostr, Value: "xyz"},
		},
	})
	require.NoError(t, err)

	_, pad, err := names.AddressForName("alice", types.NetworkMainnet)
	require.NoError(t, err)
	assert.Equal(t, pad, template.PadAddress)
	assert.Equal(t, "allce", template.Name)
	assert.Equal(t, uint64(10000-546-2000), template.Change)

	tx := template.Tx
	require.Len(t, tx.Inputs, 1)
	assert.Equal(t, fmt.Sprintf("%064x", 1), tx.Inputs[0].SourceTXID.String())
	assert.Equal(t, uint32(2), tx.Inputs[0].SourceTxOutIndex)

	require.Len(t, tx.Outputs, 4)
	assert.Equal(t, uint64(546), tx.Outputs[0].Satoshis)
	assert.Equal(t, payToScript(t, pad), []byte(*tx.Outputs[0].LockingScript))

	payload, err := records.PayloadFromScript(tx.Outputs[1].LockingScript)
	require.NoError(t, err)
	assert.Equal(t, "Alice.website=https://alice.example", string(payload))
	assert.Equal(t, uint64(0), tx.Outputs[1].Satoshis)

	payload, err = records.PayloadFromScript(tx.Outputs[2].LockingScript)
	require.NoError(t, err)
	assert.Equal(t, "Alice.nostr=xyz", string(payload))
	record, err := records.Decode(payload, "alice")
	require.NoError(t, err)
	assert.Equal(t, "allce", record.Name)

	assert.Equal(t, uint64(10000-546-2000), tx.Outputs[3].Satoshis)
	assert.Equal(t, payToScript(t, sender), []byte(*tx.Outputs[3].LockingScript))

	assert.Equal(t, []string{
		"OP_RETURN Alice.website=https://alice.example",
		"OP_RETURN Alice.nostr=xyz",
	}, template.Proposals)

	parsed, err := transaction.NewTransactionFromHex(template.Hex)
	require.NoError(t, err)
	assert.Len(t, parsed.Outputs, 4)
}

func TestBuild_InscribeOnly(t *testing.T) {
	b := New(nil, Options{Fee: 1000})

	template, err := b.Build(context.Background(), Request{
		Name:          "alice",
		SenderAddress: sender,
		Inscriptions:  []Inscription{{Key: types.KeyOwner, Value: "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"}},
		UTXO:          &types.UTXO{Txid: fmt.Sprintf("%064x", 9), Value: 5000},
	})
	require.NoError(t, err)

	require.Len(t, template.Tx.Outputs, 2)
	assert.Equal(t, uint64(4000), template.Change)
}

func TestBuild_DustChangeDropped(t *testing.T) {
	b := New(fundedSource(2546+100), Options{})

	template, err := b.Build(context.Background(), Request{Name: "alice", SenderAddress: sender, Claim: true})
	require.NoError(t, err)
	assert.Len(t, template.Tx.Outputs, 1)
	assert.Equal(t, uint64(0), template.Change)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source UTXOSource
		req    Request
		err    error
	}{
		{
			name: "nothing to do",
			req:  Request{Name: "alice", SenderAddress: sender},
			err:  ErrNothingToDo,
		},
		{
			name: "invalid name",
			req:  Request{Name: "!!", SenderAddress: sender, Claim: true},
			err:  names.ErrInvalidName,
		},
		{
			name: "invalid sender",
			req:  Request{Name: "alice", SenderAddress: "nope", Claim: true},
			err:  ErrInvalidSender,
		},
		{
			name: "testnet sender on mainnet",
			req:  Request{Name: "alice", SenderAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", Claim: true},
			err:  ErrInvalidSender,
		},
		{
			name: "no source",
			req:  Request{Name: "alice", SenderAddress: sender, Claim: true},
			err:  ErrNoUTXO,
		},
		{
			name:   "insufficient funds",
			source: fundedSource(1000),
			req:    Request{Name: "alice", SenderAddress: sender, Claim: true},
			err:    ErrInsufficientFunds,
		},
		{
			name:   "oversized inscription",
			source: fundedSource(10000),
			req: Request{
				Name:          "alice",
				SenderAddress: sender,
				Inscriptions:  []Inscription{{Key: types.KeyLinkTo, Value: strings.Repeat("x", 80)}},
			},
			err: records.ErrPayloadTooLarge,
		},
		{
			name:   "dotted name",
			source: fundedSource(10000),
			req: Request{
				Name:          "alice.btc",
				SenderAddress: sender,
				Inscriptions:  []Inscription{{Key: types.KeyWebsite, Value: "https://a.example"}},
			},
			err: records.ErrNameHasDot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.source, Options{}).Build(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBuild_SourceErrors(t *testing.T) {
	empty := new(MockUTXOSource)
	empty.On("GetUtxosOfAddress", mock.Anything, sender).Return([]types.UTXO{}, nil)
	_, err := New(empty, Options{}).Build(context.Background(), Request{Name: "alice", SenderAddress: sender, Claim: true})
	require.ErrorIs(t, err, ErrNoUTXO)

	failing := new(MockUTXOSource)
	failing.On("GetUtxosOfAddress", mock.Anything, sender).Return(nil, errTestSource)
	_, err = New(failing, Options{}).Build(context.Background(), Request{Name: "alice", SenderAddress: sender, Claim: true})
	require.ErrorIs(t, err, errTestSource)
}
