// Package txbuilder assembles unsigned claim and inscription transactions
// for a wallet to sign.
package txbuilder

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultClaimValue = 546
	DefaultFee        = 2000
	// DustLimit is the smallest change output worth creating.
	DustLimit = 546

	finalSequence = 0xffffffff
)

// Static error variables for err113 compliance
var (
	ErrInvalidSender     = errors.New("invalid sender address")
	ErrNoUTXO            = errors.New("sender address has no spendable outputs")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNothingToDo       = errors.New("transaction would neither claim nor inscribe")
)

// UTXOSource lists the unspent outputs of an address.
type UTXOSource interface {
	GetUtxosOfAddress(ctx context.Context, address string) ([]types.UTXO, error)
}

// Inscription is one record to publish.
type Inscription struct {
	Key   types.FieldKey
	Value string
}

// Request describes the transaction to build.
type Request struct {
	Name          string
	SenderAddress string
	// Claim adds a payment to the pad address.
	Claim        bool
	Inscriptions []Inscription
	// UTXO funds the transaction; when nil the sender's first UTXO is used.
	UTXO *types.UTXO
}

// Options configures a Builder.
type Options struct {
	Network    types.Network
	ClaimValue uint64
	Fee        uint64
}

// Template is an unsigned transaction with the facts a wallet UI shows.
type Template struct {
	Tx         *transaction.Transaction
	Hex        string
	Name       string
	PadAddress string
	Input      types.UTXO
	Change     uint64
	// Proposals lists each inscription in ASM form.
	Proposals []string
}

// Builder assembles transaction templates.
type Builder struct {
	source UTXOSource
	opts   Options
}

// New creates a Builder. source may be nil when every Request carries a UTXO.
func New(source UTXOSource, opts Options) *Builder {
	if opts.ClaimValue == 0 {
		opts.ClaimValue = DefaultClaimValue
	}
	if opts.Fee == 0 {
		opts.Fee = DefaultFee
	}
	return &Builder{source: source, opts: opts}
}

// Build assembles the transaction: one input, an optional claim output to
// the pad address, one data-carrier output per inscription, and change back
// to the sender after a fixed fee. Change below DustLimit is left to the fee.
//
// Inscriptions carry req.Name as typed, not its normalized form, so payloads
// read the same as those written by other PlebNames wallets; resolvers match
// them after normalization. The name must therefore be ASCII without '.'.
func (b *Builder) Build(ctx context.Context, req Request) (*Template, error) {
	if !req.Claim && len(req.Inscriptions) == 0 {
		return nil, ErrNothingToDo
	}

	normalized, padAddress, err := names.AddressForName(req.Name, b.opts.Network)
	if err != nil {
		return nil, err
	}

	senderScript, err := b.lockingScript(req.SenderAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSender, err)
	}

	utxo, err := b.fundingUTXO(ctx, req)
	if err != nil {
		return nil, err
	}

	spend := b.opts.Fee
	if req.Claim {
		spend += b.opts.ClaimValue
	}
	if utxo.Value < spend {
		return nil, fmt.Errorf("%w: have %d sats, need %d", ErrInsufficientFunds, utxo.Value, spend)
	}

	txid, err := chainhash.NewHashFromHex(utxo.Txid)
	if err != nil {
		return nil, fmt.Errorf("invalid utxo txid %q: %w", utxo.Txid, err)
	}

	tx := transaction.NewTransaction()
	tx.Inputs = append(tx.Inputs, &transaction.TransactionInput{
		SourceTXID:       txid,
		SourceTxOutIndex: utxo.Vout,
		SequenceNumber:   finalSequence,
	})

	if req.Claim {
		padScript, err := b.lockingScript(padAddress)
		if err != nil {
			return nil, err
		}
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: b.opts.ClaimValue, LockingScript: padScript})
	}

	proposals := make([]string, 0, len(req.Inscriptions))
	for _, inscription := range req.Inscriptions {
		s, err := records.EncodeRecordScript(req.Name, inscription.Key, inscription.Value)
		if err != nil {
			return nil, fmt.Errorf("inscription %s: %w", inscription.Key, err)
		}
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: 0, LockingScript: s})
		proposals = append(proposals, records.ProposalASM(req.Name, inscription.Key, inscription.Value))
	}

	change := utxo.Value - spend
	if change >= DustLimit {
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: senderScript})
	} else {
		change = 0
	}

	return &Template{
		Tx:         tx,
		Hex:        tx.Hex(),
		Name:       normalized,
		PadAddress: padAddress,
		Input:      utxo,
		Change:     change,
		Proposals:  proposals,
	}, nil
}

func (b *Builder) fundingUTXO(ctx context.Context, req Request) (types.UTXO, error) {
	if req.UTXO != nil {
		return *req.UTXO, nil
	}
	if b.source == nil {
		return types.UTXO{}, ErrNoUTXO
	}

	utxos, err := b.source.GetUtxosOfAddress(ctx, req.SenderAddress)
	if err != nil {
		return types.UTXO{}, fmt.Errorf("failed to list utxos of %s: %w", req.SenderAddress, err)
	}
	if len(utxos) == 0 {
		return types.UTXO{}, fmt.Errorf("%w: %s", ErrNoUTXO, req.SenderAddress)
	}
	return utxos[0], nil
}

// lockingScript returns the output script paying address on the builder's network.
func (b *Builder) lockingScript(address string) (*script.Script, error) {
	params, err := names.NetParams(b.opts.Network)
	if err != nil {
		return nil, err
	}
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, err
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("address %s is not for %s", address, params.Name)
	}
	raw, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, err
	}
	return script.NewFromBytes(raw), nil
}
