package explorer

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Wire shapes of the Esplora REST API. They never leave this package; the
// parse functions below validate them and build domain values.

type wireStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
}

type wirePrevout struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               uint64 `json:"value"`
}

type wireInput struct {
	Txid       string       `json:"txid"`
	Vout       uint32       `json:"vout"`
	Prevout    *wirePrevout `json:"prevout"`
	IsCoinbase bool         `json:"is_coinbase"`
}

type wireOutput struct {
	ScriptPubKey        string `json:"scriptpubkey"`
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               uint64 `json:"value"`
}

type wireTransaction struct {
	Txid   string       `json:"txid"`
	Vin    []wireInput  `json:"vin"`
	Vout   []wireOutput `json:"vout"`
	Status wireStatus   `json:"status"`
}

type wireUTXO struct {
	Txid   string     `json:"txid"`
	Vout   uint32     `json:"vout"`
	Value  uint64     `json:"value"`
	Status wireStatus `json:"status"`
}

// transaction is the validated view of a wireTransaction.
type transaction struct {
	txid    string
	height  int64
	inputs  []string // prevout addresses, "" when unknown
	outputs []output
}

type output struct {
	address string
	script  *script.Script
}

func (t *transaction) confirmed() bool {
	return t.height > 0
}

func (t *transaction) spendsFrom(address string) bool {
	for _, in := range t.inputs {
		if in == address {
			return true
		}
	}
	return false
}

func (t *transaction) paysTo(address string) bool {
	for _, out := range t.outputs {
		if out.address == address {
			return true
		}
	}
	return false
}

// parseTransaction validates a wire transaction.
func parseTransaction(w *wireTransaction) (*transaction, error) {
	if _, err := chainhash.NewHashFromHex(w.Txid); err != nil {
		return nil, fmt.Errorf("%w: txid %q: %w", ErrInvalidResponse, w.Txid, err)
	}
	if w.Status.Confirmed && w.Status.BlockHeight <= 0 {
		return nil, fmt.Errorf("%w: confirmed transaction %s without block height", ErrInvalidResponse, w.Txid)
	}

	tx := &transaction{
		txid:    w.Txid,
		inputs:  make([]string, len(w.Vin)),
		outputs: make([]output, len(w.Vout)),
	}
	if w.Status.Confirmed {
		tx.height = w.Status.BlockHeight
	}

	for i, in := range w.Vin {
		if in.IsCoinbase {
			continue
		}
		if in.Prevout == nil {
			return nil, fmt.Errorf("%w: input %d of %s has no prevout", ErrInvalidResponse, i, w.Txid)
		}
		tx.inputs[i] = in.Prevout.ScriptPubKeyAddress
	}

	for i, out := range w.Vout {
		s, err := script.NewFromHex(out.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d of %s: %w", ErrInvalidResponse, i, w.Txid, err)
		}
		tx.outputs[i] = output{address: out.ScriptPubKeyAddress, script: s}
	}
	return tx, nil
}

// dataCarriers returns the OP_RETURN payloads of tx in output order.
func (t *transaction) dataCarriers() []types.OutScript {
	var out []types.OutScript
	for vout, o := range t.outputs {
		payload, err := records.PayloadFromScript(o.script)
		if err != nil {
			continue
		}
		out = append(out, types.OutScript{
			Payload: payload,
			Txid:    t.txid,
			Vout:    uint32(vout), //nolint:gosec // bounded by the transaction's output count
		})
	}
	return out
}

// parseUTXO validates a wire UTXO.
func parseUTXO(w *wireUTXO) (types.UTXO, error) {
	if _, err := chainhash.NewHashFromHex(w.Txid); err != nil {
		return types.UTXO{}, fmt.Errorf("%w: utxo txid %q: %w", ErrInvalidResponse, w.Txid, err)
	}
	return types.UTXO{Txid: w.Txid, Vout: w.Vout, Value: w.Value}, nil
}
