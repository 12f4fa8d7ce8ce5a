package inscription

import (
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// Index submits one BEEF transaction to tm and reports every admitted
// output to ls, as an overlay engine hosting only this topic would. It
// returns the indexes of the admitted outputs.
func Index(ctx context.Context, tm engine.TopicManager, ls engine.LookupService, beef []byte) ([]uint32, error) {
	instructions, err := tm.IdentifyAdmissibleOutputs(ctx, beef, nil)
	if err != nil {
		return nil, err
	}
	tx, err := transaction.NewTransactionFromBEEF(beef)
	if err != nil {
		return nil, fmt.Errorf("failed to parse BEEF: %w", err)
	}
	return notifyAdmitted(ctx, ls, tx, instructions.OutputsToAdmit, beef)
}

func notifyAdmitted(ctx context.Context, ls engine.LookupService, tx *transaction.Transaction, outputs []uint32, beef []byte) ([]uint32, error) {
	txid := tx.TxID()
	admitted := make([]uint32, 0, len(outputs))

	for _, vout := range outputs {
		if int(vout) >= len(tx.Outputs) {
			continue
		}
		output := tx.Outputs[vout]
		err := ls.OutputAdmittedByTopic(ctx, &engine.OutputAdmittedByTopic{
			Topic:         Topic,
			Outpoint:      &transaction.Outpoint{Txid: *txid, Index: vout},
			Satoshis:      output.Satoshis,
			LockingScript: output.LockingScript,
			AtomicBEEF:    beef,
		})
		if err != nil {
			return admitted, fmt.Errorf("output %d: %w", vout, err)
		}
		admitted = append(admitted, vout)
	}
	return admitted, nil
}
