// Package inscription exposes PlebNames records to a BSV overlay network:
// a topic manager admitting data-carrier outputs that carry name records and
// a lookup service indexing them.
package inscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsv-blockchain/go-overlay-services/pkg/core/engine"
	"github.com/bsv-blockchain/go-sdk/overlay"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/plebnames/go-plebnames/pkg/records"
)

// Constants for the overlay surface
const (
	// Topic is the topic manager topic for name records
	Topic = "tm_plebnames"
	// Service is the lookup service identifier for name records
	Service = "ls_plebnames"
)

// TopicManager admits every output whose locking script is a well-formed
// `name.key=value` data-carrier record. It keeps no state.
type TopicManager struct {
	logger *slog.Logger
}

// Compile-time verification that TopicManager implements engine.TopicManager
var _ engine.TopicManager = (*TopicManager)(nil)

// NewTopicManager creates a topic manager. A nil logger uses slog.Default().
func NewTopicManager(logger *slog.Logger) *TopicManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicManager{logger: logger}
}

// IdentifyAdmissibleOutputs parses the BEEF transaction and admits its record outputs.
// Data-carrier outputs are unspendable, so no previous coins are retained.
func (tm *TopicManager) IdentifyAdmissibleOutputs(_ context.Context, beef []byte, previousCoins map[uint32]*transaction.TransactionOutput) (overlay.AdmittanceInstructions, error) {
	tx, err := transaction.NewTransactionFromBEEF(beef)
	if err != nil {
		return overlay.AdmittanceInstructions{}, fmt.Errorf("failed to parse BEEF: %w", err)
	}

	outputsToAdmit := admissibleOutputs(tx)
	if len(outputsToAdmit) > 0 {
		tm.logger.Info("Admitted name record outputs", "txid", tx.TxID().String(), "count", len(outputsToAdmit))
	} else {
		tm.logger.Debug("No name record outputs admitted", "txid", tx.TxID().String(), "previousCoins", len(previousCoins))
	}

	return overlay.AdmittanceInstructions{
		OutputsToAdmit: outputsToAdmit,
		CoinsToRetain:  []uint32{},
	}, nil
}

// IdentifyNeededInputs returns no inputs; records are judged on their own output.
func (tm *TopicManager) IdentifyNeededInputs(_ context.Context, _ []byte) ([]*transaction.Outpoint, error) {
	return []*transaction.Outpoint{}, nil
}

// GetDocumentation returns the topic manager documentation.
func (tm *TopicManager) GetDocumentation() string {
	return TopicManagerDocumentation
}

// GetMetaData returns the topic manager metadata.
func (tm *TopicManager) GetMetaData() *overlay.MetaData {
	return &overlay.MetaData{
		Name:        "PlebNames Topic Manager",
		Description: "Admits data-carrier outputs carrying PlebNames records.",
	}
}

// admissibleOutputs returns the indexes of outputs carrying a parseable record.
func admissibleOutputs(tx *transaction.Transaction) []uint32 {
	outputsToAdmit := []uint32{}
	for i, output := range tx.Outputs {
		if output == nil || output.LockingScript == nil {
			continue
		}
		payload, err := records.PayloadFromScript(output.LockingScript)
		if err != nil {
			continue
		}
		if _, err := records.Parse(payload); err != nil {
			continue
		}
		outputsToAdmit = append(outputsToAdmit, uint32(i)) //nolint:gosec // bounded by the output count
	}
	return outputsToAdmit
}
