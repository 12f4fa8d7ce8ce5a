// Package history replays the record stream of a claimed name.
//
// Authority follows the coin: only data-carrier outputs originated by the
// current owner are considered, and an ownership transfer immediately revokes
// the remaining records of the previous owner. Replay repeats under each new
// owner until a full pass leaves the owner unchanged.
package history

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/types"
	"github.com/plebnames/go-plebnames/pkg/utils"
)

// DefaultMaxTransfers bounds ownership transitions per resolution when
// Options.MaxTransfers is not set.
const DefaultMaxTransfers = 64

// Static error variables for err113 compliance
var (
	// ErrResolutionBudgetExceeded aborts a resolution whose ownership chain
	// does not settle within the transfer budget.
	ErrResolutionBudgetExceeded = errors.New("resolution budget exceeded")
	// ErrLedgerQuery is matched by every LedgerQueryError.
	ErrLedgerQuery = errors.New("ledger query failed")
	// ErrNotClaimed is returned when following a history that has no owner.
	ErrNotClaimed = errors.New("name has no owner")
)

// Ledger is the read-only view of the ledger the engine needs.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// GetFirstInputOfAddress returns the first party that spent into
	// address, or nil when nothing ever did.
	GetFirstInputOfAddress(ctx context.Context, address string) (*types.Claim, error)
	// GetOutScriptsOfAddress returns the data-carrier payloads of
	// transactions funded by address, oldest first.
	GetOutScriptsOfAddress(ctx context.Context, address string) ([]types.OutScript, error)
}

// LedgerQueryError wraps a failure reported by the Ledger.
type LedgerQueryError struct {
	Op      string
	Address string
	Err     error
}

func (e *LedgerQueryError) Error() string {
	return fmt.Sprintf("%s(%s): %v", e.Op, e.Address, e.Err)
}

// Unwrap exposes the ledger's error.
func (e *LedgerQueryError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrLedgerQuery) succeed.
func (e *LedgerQueryError) Is(target error) bool {
	return target == ErrLedgerQuery
}

// Options tunes a History.
type Options struct {
	// MaxTransfers caps ownership transitions; 0 means DefaultMaxTransfers.
	MaxTransfers int
	// Network owner addresses must belong to; empty means mainnet.
	Network types.Network
	// Logger receives skipped and rejected records at debug/warn level.
	Logger *slog.Logger
}

func (o Options) maxTransfers() int {
	if o.MaxTransfers <= 0 {
		return DefaultMaxTransfers
	}
	return o.MaxTransfers
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// History is the record state machine of one name. It is not safe for
// concurrent use; every resolution owns its own History.
type History struct {
	name       string
	data       types.NameRecord
	changes    []types.Record
	rejections []types.Rejection
	scripts    []types.IssuerScripts
	stats      types.ReplayStats

	maxTransfers int
	network      types.Network
	logger       *slog.Logger
}

// New seeds the history of a normalized name with its claimer. The claim is
// not a keyed record, so the change log starts empty.
func New(name, claimer string, opts Options) *History {
	return &History{
		name:         name,
		data:         types.NameRecord{Owner: claimer},
		maxTransfers: opts.maxTransfers(),
		network:      opts.Network,
		logger:       opts.logger().With("name", name),
	}
}

// Name returns the normalized name being replayed.
func (h *History) Name() string {
	return h.name
}

// Owner returns the current owner.
func (h *History) Owner() string {
	return h.data.Owner
}

// Data returns a copy of the current record.
func (h *History) Data() types.NameRecord {
	return h.data.Clone()
}

// Changes returns a copy of every applied record in replay order.
func (h *History) Changes() []types.Record {
	return slices.Clone(h.changes)
}

// Rejections returns a copy of the well-formed records that failed validation.
func (h *History) Rejections() []types.Rejection {
	return slices.Clone(h.rejections)
}

// Scripts returns the raw payloads fetched per issuer, one entry per pass.
func (h *History) Scripts() []types.IssuerScripts {
	out := make([]types.IssuerScripts, len(h.scripts))
	for i, s := range h.scripts {
		out[i] = types.IssuerScripts{Issuer: s.Issuer, Payloads: slices.Clone(s.Payloads)}
	}
	return out
}

// Stats returns the replay counters.
func (h *History) Stats() types.ReplayStats {
	return h.stats
}

// AddChangeFromRecord ingests one payload attributed to the current owner.
// It returns the reason the payload was not applied, if any: records.ErrUnrelated,
// records.ErrMalformed, records.ErrInvalidOwner or ErrResolutionBudgetExceeded.
func (h *History) AddChangeFromRecord(payload []byte) error {
	_, err := h.ingest(types.OutScript{Payload: payload})
	return err
}

// AddChangeFromScript is AddChangeFromRecord for a data-carrier locking script.
func (h *History) AddChangeFromScript(s *script.Script) error {
	payload, err := records.PayloadFromScript(s)
	if err != nil {
		h.stats.Malformed++
		return err
	}
	return h.AddChangeFromRecord(payload)
}

// AddChangeFromEntry ingests a ledger entry, keeping its provenance.
func (h *History) AddChangeFromEntry(entry types.OutScript) error {
	_, err := h.ingest(entry)
	return err
}

// Follow runs the replay loop until the owner is unchanged across a full
// pass over its outbound records.
func (h *History) Follow(ctx context.Context, ledger Ledger) error {
	if h.data.Owner == "" {
		return ErrNotClaimed
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		owner := h.data.Owner
		entries, err := ledger.GetOutScriptsOfAddress(ctx, owner)
		if err != nil {
			return &LedgerQueryError{Op: "GetOutScriptsOfAddress", Address: owner, Err: err}
		}
		h.stats.Passes++

		entries = sortedEntries(entries)
		h.recordScripts(owner, entries)

		for i, entry := range entries {
			transferred, err := h.ingest(entry)
			if errors.Is(err, ErrResolutionBudgetExceeded) {
				return err
			}
			if transferred {
				h.stats.Superseded += len(entries) - i - 1
				break
			}
		}

		if h.data.Owner == owner {
			h.logger.Debug("Replay reached quiescence", "owner", owner, "passes", h.stats.Passes)
			return nil
		}
	}
}

// ingest decodes and applies one entry. transferred reports an owner change.
func (h *History) ingest(entry types.OutScript) (transferred bool, err error) {
	record, err := records.Decode(entry.Payload, h.name)
	switch {
	case errors.Is(err, records.ErrUnrelated):
		h.stats.Unrelated++
		h.logger.Debug("Skipping unrelated record", "txid", entry.Txid, "error", err)
		return false, err
	case err != nil:
		h.stats.Malformed++
		h.logger.Debug("Skipping malformed record", "txid", entry.Txid, "error", err)
		return false, err
	}

	record.SourceAddress = h.data.Owner
	record.Txid = entry.Txid
	record.Height = entry.Position.Height

	return h.applyRecord(*record)
}

// applyRecord is the only place the record changes: last write wins per
// field, and an owner change takes effect at once.
func (h *History) applyRecord(record types.Record) (transferred bool, err error) {
	if err := records.CheckValue(record.Key, record.Value, h.network); err != nil {
		if records.IsStrictKey(record.Key) {
			h.stats.Rejected++
			h.rejections = append(h.rejections, types.Rejection{Record: record, Reason: err.Error()})
			h.logger.Warn("Rejecting record", "owner", record.SourceAddress, "key", record.Key, "reason", err)
			return false, err
		}
		h.logger.Warn("Applying record with unexpected value", "owner", record.SourceAddress, "key", record.Key, "reason", err)
	}

	if record.Key == types.KeyOwner && record.Value != h.data.Owner {
		if h.stats.Transfers >= h.maxTransfers {
			return false, fmt.Errorf("%w: more than %d ownership transfers", ErrResolutionBudgetExceeded, h.maxTransfers)
		}
		h.stats.Transfers++
		transferred = true
		h.logger.Debug("Ownership transferred", "from", h.data.Owner, "to", record.Value, "height", record.Height)
	}

	h.data.Set(record.Key, record.Value)
	h.changes = append(h.changes, record)
	h.stats.Applied++
	return transferred, nil
}

func (h *History) recordScripts(owner string, entries []types.OutScript) {
	payloads := make([][]byte, len(entries))
	for i, entry := range entries {
		payloads[i] = entry.Payload
	}
	h.scripts = append(h.scripts, types.IssuerScripts{Issuer: owner, Payloads: utils.HexPayloads(payloads)})
}

// sortedEntries orders entries by confirmed height, then listing index, with
// unconfirmed entries last. The sort is stable, so a ledger that already
// returns chronological order is left untouched.
func sortedEntries(entries []types.OutScript) []types.OutScript {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b types.OutScript) int {
		if a.Position.Confirmed() != b.Position.Confirmed() {
			if a.Position.Confirmed() {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(a.Position.Height, b.Position.Height),
			cmp.Compare(a.Position.Index, b.Position.Index),
		)
	})
	return sorted
}
