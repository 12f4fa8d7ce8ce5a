// Package explorer implements the ledger queries of the name resolver on top
// of an Esplora-compatible REST API (blockstream.info, mempool.space).
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/plebnames/go-plebnames/pkg/history"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Ensure Client implements the ledger queries of the history engine
var _ history.Ledger = (*Client)(nil)

// Defaults used when Options leaves a field unset.
const (
	DefaultBaseURL  = "https://blockstream.info/api"
	DefaultTimeout  = 15 * time.Second
	DefaultMaxPages = 200

	// chainPageSize is the number of confirmed transactions Esplora returns per page.
	chainPageSize = 25
)

// Static error variables for err113 compliance
var (
	ErrUnexpectedStatus = errors.New("unexpected explorer response status")
	ErrInvalidResponse  = errors.New("invalid explorer response")
	ErrTooManyPages     = errors.New("address history exceeds the page limit")
)

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	// MaxPages bounds the pages fetched for one address history.
	MaxPages int
	Logger   *slog.Logger
}

// Client queries an Esplora REST API. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	maxPages int
	logger   *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:     httpClient,
		maxPages: opts.MaxPages,
		logger:   opts.Logger,
	}
}

// GetFirstInputOfAddress returns the sender of the oldest transaction paying
// into address, or nil when the address never received anything. The sender
// is the address of the transaction's first input.
func (c *Client) GetFirstInputOfAddress(ctx context.Context, address string) (*types.Claim, error) {
	txs, err := c.addressTransactions(ctx, address)
	if err != nil {
		return nil, err
	}

	for _, tx := range txs {
		if !tx.paysTo(address) {
			continue
		}
		if len(tx.inputs) == 0 || tx.inputs[0] == "" {
			c.logger.Debug("Skipping payment without a sender address", "address", address, "txid", tx.txid)
			continue
		}
		return &types.Claim{SourceAddress: tx.inputs[0], Txid: tx.txid, Height: tx.height}, nil
	}
	return nil, nil //nolint:nilnil // a nil claim means the address never received funds
}

// GetOutScriptsOfAddress returns the data-carrier payloads of transactions
// spending from address, oldest first.
func (c *Client) GetOutScriptsOfAddress(ctx context.Context, address string) ([]types.OutScript, error) {
	txs, err := c.addressTransactions(ctx, address)
	if err != nil {
		return nil, err
	}

	var out []types.OutScript
	for _, tx := range txs {
		if !tx.spendsFrom(address) {
			continue
		}
		for _, entry := range tx.dataCarriers() {
			entry.Position = types.LedgerPosition{Height: tx.height, Index: len(out)}
			out = append(out, entry)
		}
	}
	return out, nil
}

// GetUtxosOfAddress returns the unspent outputs of address.
func (c *Client) GetUtxosOfAddress(ctx context.Context, address string) ([]types.UTXO, error) {
	var wire []wireUTXO
	if err := c.get(ctx, "/address/{address}/utxo", map[string]string{"address": address}, &wire); err != nil {
		return nil, err
	}

	utxos := make([]types.UTXO, 0, len(wire))
	for i := range wire {
		utxo, err := parseUTXO(&wire[i])
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}

// addressTransactions returns every transaction touching address, oldest
// first, with unconfirmed transactions last.
func (c *Client) addressTransactions(ctx context.Context, address string) ([]*transaction, error) {
	var first []wireTransaction
	if err := c.get(ctx, "/address/{address}/txs", map[string]string{"address": address}, &first); err != nil {
		return nil, err
	}

	// Esplora lists newest first.
	newestFirst, err := parseTransactions(first)
	if err != nil {
		return nil, err
	}

	lastConfirmed := lastConfirmedTxid(newestFirst)
	confirmedInPage := countConfirmed(newestFirst)
	for pages := 1; lastConfirmed != "" && confirmedInPage >= chainPageSize; pages++ {
		if pages >= c.maxPages {
			return nil, fmt.Errorf("%w: %s", ErrTooManyPages, address)
		}

		var page []wireTransaction
		params := map[string]string{"address": address, "txid": lastConfirmed}
		if err := c.get(ctx, "/address/{address}/txs/chain/{txid}", params, &page); err != nil {
			return nil, err
		}
		parsed, err := parseTransactions(page)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, parsed...)
		lastConfirmed = lastConfirmedTxid(parsed)
		confirmedInPage = len(parsed)
	}

	return chronological(newestFirst), nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("explorer request %s failed: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, resp.Request.URL, resp.StatusCode())
	}
	return nil
}

func parseTransactions(wire []wireTransaction) ([]*transaction, error) {
	txs := make([]*transaction, 0, len(wire))
	for i := range wire {
		tx, err := parseTransaction(&wire[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func lastConfirmedTxid(txs []*transaction) string {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].confirmed() {
			return txs[i].txid
		}
	}
	return ""
}

func countConfirmed(txs []*transaction) int {
	n := 0
	for _, tx := range txs {
		if tx.confirmed() {
			n++
		}
	}
	return n
}

// chronological turns a newest-first listing into oldest-first order,
// dropping duplicates, and moves unconfirmed transactions to the end.
func chronological(newestFirst []*transaction) []*transaction {
	seen := make(map[string]struct{}, len(newestFirst))
	out := make([]*transaction, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		tx := newestFirst[i]
		if _, ok := seen[tx.txid]; ok {
			continue
		}
		seen[tx.txid] = struct{}{}
		out = append(out, tx)
	}

	slices.SortStableFunc(out, func(a, b *transaction) int {
		switch {
		case a.confirmed() && !b.confirmed():
			return -1
		case !a.confirmed() && b.confirmed():
			return 1
		case a.height < b.height:
			return -1
		case a.height > b.height:
			return 1
		default:
			return 0
		}
	})
	return out
}
