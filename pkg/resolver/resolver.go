// Package resolver turns names into resolutions: it normalizes, derives the
// pad address, replays the ledger history and caches the result.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/plebnames/go-plebnames/pkg/history"
	"github.com/plebnames/go-plebnames/pkg/metrics"
	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/storage"
	"github.com/plebnames/go-plebnames/pkg/types"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultCacheTTL    = time.Minute
	DefaultConcurrency = 4
)

// Options configures a Resolver.
type Options struct {
	Network      types.Network
	MaxTransfers int
	// Timeout bounds one uncached resolution.
	Timeout time.Duration
	// CacheTTL is how long a resolution is served from memory. Negative disables caching.
	CacheTTL time.Duration
	// Concurrency bounds parallel resolutions in ResolveMany.
	Concurrency int
	// Storage receives a snapshot of every fresh resolution. Optional.
	Storage storage.Storage
	// Metrics is optional.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Result is the outcome of one name in ResolveMany.
type Result struct {
	Name       string
	Resolution *types.Resolution
	Err        error
}

// Resolver resolves names against a ledger. It is safe for concurrent use.
// Returned resolutions may be shared between callers and must not be modified.
type Resolver struct {
	ledger  history.Ledger
	opts    Options
	cache   *ttlcache.Cache[string, *types.Resolution]
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Resolver. Call Close to stop the cache janitor.
func New(ledger history.Ledger, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &Resolver{
		ledger:  ledger,
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if opts.CacheTTL > 0 {
		r.cache = ttlcache.New[string, *types.Resolution](
			ttlcache.WithTTL[string, *types.Resolution](opts.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *types.Resolution](),
		)
		go r.cache.Start()
	}
	return r
}

// Close stops background cache expiry.
func (r *Resolver) Close() {
	if r.cache != nil {
		r.cache.Stop()
	}
}

// Network returns the network names are resolved on.
func (r *Resolver) Network() types.Network {
	return r.opts.Network
}

// Address returns the normalized form and pad address of name without
// touching the ledger.
func (r *Resolver) Address(name string) (normalized, padAddress string, err error) {
	return names.AddressForName(name, r.opts.Network)
}

// Resolve returns the current resolution of name. Concurrent calls for the
// same normalized name share one ledger replay.
func (r *Resolver) Resolve(ctx context.Context, name string) (*types.Resolution, error) {
	normalized, _, err := r.Address(name)
	if err != nil {
		r.metrics.IncrementResolution(metrics.StatusError)
		return nil, err
	}

	if r.cache != nil {
		if item := r.cache.Get(normalized); item != nil {
			r.metrics.IncrementResolution(metrics.StatusCached)
			return withName(item.Value(), name), nil
		}
	}

	ch := r.group.DoChan(normalized, func() (any, error) {
		return r.resolveFresh(context.WithoutCancel(ctx), name)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resolution, _ := res.Val.(*types.Resolution)
		return withName(resolution, name), nil
	}
}

// ResolveMany resolves names in parallel, at most Options.Concurrency at a
// time. Per-name failures are reported in the results; the returned error
// is only set when ctx ends first.
func (r *Resolver) ResolveMany(ctx context.Context, inputs []string) ([]Result, error) {
	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, name := range inputs {
		g.Go(func() error {
			resolution, err := r.Resolve(ctx, name)
			results[i] = Result{Name: name, Resolution: resolution, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// Invalidate drops the cached resolution of name.
func (r *Resolver) Invalidate(name string) {
	if r.cache != nil {
		r.cache.Delete(names.Normalize(name))
	}
}

// Snapshot returns the last stored resolution of name without querying the ledger.
func (r *Resolver) Snapshot(ctx context.Context, name string) (*types.Resolution, error) {
	if r.opts.Storage == nil {
		return nil, storage.ErrNotFound
	}
	normalized, _, err := r.Address(name)
	if err != nil {
		return nil, err
	}
	return r.opts.Storage.LoadResolution(ctx, normalized)
}

func (r *Resolver) resolveFresh(ctx context.Context, name string) (*types.Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	resolution, err := history.Resolve(ctx, r.ledger, name, history.Options{
		MaxTransfers: r.opts.MaxTransfers,
		Network:      r.opts.Network,
		Logger:       r.logger,
	})
	r.metrics.ObserveResolutionLatency(time.Since(start))

	if err != nil {
		r.metrics.IncrementResolution(metrics.StatusError)
		r.logger.Warn("Resolution failed", "name", name, "error", err)
		return nil, err
	}

	r.metrics.IncrementResolution(string(resolution.Status))
	r.metrics.ObserveReplay(resolution.Stats)
	r.logger.Debug("Resolved name",
		"name", resolution.NormalizedName,
		"status", resolution.Status,
		"passes", resolution.Stats.Passes,
		"transfers", resolution.Stats.Transfers)

	if r.cache != nil {
		r.cache.Set(resolution.NormalizedName, resolution, ttlcache.DefaultTTL)
	}
	if r.opts.Storage != nil {
		if err := r.opts.Storage.SaveResolution(ctx, resolution); err != nil {
			r.logger.Warn("Failed to store resolution snapshot", "name", resolution.NormalizedName, "error", err)
		}
	}
	return resolution, nil
}

// withName returns resolution as seen by a caller who typed name. The shared
// value is copied only when the spelling differs.
func withName(resolution *types.Resolution, name string) *types.Resolution {
	if resolution == nil || resolution.Name == name {
		return resolution
	}
	named := *resolution
	named.Name = name
	return &named
}

// IsClientError reports whether err was caused by the requested name rather
// than by the ledger or the resolver.
func IsClientError(err error) bool {
	return errors.Is(err, names.ErrInvalidName)
}
