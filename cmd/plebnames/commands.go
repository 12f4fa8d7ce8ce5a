package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bsv-blockchain/go-sdk/overlay/lookup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/plebnames/go-plebnames/pkg/explorer"
	"github.com/plebnames/go-plebnames/pkg/inscription"
	"github.com/plebnames/go-plebnames/pkg/metrics"
	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/records"
	"github.com/plebnames/go-plebnames/pkg/resolver"
	"github.com/plebnames/go-plebnames/pkg/server"
	"github.com/plebnames/go-plebnames/pkg/storage"
	"github.com/plebnames/go-plebnames/pkg/txbuilder"
	"github.com/plebnames/go-plebnames/pkg/types"
	"github.com/plebnames/go-plebnames/pkg/utils"
)

// Static error variables for err113 compliance
var (
	errInvalidInscription = errors.New("inscription must be key=value")
	errInvalidUTXO        = errors.New("utxo must be TXID:VOUT:SATS")
)

// nameArg accepts a bare name or a URL such as https://alice.btc.
func nameArg(arg string) string {
	if strings.Contains(arg, "://") || strings.Contains(arg, ".btc") {
		return names.NameFromURL(arg)
	}
	return arg
}

func runNormalize(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: normalize <name>...", errUsage)
	}
	for _, arg := range args {
		normalized := names.Normalize(nameArg(arg))
		if normalized == "" {
			return fmt.Errorf("%w: %q", names.ErrInvalidName, arg)
		}
		fmt.Fprintf(a.stdout, "%s\t%s\n", arg, normalized)
	}
	return nil
}

// runAddress prints the pad address of each name. An argument that is
// itself a pad address is decoded back into its name.
func runAddress(_ context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: address <name>...", errUsage)
	}
	for _, arg := range args {
		if name, err := names.NameFromPadAddress(arg); err == nil {
			fmt.Fprintf(a.stdout, "%s\t%s\n", arg, name)
			continue
		}
		normalized, address, err := names.AddressForName(nameArg(arg), a.cfg.Network)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", normalized, address, arg)
	}
	return nil
}

func runRecord(_ context.Context, a *app, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: record <name> <key> <value>", errUsage)
	}
	// The name is written as typed; resolvers normalize it when matching.
	name, key, value := nameArg(args[0]), types.FieldKey(args[1]), args[2]

	if !key.IsWellKnown() {
		a.logger.Info("Free-form key, resolvers store it under extra", "key", key)
	}
	if err := records.CheckValue(key, value, a.cfg.Network); err != nil {
		a.logger.Warn("Record value does not match the expected format", "key", key, "error", err)
	}

	payload, err := records.Encode(name, key, value)
	if err != nil {
		return err
	}
	s, err := records.EncodeScript(payload)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "payload\t%s\n", utils.BytesToHex(payload))
	fmt.Fprintf(a.stdout, "script\t%s\n", s.String())
	fmt.Fprintf(a.stdout, "asm\t%s\n", records.ProposalASM(name, key, value))
	return nil
}

func (a *app) explorer() *explorer.Client {
	return explorer.New(explorer.Options{
		BaseURL:    a.cfg.Explorer.BaseURL,
		Timeout:    a.cfg.Explorer.Timeout,
		RetryCount: a.cfg.Explorer.RetryCount,
		Logger:     a.logger,
	})
}

func (a *app) resolver(ledger *explorer.Client, store storage.Storage, m *metrics.Metrics) *resolver.Resolver {
	return resolver.New(ledger, resolver.Options{
		Network:      a.cfg.Network,
		MaxTransfers: a.cfg.Resolver.MaxTransfers,
		Timeout:      a.cfg.Resolver.Timeout,
		CacheTTL:     a.cfg.Resolver.CacheTTL,
		Concurrency:  a.cfg.Resolver.Concurrency,
		Storage:      store,
		Metrics:      m,
		Logger:       a.logger,
	})
}

// storage opens MongoDB when configured and falls back to memory.
// The returned cleanup disconnects the client.
func (a *app) storage(ctx context.Context) (storage.Storage, func(), error) {
	if a.cfg.Mongo.URI == "" {
		a.logger.Warn("No mongo.uri configured, sightings are kept in memory and lost when the process exits")
		return storage.NewMemoryStorage(), func() {}, nil
	}

	client, db, err := storage.Connect(ctx, a.cfg.Mongo.URI, a.cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Disconnect(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Failed to disconnect from MongoDB", "error", err)
		}
	}

	store := storage.NewMongoStorage(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	a.logger.Info("Using MongoDB storage", "database", a.cfg.Mongo.Database)
	return store, cleanup, nil
}

func runResolve(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: resolve <name>...", errUsage)
	}
	inputs := make([]string, len(args))
	for i, arg := range args {
		inputs[i] = nameArg(arg)
	}

	res := a.resolver(a.explorer(), nil, nil)
	defer res.Close()

	results, err := res.ResolveMany(ctx, inputs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	var firstErr error
	for _, result := range results {
		if result.Err != nil {
			a.logger.Error("Resolution failed", "name", result.Name, "error", result.Err)
			if firstErr == nil {
				firstErr = result.Err
			}
			continue
		}
		if err := enc.Encode(result.Resolution); err != nil {
			return err
		}
	}
	return firstErr
}

func runTx(ctx context.Context, a *app, args []string) error {
	var sender, utxoFlag string
	var claim bool

	flagSet := pflag.NewFlagSet("tx", pflag.ContinueOnError)
	flagSet.StringVar(&sender, "sender", "", "address funding the transaction and receiving change")
	flagSet.BoolVar(&claim, "claim", false, "pay the pad address to claim the name")
	flagSet.StringVar(&utxoFlag, "utxo", "", "funding output TXID:VOUT:SATS (default: the sender's first UTXO)")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if sender == "" || flagSet.NArg() == 0 {
		return fmt.Errorf("%w: tx --sender ADDR [--claim] <name> [key=value]...", errUsage)
	}

	inscriptions, err := parseInscriptions(flagSet.Args()[1:])
	if err != nil {
		return err
	}
	req := txbuilder.Request{
		Name:          nameArg(flagSet.Arg(0)),
		SenderAddress: sender,
		Claim:         claim,
		Inscriptions:  inscriptions,
	}
	if utxoFlag != "" {
		utxo, err := parseUTXO(utxoFlag)
		if err != nil {
			return err
		}
		req.UTXO = utxo
	}

	builder := txbuilder.New(a.explorer(), txbuilder.Options{
		Network:    a.cfg.Network,
		ClaimValue: a.cfg.Tx.ClaimValue,
		Fee:        a.cfg.Tx.Fee,
	})
	tmpl, err := builder.Build(ctx, req)
	if err != nil {
		return err
	}

	a.logger.Info("Built unsigned transaction",
		"name", tmpl.Name,
		"padAddress", tmpl.PadAddress,
		"input", fmt.Sprintf("%s:%d", tmpl.Input.Txid, tmpl.Input.Vout),
		"change", tmpl.Change)
	for _, proposal := range tmpl.Proposals {
		fmt.Fprintf(a.stdout, "# %s\n", proposal)
	}
	fmt.Fprintln(a.stdout, tmpl.Hex)
	return nil
}

func parseInscriptions(args []string) ([]txbuilder.Inscription, error) {
	inscriptions := make([]txbuilder.Inscription, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidInscription, arg)
		}
		inscriptions = append(inscriptions, txbuilder.Inscription{Key: types.FieldKey(key), Value: value})
	}
	return inscriptions, nil
}

func parseUTXO(arg string) (*types.UTXO, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", errInvalidUTXO, arg)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidUTXO, err)
	}
	value, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidUTXO, err)
	}
	return &types.UTXO{Txid: parts[0], Vout: uint32(vout), Value: value}, nil
}

func runIndex(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: index <beef-hex>", errUsage)
	}
	beef, err := hex.DecodeString(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid BEEF hex: %w", err)
	}

	store, cleanup, err := a.storage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	admitted, err := inscription.Index(ctx,
		inscription.NewTopicManager(a.logger),
		inscription.NewLookupService(store, nil),
		beef)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "admitted %d output(s) %v\n", len(admitted), admitted)
	return nil
}

func runLookup(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: lookup <query-json>", errUsage)
	}

	store, cleanup, err := a.storage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res := a.resolver(a.explorer(), store, nil)
	defer res.Close()

	answer, err := inscription.NewLookupService(store, res).Lookup(ctx, &lookup.LookupQuestion{
		Service: inscription.Service,
		Query:   json.RawMessage(args[0]),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(answer.Result)
}

func runServe(ctx context.Context, a *app, _ []string) error {
	store, cleanup, err := a.storage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	res := a.resolver(a.explorer(), store, metrics.New(reg))
	defer res.Close()

	a.logger.Info("Starting PlebNames API",
		"network", a.cfg.Network,
		"explorer", a.cfg.Explorer.BaseURL,
		"maxTransfers", a.cfg.Resolver.MaxTransfers)

	return server.New(res, server.Options{Gatherer: reg, Logger: a.logger}).
		ListenAndServe(ctx, a.cfg.Server.ListenAddr)
}
