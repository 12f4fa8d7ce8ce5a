// plebnames resolves and publishes PlebNames: human readable names owned by
// whoever first pays the name's pad address on Bitcoin.
//
// Usage:
//
//	plebnames [--config path] <command> [arguments]
//
// Commands:
//
//	normalize <name>...           print the canonical form of each name
//	address <name>...             print the pad address of each name
//	record <name> <key> <value>   print the payload and script of a record
//	resolve <name>...             resolve names against the explorer (JSON)
//	tx --sender ADDR [--claim] <name> [key=value]...
//	                              build an unsigned claim/inscription transaction
//	index <beef-hex>              index the record outputs of a BEEF transaction
//	lookup <query-json>           answer an overlay lookup query
//	serve                         run the HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/plebnames/go-plebnames/pkg/config"
)

// Static error variables for err113 compliance
var (
	errUsage          = errors.New("usage")
	errUnknownCommand = errors.New("unknown command")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) || errors.Is(err, errUnknownCommand) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

func commands() map[string]command {
	return map[string]command{
		"normalize": {"normalize <name>...", runNormalize},
		"address":   {"address <name>...", runAddress},
		"record":    {"record <name> <key> <value>", runRecord},
		"resolve":   {"resolve <name>...", runResolve},
		"tx":        {"tx --sender ADDR [--claim] [--utxo TXID:VOUT:SATS] <name> [key=value]...", runTx},
		"index":     {"index <beef-hex>", runIndex},
		"lookup":    {"lookup <query-json>", runLookup},
		"serve":     {"serve", runServe},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configPath string

	flagSet := pflag.NewFlagSet("plebnames", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $"+config.EnvConfig+")")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stderr, flagSet)
		return nil
	}

	name, rest := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := commands()[name]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a := &app{
		cfg:    cfg,
		logger: config.NewLogger(cfg.Log, stderr),
		stdout: stdout,
	}
	slog.SetDefault(a.logger)

	return cmd.run(ctx, a, rest)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "plebnames resolves and publishes names registered on Bitcoin.\n\n")
	fmt.Fprintf(w, "Usage:\n  plebnames [--config path] <command> [arguments]\n\nCommands:\n")
	for _, name := range []string{"normalize", "address", "record", "resolve", "tx", "index", "lookup", "serve"} {
		fmt.Fprintf(w, "  %s\n", commands()[name].usage)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
