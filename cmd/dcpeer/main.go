// dcpeer connects two processes over a libdatachannel data channel.
//
// One process runs the signaling server, two peers join the same room and
// negotiate through it:
//
//	dcpeer serve --listen :8000
//	dcpeer answer --signal ws://localhost:8000/demo --echo
//	dcpeer offer --signal ws://localhost:8000/demo
//
// The offering peer sends each stdin line as a text message and prints what
// it receives. With --echo the answering peer sends every message back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thesyncim/libgodatachannel/pkg/datachannel"
)

type mode string

const (
	modeServe  mode = "serve"
	modeOffer  mode = "offer"
	modeAnswer mode = "answer"
)

type options struct {
	mode       mode
	configPath string
	listen     string
	signal     string
	label      string
	logLevel   string
	echo       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.mode == modeServe {
		return serve(ctx, logger, opts.listen)
	}

	cfg := datachannel.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = datachannel.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	loadOpts := cfg.Options()
	loadOpts.Logger = logger.Named("libdatachannel")
	if err := datachannel.Load(loadOpts); err != nil {
		return err
	}
	defer datachannel.Unload()

	p := &peer{
		log:    logger.With(zap.String("mode", string(opts.mode))),
		offer:  opts.mode == modeOffer,
		label:  opts.label,
		echo:   opts.echo,
		config: &cfg.Peer,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	return p.run(ctx, opts.signal)
}

func parseArgs(args []string) (*options, error) {
	opts := &options{}
	flagSet := pflag.NewFlagSet("dcpeer", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file (library, log_level, drop_policy, peer)")
	flagSet.StringVar(&opts.listen, "listen", ":8000", "signaling server listen address (serve)")
	flagSet.StringVar(&opts.signal, "signal", "ws://localhost:8000/dcpeer", "signaling room URL (offer, answer)")
	flagSet.StringVar(&opts.label, "label", "dcpeer", "data channel label (offer)")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.BoolVar(&opts.echo, "echo", false, "send every received message back")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	rest := flagSet.Args()
	if len(rest) != 1 {
		printHelp(flagSet)
		return nil, fmt.Errorf("expected one mode, got %d arguments", len(rest))
	}
	switch m := mode(rest[0]); m {
	case modeServe, modeOffer, modeAnswer:
		opts.mode = m
	default:
		return nil, fmt.Errorf("unknown mode %q", rest[0])
	}
	return opts, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `dcpeer exchanges data channel messages between two processes.

Usage:
  dcpeer serve  [flags]
  dcpeer offer  [flags]
  dcpeer answer [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
