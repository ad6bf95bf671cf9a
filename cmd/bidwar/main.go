package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minexpert/bidwar/config"
	"github.com/minexpert/bidwar/logger"
)

// Exit codes shared by every command.
const (
	exitOK      = 0
	exitInvalid = 1 // validation or expectation failed
	exitError   = 2 // bad input or runtime error
)

// exitCodeError carries a process exit code through cobra's error return.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error { return e.err }

func invalid(err error) error { return &exitCodeError{code: exitInvalid, err: err} }

// app holds state shared by subcommands once the root has loaded configuration.
type app struct {
	configPath string
	format     string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "bidwar",
		Short: "Anonymous competitive bidding engine",
		Long: `bidwar ranks consultant bids on posted projects by price, delivery time and
added value, and hides consultant identity behind stable anonymous handles.

Commands validate single bids or ranked snapshots, replay YAML scenarios through
the engine, derive anonymous IDs and follow live projects over Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./bidwar.yaml if present)")
	root.PersistentFlags().StringVar(&a.format, "format", "text", "output format: text or json")

	root.AddCommand(a.validateCmd())
	root.AddCommand(a.simulateCmd())
	root.AddCommand(a.anonIDCmd())
	root.AddCommand(a.keygenCmd())
	root.AddCommand(a.watchCmd())
	return root
}

func (a *app) load() error {
	if a.format != "text" && a.format != "json" {
		return fmt.Errorf("unknown format %q: want text or json", a.format)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) jsonOutput() bool { return a.format == "json" }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	return exitError
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		var coded *exitCodeError
		if !errors.As(err, &coded) || coded.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(exitCode(err))
}
