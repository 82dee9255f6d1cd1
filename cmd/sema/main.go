package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sema "github.com/rust-lang/rls-sub001"
	"github.com/rust-lang/rls-sub001/internal/config"
)

func main() {
	a := &app{}
	if err := a.rootCmd().Execute(); err != nil {
		if !a.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app holds the flags and lazily built engine of one invocation.
type app struct {
	format      string
	configPath  string
	rustSrcPath string
	snippets    bool
	verbose     bool
	metrics     bool
	srcPathSet  bool

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool

	cfg *config.Config
	eng *sema.Engine
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sema",
		Short:         "Code completion and go-to-definition for Rust",
		Long:          "Sema resolves names and infers types in Rust sources without compiling them. Lines are 1-based, columns 0-based.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(a.format); err != nil {
				return err
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.eng == nil || !a.metrics {
				return nil
			}
			return a.eng.WriteMetrics(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.format, "format", "json", "output format: json|text")
	pf.StringVar(&a.configPath, "config", "", "config file (default: nearest "+config.FileName+")")
	pf.StringVar(&a.rustSrcPath, "rust-src-path", "", "rust std sources (default: discovered)")
	pf.BoolVar(&a.snippets, "snippets", false, "include call snippets for functions")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log resolution steps to stderr")
	pf.BoolVar(&a.metrics, "metrics", false, "print metrics to stderr after the command")

	root.AddCommand(
		a.completeCmd(),
		a.findDefinitionCmd(),
		a.typeOfCmd(),
		a.completeFQNCmd(),
		a.srcPathCmd(),
		a.batchCmd(),
	)
	return root
}

// setup loads the config file and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	cfg, err := config.LoadOrDefault(a.configPath, cwd)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.srcPathSet = cmd.Flags().Changed("rust-src-path")
	if a.cfg.Metrics {
		a.metrics = true
	}

	level := cfg.Level()
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), level))
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// engine builds the engine on first use.
func (a *app) engine() (*sema.Engine, error) {
	if a.eng != nil {
		return a.eng, nil
	}
	opts := []sema.Option{
		sema.WithConfig(a.cfg),
		sema.WithMetrics(a.metrics),
		sema.WithLogger(slog.Default()),
	}
	if a.srcPathSet {
		// An empty flag value disables std lookups.
		opts = append(opts, sema.WithRustSrcPath(a.rustSrcPath))
	}
	e, err := sema.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	a.eng = e
	return e, nil
}
