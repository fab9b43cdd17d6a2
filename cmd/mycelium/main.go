// Command mycelium drives a fungal growth simulation from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"mycelium/internal/config"
	"mycelium/internal/discovery"
	"mycelium/internal/engine"
	"mycelium/internal/infra/persistence"
	"mycelium/internal/infra/translate"
	"mycelium/internal/infra/wiki"
	"mycelium/internal/metrics"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	exitFunc  = os.Exit
	newLogger = func(verbose bool) (*zap.Logger, error) {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		return cfg.Build()
	}
)

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	stdout     io.Writer
	configPath string
	verbose    bool
	cfg        config.Config
	logger     *zap.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, logger: zap.NewNop()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mycelium",
		Short:         "Grow a fungus from spore to maturity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, err := newLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (env MYCELIUM_* overrides)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.statusCommand(),
		a.advanceCommand(),
		a.setCommand(),
		a.resetCommand(),
		a.historyCommand(),
		a.discoverCommand(),
		a.runCommand(),
	)
	return root
}

func (a *app) discoveryService(m *metrics.Metrics) (*discovery.Service, error) {
	source, err := wiki.New(wiki.Config{
		EndpointTemplate: a.cfg.Wiki.EndpointTemplate,
		Timeout:          a.cfg.Wiki.Timeout,
		UserAgent:        a.cfg.Wiki.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	var translator discovery.Translator
	if a.cfg.Translate.APIKey != "" {
		translator = translate.New(translate.Config{
			Endpoint: a.cfg.Translate.Endpoint,
			APIKey:   a.cfg.Translate.APIKey,
			Timeout:  a.cfg.Translate.Timeout,
		})
	}
	opts := discovery.Options{
		Categories:     a.cfg.Discovery.Categories,
		Languages:      a.cfg.Discovery.Languages,
		TargetLanguage: a.cfg.Discovery.TargetLanguage,
		Limit:          a.cfg.Discovery.Limit,
		RetryDelay:     a.cfg.Discovery.RetryDelay,
	}
	return discovery.New(source, translator, opts,
		discovery.WithLogger(a.logger.Named("discovery")), discovery.WithMetrics(m)), nil
}

// openController wires storage and discovery into a Controller. The returned
// func closes both.
func (a *app) openController(ctx context.Context, interval time.Duration, m *metrics.Metrics) (*engine.Controller, func(), error) {
	store, err := persistence.Open(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Driver, err)
	}
	svc, err := a.discoveryService(m)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	ctrl, err := engine.New(ctx, store, svc,
		engine.WithRequirements(a.cfg.StageRequirements()),
		engine.WithAutoAdvanceInterval(interval),
		engine.WithDiscoveryAttempts(a.cfg.Engine.DiscoveryAttempts),
		engine.WithLogger(a.logger.Named("engine")),
		engine.WithMetrics(m),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return ctrl, func() {
		_ = ctrl.Close()
		_ = store.Close()
	}, nil
}

// withController runs fn against a controller whose timer is disabled.
func (a *app) withController(ctx context.Context, fn func(*engine.Controller) error) error {
	ctrl, closeFn, err := a.openController(ctx, 0, nil)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctrl)
}
