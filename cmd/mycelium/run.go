package main

import (
	"context"
	"errors"
	"fmt"
	"mycelium/internal/engine"
	"mycelium/internal/metrics"
	"mycelium/pkg/domain"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errCycleComplete = errors.New("cycle complete")

const watchInterval = 50 * time.Millisecond

func (a *app) runCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Auto-advance until the fungus matures or the process is interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.Metrics.Listen
			}
			return a.runLoop(cmd.Context(), metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address")
	return cmd
}

func (a *app) runLoop(parent context.Context, metricsAddr string) error {
	if a.cfg.Engine.AutoAdvanceInterval <= 0 {
		return errors.New("auto-advance is disabled (engine.auto_advance_interval is 0)")
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctrl, closeFn, err := a.openController(ctx, a.cfg.Engine.AutoAdvanceInterval, m)
	if err != nil {
		return err
	}
	defer closeFn()
	ctrl.StartAutoAdvance()

	g, gctx := errgroup.WithContext(ctx)
	if metricsAddr != "" {
		ln, err := net.Listen("tcp", metricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}
		a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
		srv := &http.Server{Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error { return a.watch(gctx, ctrl) })

	err = g.Wait()
	a.printStatus(ctrl.Status())
	if errors.Is(err, errCycleComplete) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// watch reports stage changes until the cycle is mature with discovery
// settled, then returns errCycleComplete so the group shuts down.
func (a *app) watch(ctx context.Context, ctrl *engine.Controller) error {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	last := domain.Stage("")
	for {
		st := ctrl.Status()
		if st.CurrentStage != last {
			fmt.Fprintf(a.stdout, "stage: %s\n", st.CurrentStage)
			last = st.CurrentStage
		}
		if st.CurrentStage.Terminal() && !st.Discovering {
			return errCycleComplete
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
