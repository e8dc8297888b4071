// Command agentrt is the entry point for the agent runtime: it wires
// config, the composition root in internal/runtime, and the cobra
// subcommand surface around it. Grounded on cmd/overhuman/main.go's
// subcommand-switch idiom, restructured onto spf13/cobra per
// SPEC_FULL.md's CLI section.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/overhuman/agentrt/internal/config"
	"github.com/overhuman/agentrt/internal/observability"
	"github.com/overhuman/agentrt/internal/runtime"
)

const (
	binaryName = "agentrt"
	version    = "0.1.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Default()

	root := &cobra.Command{
		Use:     binaryName,
		Short:   "agentrt — autonomous software agent runtime core",
		Version: version,
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(&cfg))
	root.AddCommand(newDaemonCmd(&cfg))
	root.AddCommand(newOtaCmd(&cfg))

	return root
}

func openRuntime(cfg config.Config) (*runtime.AgentRuntime, *observability.Logger, error) {
	logger := observability.NewLogger(binaryName, os.Stderr)
	rt, err := runtime.New(cfg, binaryName, version, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open runtime: %w", err)
	}
	return rt, logger, nil
}

// newServeCmd starts the long-running process: the autonomous daemon's
// scheduler loop plus a Prometheus /metrics and /health endpoint.
// Grounded on cmd/overhuman/main.go's runDaemon, with the HTTP API
// sense replaced by the metrics/health surface SPEC_FULL.md's
// observability section describes.
func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the autonomous daemon and metrics/health HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, logger, err := openRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.StartDaemon()
			defer rt.StopDaemon()

			collector := observability.NewMetricsCollector(10000)
			reg := prometheus.NewRegistry()
			observability.NewPrometheusExporter(collector, reg)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				if rt.Daemon.IsShutdown() {
					w.WriteHeader(http.StatusServiceUnavailable)
					fmt.Fprintln(w, "shutdown")
					return
				}
				w.WriteHeader(http.StatusOK)
				fmt.Fprintln(w, "ok")
			})

			srv := &http.Server{Addr: cfg.APIAddr, Handler: mux}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				logger.Info("serve: listening", "addr", cfg.APIAddr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("serve: http server error", "error", err)
				}
			}()

			pollTicker := time.NewTicker(cfg.SchedulerPoll)
			defer pollTicker.Stop()
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-pollTicker.C:
						if rt.Daemon.PendingTaskCount() == 0 {
							continue
						}
						if _, err := rt.Daemon.ProcessNextTask(); err != nil {
							logger.Warn("serve: process task failed", "error", err)
						}
					}
				}
			}()

			<-sigCh
			logger.Info("serve: shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	return cmd
}

// newDaemonCmd groups read-only introspection of the autonomous daemon.
func newDaemonCmd(cfg *config.Config) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "inspect the autonomous daemon",
	}
	daemonCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "print daemon status (running, uptime, pending tasks, breaker state)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := openRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			fmt.Printf("running:   %v\n", rt.Daemon.IsRunning())
			fmt.Printf("uptime:    %ds\n", rt.Daemon.UptimeSeconds())
			fmt.Printf("pending:   %d\n", rt.Daemon.PendingTaskCount())
			fmt.Printf("shutdown:  %v\n", rt.Daemon.IsShutdown())
			if task, ok := rt.Daemon.CurrentTaskDescription(); ok {
				fmt.Printf("current:   %s\n", task)
			}
			for _, b := range rt.Daemon.FailsafeStatus() {
				fmt.Printf("breaker %-20s state=%-10s failures=%d\n", b.Name, b.State, b.ConsecutiveFailures)
			}
			return nil
		},
	})
	return daemonCmd
}

// newOtaCmd groups OTA self-update operations.
func newOtaCmd(cfg *config.Config) *cobra.Command {
	otaCmd := &cobra.Command{
		Use:   "ota",
		Short: "trigger and inspect self-updates",
	}

	var dryRun bool
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "run the OTA pipeline: snapshot, build, swap, health check, rollback on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := openRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if dryRun {
				result := rt.OTA.DryRun()
				fmt.Printf("status:  %s\n", result.Status)
				fmt.Printf("summary: %s\n", result.Summary)
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			result, err := rt.OTA.PerformUpdate(ctx, version, "{}", nil)
			if err != nil {
				return fmt.Errorf("perform update: %w", err)
			}
			fmt.Printf("status:  %s\n", result.Status)
			fmt.Printf("summary: %s\n", result.Summary)
			return nil
		},
	}
	triggerCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the pipeline without building or swapping")
	otaCmd.AddCommand(triggerCmd)

	otaCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "print the current OTA manager status",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := openRuntime(*cfg)
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Println(rt.OTA.Status())
			return nil
		},
	})

	return otaCmd
}
