package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/jobs"
	"github.com/newtron-network/fleetscan/pkg/util"
)

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan a container periodically",
	Long: `Scan a container every refreshRate seconds (see 'fleetscan config show').
A tick that arrives while the previous scan is still running is skipped.

Prometheus metrics are served on --metrics-addr when given.

Examples:
  fleetscan watch --can 24
  fleetscan watch --can 24 --redis localhost:6379 --metrics-addr :9100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), runWatch)
	},
}

func init() {
	watchCmd.Flags().IntVar(&containerNum, "can", 0, "Container number")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runWatch(ctx context.Context, rt *runtime) error {
	id, err := resolveContainer(ctx, rt.store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rt.metrics.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		util.WithField("addr", metricsAddr).Info("serving metrics")
	}

	interval := rt.config.RefreshInterval()
	fmt.Printf("Watching container %s every %s (Ctrl-C to stop)\n", bold(fmt.Sprint(selectedContainer())), interval)

	var last *jobs.Handle
	submit := func() {
		h, err := rt.manager.Submit(ctx, jobs.Scan{ContainerID: id})
		if errors.Is(err, util.ErrJobActive) {
			util.Warn("previous scan still running, skipping tick")
			return
		}
		if err != nil {
			util.Errorf("scan: %v", err)
			return
		}
		last = h
		go func() {
			<-h.Done()
			rt.flush()
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	submit()
	for {
		select {
		case <-ctx.Done():
			rt.manager.Cancel()
			if last != nil {
				last.Wait()
			}
			return nil
		case <-ticker.C:
			submit()
		}
	}
}
