package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"holdem-autopilot/remote"
	"holdem-autopilot/sim"
)

var (
	bridgeAddr   string
	bridgeTables []string

	bridgeCmd = &cobra.Command{
		Use:   "bridge",
		Short: "Serve simulated tables to remote autopilots over websocket",
		Args:  cobra.NoArgs,
		RunE:  runBridge,
	}
)

func init() {
	bridgeCmd.Flags().StringVar(&bridgeAddr, "addr", ":8090", "listen address")
	bridgeCmd.Flags().StringSliceVar(&bridgeTables, "table", []string{"felt-1"}, "table ids to host")
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Sim.Validate(); err != nil {
		return err
	}
	tables := make([]remote.Table, 0, len(bridgeTables))
	for _, id := range bridgeTables {
		t, err := sim.NewTable(id, cfg.Sim, sim.WithLogger(log))
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	b := remote.NewBridge(log, tables...)
	mux := http.NewServeMux()
	b.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	log.Info().Strs("tables", bridgeTables).Int64("total_chips", cfg.Sim.TotalChips()).Msg("bridge starting")
	err := serveHTTP(ctx, &http.Server{Addr: bridgeAddr, Handler: mux}, log)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
