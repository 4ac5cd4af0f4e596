package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"holdem-autopilot/journal"
	"holdem-autopilot/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play every configured table until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	artifact, err := loadArtifact("")
	if err != nil {
		return err
	}
	svc, err := openJournal()
	if err != nil {
		return err
	}
	defer svc.Close()

	seats, err := openSeats(ctx, artifact, journal.NewRecorder(svc, log))
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range seats {
			if s.closer != nil {
				s.closer()
			}
		}
	}()

	tables := make([]*runner.Table, 0, len(seats))
	for _, s := range seats {
		t, err := runner.NewTable(s.id, s.src, s.eng, cfg.Runner, runner.WithLogger(log))
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: observabilityMux(svc)}
		go func() {
			if err := serveHTTP(ctx, srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	log.Info().Int("tables", len(tables)).Msg("autopilot started")
	err = runner.Run(ctx, cfg.Runner, tables...)
	printRunSummary(tables)
	return err
}

func printRunSummary(tables []*runner.Table) {
	data := pterm.TableData{{"table", "captures", "decisions", "retries", "errors", "rollbacks"}}
	for _, t := range tables {
		st := t.Stats()
		data = append(data, []string{
			t.ID(),
			strconv.Itoa(st.Captures),
			strconv.Itoa(st.Decisions),
			strconv.Itoa(st.Retries),
			strconv.Itoa(st.Errors),
			strconv.Itoa(st.Rollbacks),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
