package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"holdem-autopilot/config"
	"holdem-autopilot/engine"
	"holdem-autopilot/journal"
	"holdem-autopilot/runner"
)

var (
	simCaptures int
	simTree     string
	simJournal  string
	simRealtime bool

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Play the simulated tables for a fixed number of captures and report",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
)

func init() {
	f := simulateCmd.Flags()
	f.IntVarP(&simCaptures, "captures", "n", 2000, "captures per table")
	f.StringVar(&simTree, "tree", "nlhe-fchpa-100", "tree for a uniform strategy when none is configured")
	f.StringVar(&simJournal, "journal", "memory", "journal mode for this run")
	f.BoolVar(&simRealtime, "realtime", false, "honor the configured action delays")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simCaptures <= 0 {
		return fmt.Errorf("--captures must be > 0")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var tables []config.Table
	for _, t := range cfg.Tables {
		if t.Source == config.SourceSim {
			tables = append(tables, t)
		}
	}
	if len(tables) == 0 {
		tables = []config.Table{{ID: "sim-1", Source: config.SourceSim}}
	}
	cfg.Tables = tables
	cfg.Journal.Mode = simJournal
	var extra []engine.Option
	if !simRealtime {
		cfg.Engine.ActionDelay = engine.Interval{}
		cfg.Engine.PostActionWait = engine.Interval{}
		extra = append(extra, engine.WithSleep(func(time.Duration) {}))
	}
	cfg.Engine.TotalChips = cfg.Sim.TotalChips()

	artifact, err := loadArtifact(simTree)
	if err != nil {
		return err
	}
	svc, err := openJournal()
	if err != nil {
		return err
	}
	defer svc.Close()
	seats, err := openSeats(ctx, artifact, journal.NewRecorder(svc, log), extra...)
	if err != nil {
		return err
	}

	rcfg := cfg.Runner
	rcfg.MaxIdleTime = 0
	loops := make([]*runner.Table, len(seats))
	for i, s := range seats {
		if loops[i], err = runner.NewTable(s.id, s.src, s.eng, rcfg, runner.WithLogger(log)); err != nil {
			return err
		}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range loops {
		rt := rt
		g.Go(func() error {
			for i := 0; i < simCaptures && gctx.Err() == nil; i++ {
				if err := rt.Step(gctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()
	elapsed := time.Since(start)

	data := pterm.TableData{{"table", "hands", "decisions", "retries", "errors", "timeouts", "net", "bb/100"}}
	for i, s := range seats {
		st, rs := s.sim.Stats(), loops[i].Stats()
		bb100 := 0.0
		if st.Hands > 0 {
			bb100 = float64(st.HeroNet) / float64(cfg.Sim.BigBlind) * 100 / float64(st.Hands)
		}
		data = append(data, []string{
			s.id,
			strconv.Itoa(st.Hands),
			strconv.Itoa(rs.Decisions),
			strconv.Itoa(rs.Retries),
			strconv.Itoa(rs.Errors),
			strconv.Itoa(st.TimedOut),
			strconv.FormatInt(st.HeroNet, 10),
			strconv.FormatFloat(bb100, 'f', 1, 64),
		})
	}
	pterm.DefaultSection.Println("Simulation")
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Info.Printfln("%d captures per table in %s", simCaptures, elapsed.Round(time.Millisecond))
	return err
}
