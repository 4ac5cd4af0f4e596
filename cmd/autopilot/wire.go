package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"holdem-autopilot/abstraction"
	"holdem-autopilot/config"
	"holdem-autopilot/engine"
	"holdem-autopilot/journal"
	"holdem-autopilot/remote"
	"holdem-autopilot/runner"
	"holdem-autopilot/sim"
)

// loadArtifact reads the configured strategies. With none configured and a
// fallback tree given, it plays a uniform strategy on that tree.
func loadArtifact(fallbackTree string) (*abstraction.Set, error) {
	if len(cfg.Strategies) > 0 {
		set, err := abstraction.LoadArtifact(cfg.Strategies...)
		if err != nil {
			return nil, err
		}
		log.Info().Ints("depths", set.Depths()).Msg("strategies loaded")
		return set, nil
	}
	if fallbackTree == "" {
		return nil, errors.New("no strategies configured")
	}
	tree, err := abstraction.NewTree(fallbackTree)
	if err != nil {
		return nil, err
	}
	log.Warn().Str("tree", fallbackTree).Msg("no strategies configured, playing uniform")
	return abstraction.NewSet(abstraction.NewStrategy("uniform", tree, [4]int{1, 1, 1, 1}, abstraction.FallbackUniform)), nil
}

// seat is one wired table: where captures come from and what plays them.
type seat struct {
	id     string
	src    runner.Source
	eng    *engine.Engine
	sim    *sim.Table
	closer func() error
}

func openSeats(ctx context.Context, artifact abstraction.Artifact, rec engine.Recorder, extra ...engine.Option) ([]*seat, error) {
	var seats []*seat
	closeAll := func() {
		for _, s := range seats {
			if s.closer != nil {
				s.closer()
			}
		}
	}
	for _, t := range cfg.Tables {
		s := &seat{id: t.ID}
		var act engine.Actuator
		switch t.Source {
		case config.SourceSim:
			st, err := sim.NewTable(t.ID, cfg.Sim, sim.WithLogger(log))
			if err != nil {
				closeAll()
				return nil, err
			}
			s.src, s.sim, act = st, st, st
		case config.SourceRemote:
			c, err := remote.Dial(ctx, t.URL, t.ID, log)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("table %s: %w", t.ID, err)
			}
			s.src, act, s.closer = c, c, c.Close
		}
		opts := append([]engine.Option{engine.WithLogger(log)}, extra...)
		if rec != nil {
			opts = append(opts, engine.WithRecorder(rec))
		}
		eng, err := engine.New(t.ID, cfg.Engine, artifact, act, opts...)
		if err != nil {
			if s.closer != nil {
				s.closer()
			}
			closeAll()
			return nil, err
		}
		s.eng = eng
		seats = append(seats, s)
	}
	return seats, nil
}

func openJournal() (journal.Service, error) {
	svc, mode, err := journal.NewServiceFromMode(cfg.Journal.Mode, cfg.Journal.DSN)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	log.Info().Str("mode", mode).Msg("journal ready")
	return svc, nil
}

// serveHTTP runs srv until ctx ends.
func serveHTTP(ctx context.Context, srv *http.Server, l zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		l.Info().Str("addr", srv.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func observabilityMux(svc journal.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	journal.NewHTTPHandler(svc).RegisterRoutes(mux)
	return mux
}
