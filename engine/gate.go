package engine

import (
	"context"
	"fmt"
)

// gate rejects snapshots we cannot act on yet. Checks run cheapest first.
func (e *Engine) gate(ctx context.Context, s Snapshot) error {
	if s.SitOut[0] {
		if !e.cfg.AutoSitIn {
			return ErrSittingOut
		}
		e.log.Info().Msg("sitting in")
		cmd := Command{Kind: CommandSitIn, Timeout: e.cfg.ActionDelay.Max}
		if err := e.act.Dispatch(ctx, cmd); err != nil {
			return &DispatchError{Cmd: cmd, Err: err}
		}
		return fmt.Errorf("%w: sit-in requested", ErrNotReady)
	}
	switch {
	case !s.Waiting:
		return fmt.Errorf("%w: not waiting on us", ErrNotReady)
	case !s.Highlight[0]:
		return fmt.Errorf("%w: no highlight", ErrNotReady)
	case s.Buttons == 0:
		return fmt.Errorf("%w: no buttons", ErrNotReady)
	case !s.Hole[0].Known() || !s.Hole[1].Known():
		return fmt.Errorf("%w: hole cards unreadable", ErrNotReady)
	case s.Stack < 0:
		return fmt.Errorf("%w: stack unreadable", ErrNotReady)
	}
	return nil
}
