// Package sim is a heads-up table that plays against the engine. It feeds
// snapshots and accepts commands, with optional capture noise.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"holdem-autopilot/card"
	"holdem-autopilot/engine"
)

const (
	hero     = 0
	opponent = 1

	// opponent moves and hand starts processed per capture before giving up
	maxStepsPerCapture = 64
)

var (
	ErrOutOfTurn = errors.New("no action buttons: not our turn")
	ErrHandEnded = errors.New("hand already ended")
)

type Config struct {
	StartStack int64 `yaml:"start_stack"`
	SmallBlind int64 `yaml:"small_blind"`
	BigBlind   int64 `yaml:"big_blind"`

	// Captures we may sit on our turn before the table checks or folds
	// for us (0 waits forever)
	TimeBank int `yaml:"time_bank"`

	Opponent Profile `yaml:"opponent"`
	Noise    Noise   `yaml:"noise"`

	// RNG seed (0 => time-based)
	Seed int64 `yaml:"seed"`
}

func DefaultConfig() Config {
	return Config{StartStack: 1000, SmallBlind: 10, BigBlind: 20, Opponent: DefaultProfile}
}

func (c Config) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind <= 0 || c.SmallBlind > c.BigBlind {
		return fmt.Errorf("invalid blinds: sb=%d bb=%d", c.SmallBlind, c.BigBlind)
	}
	if c.StartStack < 2*c.BigBlind {
		return fmt.Errorf("start_stack must cover two big blinds")
	}
	if c.TimeBank < 0 {
		return fmt.Errorf("time_bank must be >= 0")
	}
	return c.Noise.validate()
}

// TotalChips is what the engine must be configured with.
func (c Config) TotalChips() int64 { return 2 * c.StartStack }

// Stats counts what happened at the table.
type Stats struct {
	Hands        int
	Showdowns    int
	Rebuys       int
	Commands     int
	Dropped      int
	Duplicates   int
	Unreadable   int
	DoubleDealer int
	SitOuts      int
	TimedOut     int
	HeroNet      int64 // chips won by the engine, rebuys excluded
}

// Table is a heads-up game. Seat 0 is the engine. The opponent moves when a
// capture is requested, so every snapshot shows the table waiting on us or
// a hand that just started.
type Table struct {
	id    string
	cfg   Config
	rng   *rand.Rand
	brain Brain
	log   zerolog.Logger
	now   func() time.Time

	mu sync.Mutex

	started bool
	ended   bool
	handID  uuid.UUID
	dealer  int
	street  int // 0..3

	stacks [2]int64
	bets   [2]int64
	pot    int64
	hole   [2][2]card.Card
	board  []card.Card
	deck   card.Deck

	toAct      int
	curBet     int64
	minRaise   int64 // smallest legal raise increment
	needAction int
	folded     [2]bool
	allIn      [2]bool
	sitOut     [2]bool

	heroStart int64
	idle      int // captures on our turn without a command
	dropNext  bool
	last      *engine.Snapshot
	stats     Stats
}

type Option func(*Table)

func WithBrain(b Brain) Option { return func(t *Table) { t.brain = b } }

func WithLogger(l zerolog.Logger) Option { return func(t *Table) { t.log = l } }

func WithClock(f func() time.Time) Option { return func(t *Table) { t.now = f } }

func NewTable(id string, cfg Config, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	t := &Table{
		id:     id,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		log:    zerolog.Nop(),
		now:    time.Now,
		stacks: [2]int64{cfg.StartStack, cfg.StartStack},
	}
	for _, o := range opts {
		o(t)
	}
	if t.brain == nil {
		t.brain = NewRuleBrain(cfg.Opponent, seed+1)
	}
	t.log = t.log.With().Str("table", id).Str("opponent", t.brain.Name()).Logger()
	return t, nil
}

func (t *Table) ID() string { return t.id }

func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Chips returns both stacks plus everything in the middle.
func (t *Table) Chips() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stacks[0] + t.stacks[1] + t.bets[0] + t.bets[1] + t.pot
}

// DropNext makes the next command acknowledge without taking effect.
func (t *Table) DropNext() {
	t.mu.Lock()
	t.dropNext = true
	t.mu.Unlock()
}

// Next plays the opponent until it is our turn and returns the capture.
func (t *Table) Next(ctx context.Context) (engine.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return engine.Snapshot{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.last != nil && t.cfg.Noise.Duplicate > 0 && t.rng.Float64() < t.cfg.Noise.Duplicate {
		t.stats.Duplicates++
		return *t.last, nil
	}

	for steps := 0; ; steps++ {
		if steps >= maxStepsPerCapture {
			return engine.Snapshot{}, fmt.Errorf("sim %s: no decision for us after %d steps", t.id, steps)
		}
		if !t.started || t.ended {
			t.startHandLocked()
			continue
		}
		if t.toAct == hero {
			if t.cfg.TimeBank > 0 && t.idle >= t.cfg.TimeBank {
				t.timeoutLocked()
				continue
			}
			break
		}
		t.opponentActLocked()
	}
	t.idle++

	s := t.snapshotLocked()
	if !t.cfg.Noise.zero() {
		s = t.cfg.Noise.corrupt(t.rng, s, &t.stats)
	}
	t.last = &s
	return s, nil
}

// Dispatch applies our command. The table clamps raise amounts to what is
// legal, the way a betting slider would.
func (t *Table) Dispatch(ctx context.Context, cmd engine.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Commands++
	t.idle = 0
	if t.dropNext || (t.cfg.Noise.Drop > 0 && t.rng.Float64() < t.cfg.Noise.Drop) {
		t.dropNext = false
		t.stats.Dropped++
		t.log.Debug().Stringer("command", cmd).Msg("command dropped")
		return nil
	}

	if cmd.Kind == engine.CommandSitIn {
		t.sitOut[hero] = false
		return nil
	}
	if !t.started || t.ended {
		return ErrHandEnded
	}
	if t.toAct != hero {
		return ErrOutOfTurn
	}

	switch cmd.Kind {
	case engine.CommandFold:
		t.actLocked(hero, ActionFold, 0)
	case engine.CommandCall:
		if t.bets[hero] == t.curBet {
			t.actLocked(hero, ActionCheck, 0)
		} else {
			t.actLocked(hero, ActionCall, 0)
		}
	case engine.CommandRaise:
		if !t.canRaiseLocked(hero) {
			t.actLocked(hero, ActionCall, 0)
			break
		}
		t.actLocked(hero, ActionRaise, cmd.Amount)
	default:
		return fmt.Errorf("sim: unsupported command %s", cmd.Kind)
	}
	return nil
}

// timeoutLocked acts for us the way the table does when the clock runs out.
func (t *Table) timeoutLocked() {
	t.stats.TimedOut++
	t.idle = 0
	t.log.Warn().Str("hand", t.handID.String()).Msg("time bank exhausted")
	if t.bets[hero] == t.curBet {
		t.actLocked(hero, ActionCheck, 0)
		return
	}
	t.actLocked(hero, ActionFold, 0)
}

func (t *Table) startHandLocked() {
	if t.stacks[0] < 2*t.cfg.BigBlind || t.stacks[1] < 2*t.cfg.BigBlind {
		t.stats.Rebuys++
		t.log.Info().Int64("hero", t.stacks[0]).Int64("opponent", t.stacks[1]).Msg("stacks reset")
		t.stacks = [2]int64{t.cfg.StartStack, t.cfg.StartStack}
	}
	if t.started {
		t.dealer = 1 - t.dealer
	} else {
		t.dealer = t.rng.Intn(2)
	}
	t.started = true
	t.ended = false
	t.heroStart = t.stacks[hero]
	t.handID = uuid.New()
	t.street = 0
	t.pot = 0
	t.bets = [2]int64{}
	t.board = nil
	t.folded = [2]bool{}
	t.allIn = [2]bool{}
	t.sitOut[opponent] = t.cfg.Noise.OpponentSitOut > 0 && t.rng.Float64() < t.cfg.Noise.OpponentSitOut
	if t.cfg.Noise.HeroSitOut > 0 && t.rng.Float64() < t.cfg.Noise.HeroSitOut {
		t.sitOut[hero] = true
	}
	if t.sitOut[hero] || t.sitOut[opponent] {
		t.stats.SitOuts++
	}

	t.deck = card.FullDeck()
	t.deck.Shuffle(t.rng)
	bb := 1 - t.dealer
	for i := 0; i < 2; i++ {
		t.hole[bb][i] = t.deck.Pop()
		t.hole[t.dealer][i] = t.deck.Pop()
	}

	t.placeBetLocked(t.dealer, t.cfg.SmallBlind)
	t.placeBetLocked(bb, t.cfg.BigBlind)
	t.curBet = t.cfg.BigBlind
	t.minRaise = t.cfg.BigBlind
	t.toAct = t.dealer
	t.needAction = 2
	t.stats.Hands++
	t.log.Debug().Str("hand", t.handID.String()).Int("dealer", t.dealer).Msg("hand started")
}

func (t *Table) placeBetLocked(seat int, chips int64) {
	if chips >= t.stacks[seat] {
		chips = t.stacks[seat]
		t.allIn[seat] = true
	}
	t.stacks[seat] -= chips
	t.bets[seat] += chips
}

func (t *Table) canRaiseLocked(seat int) bool {
	other := 1 - seat
	return !t.allIn[other] && t.stacks[seat]+t.bets[seat] > t.curBet
}

func (t *Table) legalLocked(seat int) []ActionType {
	legal := []ActionType{ActionFold}
	if t.bets[seat] == t.curBet {
		legal = append(legal, ActionCheck)
	} else if t.stacks[seat]+t.bets[seat] > t.curBet {
		legal = append(legal, ActionCall)
	}
	if t.canRaiseLocked(seat) {
		if t.stacks[seat]+t.bets[seat] > t.curBet+t.minRaise {
			legal = append(legal, ActionRaise)
		}
		legal = append(legal, ActionAllIn)
	} else if t.stacks[seat]+t.bets[seat] <= t.curBet {
		// calling would put us all-in
		legal = append(legal, ActionAllIn)
	}
	return legal
}

func (t *Table) opponentActLocked() {
	if t.sitOut[opponent] {
		if t.bets[opponent] == t.curBet {
			t.actLocked(opponent, ActionCheck, 0)
		} else {
			t.actLocked(opponent, ActionFold, 0)
		}
		return
	}
	v := View{
		Street:     t.street,
		Hole:       t.hole[opponent],
		Board:      append([]card.Card(nil), t.board...),
		Pot:        t.pot + t.bets[0] + t.bets[1],
		CurrentBet: t.curBet,
		MyBet:      t.bets[opponent],
		MyStack:    t.stacks[opponent],
		MinRaiseTo: t.curBet + t.minRaise,
		Legal:      t.legalLocked(opponent),
	}
	d := t.brain.Decide(v)
	legal := false
	for _, a := range v.Legal {
		legal = legal || a == d.Action
	}
	if !legal {
		t.log.Warn().Stringer("action", d.Action).Msg("opponent chose an illegal action; folding")
		d = Decision{Action: ActionFold}
	}
	t.actLocked(opponent, d.Action, d.Amount)
}

// actLocked applies a legal move. Raise amounts are raise-to totals.
func (t *Table) actLocked(seat int, a ActionType, amount int64) {
	other := 1 - seat
	switch a {
	case ActionFold:
		t.folded[seat] = true
		t.log.Debug().Int("seat", seat).Msg("fold")
		t.endHandLocked(other)
		return
	case ActionCheck:
	case ActionCall:
		t.placeBetLocked(seat, t.curBet-t.bets[seat])
	case ActionAllIn:
		amount = t.stacks[seat] + t.bets[seat]
		fallthrough
	case ActionRaise:
		all := t.stacks[seat] + t.bets[seat]
		amount = max(amount, t.curBet+t.minRaise)
		amount = min(amount, all)
		if amount <= t.curBet {
			t.placeBetLocked(seat, t.stacks[seat])
			break
		}
		if inc := amount - t.curBet; inc >= t.minRaise {
			t.minRaise = inc
		}
		t.curBet = amount
		t.placeBetLocked(seat, amount-t.bets[seat])
		t.needAction = 1
		if t.allIn[other] {
			t.needAction = 0
		}
		t.toAct = other
		t.afterActionLocked()
		return
	}
	t.needAction--
	t.toAct = other
	t.afterActionLocked()
}

func (t *Table) afterActionLocked() {
	matched := t.bets[0] == t.bets[1] ||
		(t.allIn[0] && t.bets[0] < t.bets[1]) || (t.allIn[1] && t.bets[1] < t.bets[0])
	if t.needAction > 0 && !(t.allIn[t.toAct] && matched) {
		return
	}
	if !matched {
		// 对手已全下，轮到跟注方
		return
	}
	t.collectBetsLocked()
	if t.street == 3 || t.allIn[0] || t.allIn[1] {
		for len(t.board) < 5 {
			t.board = append(t.board, t.deck.Pop())
		}
		t.showdownLocked()
		return
	}
	t.street++
	if t.street == 1 {
		t.board = append(t.board, t.deck.Pop(), t.deck.Pop(), t.deck.Pop())
	} else {
		t.board = append(t.board, t.deck.Pop())
	}
	t.curBet = 0
	t.minRaise = t.cfg.BigBlind
	t.needAction = 2
	t.toAct = 1 - t.dealer
}

// collectBetsLocked moves bets into the pot, returning an unmatched excess.
func (t *Table) collectBetsLocked() {
	if d := t.bets[0] - t.bets[1]; d > 0 {
		t.stacks[0] += d
		t.bets[0] -= d
	} else if d < 0 {
		t.stacks[1] -= d
		t.bets[1] += d
	}
	t.pot += t.bets[0] + t.bets[1]
	t.bets = [2]int64{}
}

func (t *Table) showdownLocked() {
	var score [2]int16
	for seat := 0; seat < 2; seat++ {
		var seven [7]card.Card
		seven[0], seven[1] = t.hole[seat][0], t.hole[seat][1]
		copy(seven[2:], t.board)
		s, err := card.Eval7(seven)
		if err != nil {
			// cannot happen with a full deck; split rather than corrupt the count
			t.log.Error().Err(err).Msg("showdown evaluation failed")
		}
		score[seat] = s
	}
	t.stats.Showdowns++
	switch {
	case score[0] > score[1]:
		t.endHandLocked(hero)
	case score[1] > score[0]:
		t.endHandLocked(opponent)
	default:
		t.endHandLocked(-1)
	}
}

// endHandLocked pays the pot; winner -1 splits it.
func (t *Table) endHandLocked(winner int) {
	t.collectBetsLocked()
	switch winner {
	case -1:
		half := t.pot / 2
		t.stacks[t.dealer] += half
		t.stacks[1-t.dealer] += t.pot - half
	default:
		t.stacks[winner] += t.pot
	}
	t.stats.HeroNet += t.stacks[hero] - t.heroStart
	t.pot = 0
	t.ended = true
	t.log.Debug().Str("hand", t.handID.String()).Int("winner", winner).Int64("hero_stack", t.stacks[hero]).Msg("hand ended")
}

func (t *Table) snapshotLocked() engine.Snapshot {
	s := engine.Snapshot{
		TotalPot:  t.pot + t.bets[0] + t.bets[1],
		Bet:       t.bets,
		Stack:     t.stacks[hero],
		Dealer:    [2]bool{t.dealer == 0, t.dealer == 1},
		AllIn:     t.allIn,
		SitOut:    t.sitOut,
		Highlight: [2]bool{t.toAct == hero, t.toAct == opponent},
		Waiting:   t.toAct == hero && !t.ended,
		Hole:      t.hole[hero],
		TakenAt:   t.now(),
	}
	copy(s.Board[:], t.board)
	if s.Waiting {
		s.Buttons = engine.ButtonFold | engine.ButtonCall
		if t.canRaiseLocked(hero) {
			s.Buttons |= engine.ButtonRaise | engine.ButtonInput
		}
	}
	return s
}
