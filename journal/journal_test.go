package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-autopilot/abstraction"
	"holdem-autopilot/card"
	"holdem-autopilot/engine"
)

func testSnapshot() engine.Snapshot {
	s := engine.Snapshot{
		TotalPot:  60,
		Bet:       [2]int64{20, 40},
		Stack:     980,
		Dealer:    [2]bool{false, true},
		Highlight: [2]bool{true, false},
		Waiting:   true,
		Buttons:   engine.ButtonFold | engine.ButtonCall | engine.ButtonRaise,
		TakenAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Hole = [2]card.Card{card.MustParse("As"), card.MustParse("Kd")}
	return s
}

func testDecision(table string, hand uuid.UUID, path string, at time.Time) engine.Decision {
	return engine.Decision{
		Table:    table,
		HandID:   hand,
		Path:     path,
		Edge:     abstraction.RaiseP,
		Command:  engine.Command{Kind: engine.CommandRaise, Edge: "RAISE_P", Amount: 140, MinBet: 60},
		Depth:    100,
		BigBlind: 20,
		Round:    abstraction.Preflop,
		Snapshot: testSnapshot(),
		At:       at,
	}
}

func TestFingerprint_FollowsReading(t *testing.T) {
	a := testSnapshot()
	b := a
	b.TotalPot = 999
	b.Highlight = [2]bool{}
	b.TakenAt = time.Now()
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 24)

	b.Bet[1] = 60
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFromDecision(t *testing.T) {
	hand := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 1, 0, time.FixedZone("x", 3600))
	r, err := FromDecision(testDecision("t1", hand, "pQ", at))
	require.NoError(t, err)
	assert.Equal(t, hand.String(), r.HandID)
	assert.Equal(t, "RAISE_P", r.Edge)
	assert.Equal(t, "raise", r.Command)
	assert.Equal(t, int64(140), r.Amount)
	assert.Equal(t, "preflop", r.Round)
	assert.Equal(t, time.UTC, r.DecidedAt.Location())

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(980), s.Stack)
}

func exerciseService(t *testing.T, svc Service) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h1, h2 := uuid.New(), uuid.New()

	rec := NewRecorder(svc, zerolog.Nop())
	require.NoError(t, rec.Record(ctx, testDecision("t1", h1, "", base)))
	d := testDecision("t1", h1, "cC", base.Add(time.Second))
	d.Snapshot.Stack = 940
	require.NoError(t, rec.Record(ctx, d))
	require.NoError(t, rec.Record(ctx, testDecision("t2", h2, "", base.Add(2*time.Second))))

	recent, err := svc.ListRecent(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "cC", recent[0].Path, "newest first")
	assert.Equal(t, "", recent[1].Path)

	all, err := svc.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hand, err := svc.GetHand(ctx, h1.String())
	require.NoError(t, err)
	require.Len(t, hand, 2)
	assert.Equal(t, "", hand[0].Path)
	snap, err := hand[1].Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(940), snap.Stack)

	_, err = svc.GetHand(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, svc.Append(ctx, Record{HandID: h1.String()}), "table is required")
}

func TestMemoryService(t *testing.T) {
	exerciseService(t, NewMemoryService())
}

func TestSQLiteService(t *testing.T) {
	svc, err := NewSQLiteService(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	defer svc.Close()
	exerciseService(t, svc)
}

func TestSQLiteService_RetryReplacesAttempt(t *testing.T) {
	svc, err := NewSQLiteService(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer svc.Close()
	ctx := context.Background()
	hand := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := FromDecision(testDecision("t1", hand, "c", at))
	require.NoError(t, err)
	require.NoError(t, svc.Append(ctx, first))

	retry := first
	retry.Rollback = true
	retry.DecidedAt = at.Add(5 * time.Second)
	require.NoError(t, svc.Append(ctx, retry))

	rows, err := svc.GetHand(ctx, hand.String())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Rollback)
	assert.Equal(t, retry.DecidedAt, rows[0].DecidedAt)
}

func TestSQLiteService_TrimsOldRows(t *testing.T) {
	svc, err := NewSQLiteService(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer svc.Close()
	svc.retainLimit = 3
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r, err := FromDecision(testDecision("t1", uuid.New(), "", at.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		require.NoError(t, svc.Append(ctx, r))
	}
	rows, err := svc.ListRecent(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, at.Add(4*time.Second), rows[0].DecidedAt)
}

func TestNewServiceFromMode(t *testing.T) {
	svc, name, err := NewServiceFromMode("", "")
	require.NoError(t, err)
	assert.Equal(t, "noop", name)
	recent, err := svc.ListRecent(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)

	svc, name, err = NewServiceFromMode("SQLite", filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", name)
	require.NoError(t, svc.Close())

	_, _, err = NewServiceFromMode("redis", "")
	assert.Error(t, err)
}
