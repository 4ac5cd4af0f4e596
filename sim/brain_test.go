package sim

import (
	"testing"

	"holdem-autopilot/card"
)

func preflopView(hole string) View {
	cards, err := card.ParseList(hole)
	if err != nil {
		panic(err)
	}
	return View{
		Street:     0,
		Hole:       [2]card.Card{cards[0], cards[1]},
		Pot:        30,
		CurrentBet: 20,
		MyBet:      10,
		MyStack:    990,
		MinRaiseTo: 40,
		Legal:      []ActionType{ActionFold, ActionCall, ActionRaise, ActionAllIn},
	}
}

func TestRuleBrainPremiumAlwaysRaises(t *testing.T) {
	brain := NewRuleBrain(Profile{Aggression: 0.45, Tightness: 0.35, Bluffing: 0.2}, 42)
	view := preflopView("As Ah")
	for i := 0; i < 500; i++ {
		d := brain.Decide(view)
		if d.Action != ActionRaise {
			t.Fatalf("round %d: got %s, want RAISE", i, d.Action)
		}
		if d.Amount < view.MinRaiseTo || d.Amount > view.MyStack+view.MyBet {
			t.Fatalf("round %d: raise to %d outside [%d, %d]", i, d.Amount, view.MinRaiseTo, view.MyStack+view.MyBet)
		}
	}
}

func TestRuleBrainTightFoldsTrash(t *testing.T) {
	brain := NewRuleBrain(Profile{Aggression: 0.5, Tightness: 0.9}, 7)
	for i := 0; i < 500; i++ {
		if d := brain.Decide(preflopView("7c 2d")); d.Action != ActionFold {
			t.Fatalf("round %d: got %s, want FOLD", i, d.Action)
		}
	}

	// the same hand checks when checking is free
	view := preflopView("7c 2d")
	view.MyBet = 20
	view.Legal = []ActionType{ActionFold, ActionCheck, ActionRaise, ActionAllIn}
	if d := brain.Decide(view); d.Action != ActionCheck {
		t.Fatalf("got %s, want CHECK", d.Action)
	}
}

func TestRuleBrainRaiseCappedByStack(t *testing.T) {
	brain := NewRuleBrain(Profile{Aggression: 1}, 1)
	view := preflopView("Ks Kh")
	view.MyStack = 30
	view.MyBet = 20
	d := brain.Decide(view)
	if d.Action != ActionRaise || d.Amount != 50 {
		t.Fatalf("got %s %d, want RAISE 50", d.Action, d.Amount)
	}
}

func TestRuleBrainPassiveRaiseRateCapped(t *testing.T) {
	brain := NewRuleBrain(Profile{Aggression: 0.1, Tightness: 0.2, Bluffing: 0.1, Randomness: 0.3}, 99)
	view := preflopView("7c 2d")

	const rounds = 4000
	raises := 0
	for i := 0; i < rounds; i++ {
		if brain.Decide(view).Action == ActionRaise {
			raises++
		}
	}
	rate := float64(raises) / float64(rounds)
	if rate > 0.10 {
		t.Fatalf("passive profile raise rate too high: got %.3f, want <= 0.10", rate)
	}
}

func TestScriptReplaysThenCalls(t *testing.T) {
	s := &Script{Moves: []Decision{{Action: ActionRaise, Amount: 60}, {Action: ActionCheck}}}
	view := preflopView("As Ks")

	if d := s.Decide(view); d.Action != ActionRaise || d.Amount != 60 {
		t.Fatalf("first move: got %s %d", d.Action, d.Amount)
	}
	// CHECK is not legal facing a bet, so the script falls back
	if d := s.Decide(view); d.Action != ActionCall {
		t.Fatalf("second move: got %s, want CALL", d.Action)
	}
	view.Legal = []ActionType{ActionFold, ActionAllIn}
	if d := s.Decide(view); d.Action != ActionFold {
		t.Fatalf("fallback: got %s, want FOLD", d.Action)
	}
}
