package game

import "testing"

func runningClock(quarter, game, shot int) ClockState {
	return ClockState{
		Quarter: quarter,
		Game:    GameClock{SecondsRemaining: game, Running: true},
		Shot:    ShotClock{SecondsRemaining: shot, Running: true, Visible: true},
	}
}

func TestMadeBasketResetsShotClock(t *testing.T) {
	res := ProcessClockEvent(runningClock(1, 400, 9), GameEvent{StatType: StatFieldGoal, Modifier: ModifierMade}, NBARules(), AllAutomation())
	if res.State.Shot.SecondsRemaining != 24 {
		t.Fatalf("expected shot clock 24, got %d", res.State.Shot.SecondsRemaining)
	}
	if res.State.Shot.Running {
		t.Fatal("expected shot clock stopped until inbound")
	}
	if !res.State.Game.Running {
		t.Fatal("expected game clock to keep running early in the game")
	}
}

func TestMadeBasketLateFourthStopsGameClock(t *testing.T) {
	res := ProcessClockEvent(runningClock(4, 90, 10), GameEvent{StatType: StatThreePointer, Modifier: ModifierMade}, NBARules(), AllAutomation())
	if res.State.Game.Running {
		t.Fatal("expected game clock stopped in the last two minutes")
	}
}

func TestOffensiveReboundResetsToFourteen(t *testing.T) {
	res := ProcessClockEvent(runningClock(2, 300, 5), GameEvent{StatType: StatRebound, Modifier: ModifierOffensive}, NBARules(), AllAutomation())
	if res.State.Shot.SecondsRemaining != 14 {
		t.Fatalf("expected 14, got %d", res.State.Shot.SecondsRemaining)
	}
	res = ProcessClockEvent(runningClock(2, 300, 20), GameEvent{StatType: StatRebound, Modifier: ModifierOffensive}, NBARules(), AllAutomation())
	if res.State.Shot.SecondsRemaining != 20 {
		t.Fatalf("expected shot clock above the floor to be kept, got %d", res.State.Shot.SecondsRemaining)
	}
}

func TestDefensiveReboundResetsFull(t *testing.T) {
	res := ProcessClockEvent(runningClock(2, 300, 3), GameEvent{StatType: StatRebound, ReboundType: ModifierDefensive}, NCAARules(), AllAutomation())
	if res.State.Shot.SecondsRemaining != 30 {
		t.Fatalf("expected 30, got %d", res.State.Shot.SecondsRemaining)
	}
}

func TestFoulStopsBothClocks(t *testing.T) {
	res := ProcessClockEvent(runningClock(3, 200, 18), GameEvent{StatType: StatFoul, Modifier: ModifierPersonal}, NBARules(), AllAutomation())
	if res.State.Game.Running || res.State.Shot.Running {
		t.Fatalf("expected clocks stopped, got %+v", res.State)
	}
	if res.State.Shot.SecondsRemaining != 18 {
		t.Fatalf("expected shot clock kept at 18, got %d", res.State.Shot.SecondsRemaining)
	}
}

func TestAutomationDisabledIsNoop(t *testing.T) {
	in := runningClock(1, 500, 12)
	res := ProcessClockEvent(in, GameEvent{StatType: StatTurnover}, NBARules(), AutomationFlags{})
	if res.State != in || len(res.Actions) != 0 {
		t.Fatalf("expected untouched state, got %+v actions=%v", res.State, res.Actions)
	}
}

func TestNoShotClockRulesetDropsShotActions(t *testing.T) {
	res := ProcessClockEvent(runningClock(1, 400, 0), GameEvent{StatType: StatSteal}, HighSchoolRules(), AllAutomation())
	for _, a := range res.Actions {
		if a.Type == ClockActionResetShot {
			t.Fatalf("unexpected shot clock action %+v", a)
		}
	}
}

func TestTickNeverNegative(t *testing.T) {
	st := runningClock(1, 2, 1)
	var sawViolation, sawExpiry bool
	for i := 0; i < 10; i++ {
		var evs TickEvents
		st, evs = TickClocks(st)
		sawViolation = sawViolation || evs.ShotClockViolation
		sawExpiry = sawExpiry || evs.PeriodExpired
		if st.Game.SecondsRemaining < 0 || st.Shot.SecondsRemaining < 0 {
			t.Fatalf("negative clock after tick %d: %+v", i, st)
		}
	}
	if !sawViolation || !sawExpiry {
		t.Fatalf("expected violation and expiry, got violation=%v expiry=%v", sawViolation, sawExpiry)
	}
	if st.Game.Running {
		t.Fatal("expected game clock stopped at zero")
	}
}
