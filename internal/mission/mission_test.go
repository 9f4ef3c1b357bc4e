package mission

import (
	"errors"
	"testing"
)

func threeItemMission() Mission {
	return Mission{Items: []Item{
		{LatDeg: 47.00, LonDeg: 8.00, AltMSL: 100, AcceptRadiusM: 50},
		{LatDeg: 47.01, LonDeg: 8.00, AltMSL: 120, AcceptRadiusM: 50},
		{LatDeg: 47.02, LonDeg: 8.00, AltMSL: 140, AcceptRadiusM: 50, Action: ActionLand},
	}}
}

func TestNavigator_EmptyHasNoTarget(t *testing.T) {
	n := NewNavigator()
	if _, ok := n.Current(); ok {
		t.Fatalf("unloaded navigator returned a target")
	}
	if n.HasMission() {
		t.Fatalf("HasMission true with nothing loaded")
	}
	if n.CheckArrival(47, 8) {
		t.Fatalf("arrival without a target")
	}
}

func TestNavigator_SequencesThreeItems(t *testing.T) {
	n := NewNavigator()
	n.Load(threeItemMission())

	// At item 0 within its radius: arrival, advance.
	if !n.CheckArrival(47.0, 8.0) {
		t.Fatalf("expected arrival at item 0")
	}
	n.Advance()
	if n.CurrentIndex() != 1 {
		t.Fatalf("cursor=%d want 1", n.CurrentIndex())
	}

	// Far from item 1: no arrival.
	if n.CheckArrival(47.0, 8.0) {
		t.Fatalf("false arrival at item 1")
	}
	if !n.CheckArrival(47.01, 8.0) {
		t.Fatalf("expected arrival at item 1")
	}
	n.Advance()
	if !n.CheckArrival(47.02, 8.0) {
		t.Fatalf("expected arrival at item 2")
	}
	n.Advance()

	if !n.Complete() {
		t.Fatalf("mission should be complete")
	}
	if _, ok := n.Current(); ok {
		t.Fatalf("completed mission returned a target")
	}
	// After completion the caller loiters at the last item.
	last, ok := n.LastItem()
	if !ok || last.LatDeg != 47.02 {
		t.Fatalf("last item=%+v ok=%v", last, ok)
	}
}

func TestNavigator_AdvanceSaturates(t *testing.T) {
	n := NewNavigator()
	n.Load(Mission{Items: []Item{{LatDeg: 1, AcceptRadiusM: 10}}})
	n.Advance()
	n.Advance()
	if n.CurrentIndex() != 1 {
		t.Fatalf("cursor=%d want saturated at 1", n.CurrentIndex())
	}
}

func TestNavigator_LoadResetsCursor(t *testing.T) {
	n := NewNavigator()
	n.Load(threeItemMission())
	n.Advance()
	n.Advance()

	n.Load(threeItemMission())
	if n.CurrentIndex() != 0 {
		t.Fatalf("cursor=%d want 0 after reload", n.CurrentIndex())
	}
}

func TestNavigator_SetCurrent(t *testing.T) {
	n := NewNavigator()
	n.Load(threeItemMission())

	if err := n.SetCurrent(2); err != nil {
		t.Fatalf("jump to 2: %v", err)
	}
	if n.CurrentIndex() != 2 {
		t.Fatalf("cursor=%d want 2", n.CurrentIndex())
	}

	// Out of range: rejected, cursor unchanged.
	if err := n.SetCurrent(3); !errors.Is(err, ErrInvalidWaypointIndex) {
		t.Fatalf("err=%v want ErrInvalidWaypointIndex", err)
	}
	if err := n.SetCurrent(-1); !errors.Is(err, ErrInvalidWaypointIndex) {
		t.Fatalf("err=%v want ErrInvalidWaypointIndex", err)
	}
	if n.CurrentIndex() != 2 {
		t.Fatalf("cursor=%d want unchanged 2", n.CurrentIndex())
	}
}
