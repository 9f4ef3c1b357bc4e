// Package mission holds the uploaded waypoint list and the navigator that
// sequences it for AUTO mode.
package mission

import (
	"errors"
	"fmt"

	"mavbridge/internal/geo"
)

// ErrInvalidWaypointIndex rejects a cursor jump outside the mission.
var ErrInvalidWaypointIndex = errors.New("waypoint index out of range")

type Action int

const (
	ActionWaypoint Action = iota
	ActionLoiter
	ActionLand
)

func (a Action) String() string {
	switch a {
	case ActionWaypoint:
		return "waypoint"
	case ActionLoiter:
		return "loiter"
	case ActionLand:
		return "land"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Item is one mission element: a target point, an acceptance radius, and
// what to do on arrival.
type Item struct {
	LatDeg        float64
	LonDeg        float64
	AltMSL        float64 // meters
	AcceptRadiusM float64
	Action        Action
}

// Mission is an ordered sequence of items.
type Mission struct {
	Items []Item
}

// Navigator owns the current mission and its cursor. The cursor only moves
// forward, except on a new upload (reset to zero) or an explicit
// SetCurrent jump. cursor == len(items) is the completed sentinel.
type Navigator struct {
	items  []Item
	cursor int
	loaded bool
}

func NewNavigator() *Navigator {
	return &Navigator{}
}

// Load replaces the mission and resets the cursor, discarding any prior
// target.
func (n *Navigator) Load(m Mission) {
	n.items = append([]Item(nil), m.Items...)
	n.cursor = 0
	n.loaded = true
}

// Clear drops the mission entirely.
func (n *Navigator) Clear() {
	n.items = nil
	n.cursor = 0
	n.loaded = false
}

// HasMission reports whether a non-empty mission has been loaded.
func (n *Navigator) HasMission() bool {
	return n.loaded && len(n.items) > 0
}

// Complete reports whether the cursor has run off the end.
func (n *Navigator) Complete() bool {
	return n.loaded && n.cursor >= len(n.items)
}

// Current returns the active target item. ok is false when no mission is
// loaded, the mission is empty, or it has completed; the caller then falls
// back to loitering.
func (n *Navigator) Current() (Item, bool) {
	if !n.HasMission() || n.Complete() {
		return Item{}, false
	}
	return n.items[n.cursor], true
}

// CurrentIndex returns the cursor position (== item count when complete).
func (n *Navigator) CurrentIndex() int { return n.cursor }

// Count returns the number of items in the loaded mission.
func (n *Navigator) Count() int { return len(n.items) }

// CheckArrival reports whether the current position is within the active
// item's acceptance radius. False when there is no active item.
func (n *Navigator) CheckArrival(latDeg, lonDeg float64) bool {
	item, ok := n.Current()
	if !ok {
		return false
	}
	return geo.Distance(latDeg, lonDeg, item.LatDeg, item.LonDeg) < item.AcceptRadiusM
}

// Advance moves the cursor one item forward, saturating at the completed
// sentinel.
func (n *Navigator) Advance() {
	if n.cursor < len(n.items) {
		n.cursor++
	}
}

// SetCurrent jumps to an arbitrary valid index. An out-of-range index
// fails with ErrInvalidWaypointIndex and leaves the cursor unchanged.
func (n *Navigator) SetCurrent(i int) error {
	if !n.loaded || i < 0 || i >= len(n.items) {
		return fmt.Errorf("%w: %d (mission has %d items)", ErrInvalidWaypointIndex, i, len(n.items))
	}
	n.cursor = i
	return nil
}

// LastItem returns the final mission item, for loitering after completion.
func (n *Navigator) LastItem() (Item, bool) {
	if len(n.items) == 0 {
		return Item{}, false
	}
	return n.items[len(n.items)-1], true
}
