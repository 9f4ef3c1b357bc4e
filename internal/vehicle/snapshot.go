package vehicle

import (
	"errors"
	"time"
)

// ErrStaleState reports that the vehicle interface produced no fresh sample
// within the staleness timeout. The returned state is the last-known value
// flagged stale; the failsafe monitor treats this as sensor degradation.
var ErrStaleState = errors.New("vehicle state stale")

// ErrNoState reports that no sample has ever been received.
var ErrNoState = errors.New("no vehicle state yet")

// Snapshotter turns raw samples into per-tick State values and tracks
// staleness. Owned by the control loop driver; not safe for concurrent use.
type Snapshotter struct {
	src     Source
	timeout time.Duration

	last     State
	haveLast bool
}

func NewSnapshotter(src Source, staleTimeout time.Duration) *Snapshotter {
	return &Snapshotter{src: src, timeout: staleTimeout}
}

// Take builds the state for this tick. When the newest sample is older than
// the staleness timeout it returns the last-known state with Stale set,
// together with ErrStaleState.
func (sn *Snapshotter) Take(now time.Time) (State, error) {
	s, ok := sn.src.Sample()
	if !ok {
		if !sn.haveLast {
			return State{}, ErrNoState
		}
		st := sn.last
		st.Stale = true
		return st, ErrStaleState
	}

	if now.Sub(s.Time) > sn.timeout {
		if sn.haveLast {
			st := sn.last
			st.Stale = true
			return st, ErrStaleState
		}
		// First sample ever, already old: keep it but flag it.
		st := StateFromSample(s)
		st.Stale = true
		sn.last = st
		sn.haveLast = true
		return st, ErrStaleState
	}

	st := StateFromSample(s)
	sn.last = st
	sn.haveLast = true
	return st, nil
}
