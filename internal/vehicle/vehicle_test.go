package vehicle

import (
	"errors"
	"math"
	"testing"
	"time"
)

type fakeSource struct {
	s  Sample
	ok bool
}

func (f *fakeSource) Sample() (Sample, bool) { return f.s, f.ok }
func (f *fakeSource) Apply(Command)          {}

func TestStateFromSample_Units(t *testing.T) {
	st := StateFromSample(Sample{
		AltMSLFt:         1000,
		RollDeg:          45,
		HeadingDeg:       90,
		YawRateDps:       10,
		AirspeedKt:       100,
		GroundSpeedKt:    100,
		GroundTrackDeg:   90,
		VerticalSpeedFpm: 600,
	})

	if math.Abs(st.AltMSL-304.8) > 1e-9 {
		t.Fatalf("alt=%v want 304.8", st.AltMSL)
	}
	if math.Abs(st.Roll-math.Pi/4) > 1e-9 {
		t.Fatalf("roll=%v want pi/4", st.Roll)
	}
	if math.Abs(st.Airspeed-51.4444) > 1e-3 {
		t.Fatalf("airspeed=%v want ~51.44", st.Airspeed)
	}
	if math.Abs(st.ClimbRate-3.048) > 1e-6 {
		t.Fatalf("climb=%v want 3.048", st.ClimbRate)
	}
	// Track 090: all velocity east, none north. Climb 600 fpm => VelDown < 0.
	if math.Abs(st.VelNorth) > 1e-6 || math.Abs(st.VelEast-st.GroundSpeed) > 1e-6 {
		t.Fatalf("vel n/e=%v/%v want 0/%v", st.VelNorth, st.VelEast, st.GroundSpeed)
	}
	if st.VelDown >= 0 {
		t.Fatalf("veldown=%v want negative while climbing", st.VelDown)
	}
}

func TestStateFromSample_YawWrapped(t *testing.T) {
	st := StateFromSample(Sample{HeadingDeg: 270})
	if math.Abs(st.Yaw-(-math.Pi/2)) > 1e-9 {
		t.Fatalf("yaw=%v want -pi/2", st.Yaw)
	}
}

func TestSnapshotter_FreshSample(t *testing.T) {
	now := time.Now()
	src := &fakeSource{s: Sample{Time: now, LatDeg: 1}, ok: true}
	sn := NewSnapshotter(src, 20*time.Millisecond)

	st, err := sn.Take(now)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if st.Stale || st.LatDeg != 1 {
		t.Fatalf("st=%+v want fresh lat=1", st)
	}
}

func TestSnapshotter_StaleReusesLastKnown(t *testing.T) {
	now := time.Now()
	src := &fakeSource{s: Sample{Time: now, LatDeg: 1}, ok: true}
	sn := NewSnapshotter(src, 20*time.Millisecond)

	if _, err := sn.Take(now); err != nil {
		t.Fatalf("take: %v", err)
	}

	// Source stops updating; 50ms later the state is stale.
	st, err := sn.Take(now.Add(50 * time.Millisecond))
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("err=%v want ErrStaleState", err)
	}
	if !st.Stale || st.LatDeg != 1 {
		t.Fatalf("st=%+v want stale last-known", st)
	}
}

func TestSnapshotter_NoSampleEver(t *testing.T) {
	sn := NewSnapshotter(&fakeSource{}, 20*time.Millisecond)
	if _, err := sn.Take(time.Now()); !errors.Is(err, ErrNoState) {
		t.Fatalf("err=%v want ErrNoState", err)
	}
}

func TestCommandClamp(t *testing.T) {
	c := Command{Aileron: 2, Elevator: -3, Rudder: 0.5, Throttle: 1.5, Collective: -1}.Clamp()
	want := Command{Aileron: 1, Elevator: -1, Rudder: 0.5, Throttle: 1}
	if c != want {
		t.Fatalf("got %+v want %+v", c, want)
	}
}
