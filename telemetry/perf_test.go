package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorWindow(t *testing.T) {
	p := NewPerfCollector(3)
	clock := time.Unix(0, 0)
	p.now = func() time.Time { return clock }

	p.Begin()
	for _, ms := range []int{10, 20, 30, 40} {
		clock = clock.Add(time.Duration(ms) * time.Millisecond)
		if err := p.ObserveTick(0, nil); err != nil {
			t.Fatal(err)
		}
	}

	st := p.Stats()
	// Window holds the last three ticks: 20, 30, 40.
	if st.AvgTickDuration != 30*time.Millisecond {
		t.Errorf("avg = %v, want 30ms", st.AvgTickDuration)
	}
	if st.MinTickDuration != 20*time.Millisecond || st.MaxTickDuration != 40*time.Millisecond {
		t.Errorf("min/max = %v/%v", st.MinTickDuration, st.MaxTickDuration)
	}
	if st.Ticks != 4 || st.Elapsed != 100*time.Millisecond {
		t.Errorf("totals = %d ticks, %v", st.Ticks, st.Elapsed)
	}
	if st.TicksPerSecond < 33.3 || st.TicksPerSecond > 33.4 {
		t.Errorf("ticks/sec = %v", st.TicksPerSecond)
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	st := NewPerfCollector(0).Stats()
	if st.Ticks != 0 || st.AvgTickDuration != 0 || st.TicksPerSecond != 0 {
		t.Errorf("empty stats = %+v", st)
	}
}
