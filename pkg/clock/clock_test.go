package clock

import (
	"testing"
	"time"
)

func TestRealClock_After(t *testing.T) {
	c := Real()
	start := time.Now()
	<-c.After(20 * time.Millisecond)

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("After() took %v, want >= 20ms", elapsed)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	c := Real()
	ticker := c.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

func TestFakeClock_AfterAdvancesAndRecords(t *testing.T) {
	start := time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	got := <-c.After(2 * time.Second)
	<-c.After(3 * time.Second)

	if want := start.Add(2 * time.Second); !got.Equal(want) {
		t.Errorf("first After() = %v, want %v", got, want)
	}
	if want := start.Add(5 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", c.Now(), want)
	}

	waits := c.Waits()
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 3*time.Second {
		t.Errorf("Waits() = %v, want [2s 3s]", waits)
	}
}

func TestFakeClock_Since(t *testing.T) {
	start := time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(90 * time.Second)

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
}

func TestFakeClock_Ticker(t *testing.T) {
	c := NewFakeClock(time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC))
	ticker := c.NewTicker(time.Minute)

	c.Advance(30 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	ticker.Stop()
	c.Advance(time.Minute)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
