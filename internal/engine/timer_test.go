package engine

import (
	"context"
	"mycelium/internal/infra/persistence/memory"
	"mycelium/pkg/domain"
	"testing"
	"time"
)

func TestAutoAdvanceRunsToMatureAndStops(t *testing.T) {
	disc := &stubDiscoverer{org: organism("Pleurotus")}
	c := newController(t, memory.NewStore(), disc, WithAutoAdvanceInterval(5*time.Millisecond))
	if !c.AutoAdvancing() {
		t.Fatalf("timer should start on construction")
	}
	eventually(t, func() bool { return c.Snapshot().CurrentStage == domain.StageMature })
	eventually(t, func() bool { return !c.AutoAdvancing() })
	if err := c.AwaitDiscovery(context.Background()); err != nil {
		t.Fatalf("await: %v", err)
	}
	snap := c.Snapshot()
	if len(snap.History) != 4 {
		t.Fatalf("history %d", len(snap.History))
	}
	if snap.Organism == nil {
		t.Fatalf("organism should be attached")
	}
	c.StartAutoAdvance()
	if c.AutoAdvancing() {
		t.Fatalf("timer must not restart at mature")
	}
}

func TestAutoAdvanceKeepsTickingWhileGated(t *testing.T) {
	store := memory.NewStore()
	dry := domain.DefaultParameters()
	dry.Humidity = 10
	if err := store.Save(context.Background(), domain.Snapshot{CycleID: "dry", CurrentStage: domain.StageSpore, Parameters: dry}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := newController(t, store, nil, WithAutoAdvanceInterval(5*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	if got := c.Snapshot().CurrentStage; got != domain.StageSpore {
		t.Fatalf("gated timer advanced to %s", got)
	}
	if !c.AutoAdvancing() {
		t.Fatalf("gating must not stop the timer")
	}
	if _, err := c.SetParameter(context.Background(), domain.FieldHumidity, 70); err != nil {
		t.Fatalf("set: %v", err)
	}
	eventually(t, func() bool { return c.Snapshot().CurrentStage != domain.StageSpore })
}

func TestStopAutoAdvanceFreezesStage(t *testing.T) {
	c := newController(t, memory.NewStore(), nil, WithAutoAdvanceInterval(2*time.Millisecond))
	c.StopAutoAdvance()
	frozen := c.Snapshot()
	time.Sleep(20 * time.Millisecond)
	after := c.Snapshot()
	if after.CurrentStage != frozen.CurrentStage || len(after.History) != len(frozen.History) {
		t.Fatalf("tick took effect after stop: %s -> %s", frozen.CurrentStage, after.CurrentStage)
	}
	if c.AutoAdvancing() {
		t.Fatalf("timer still reported running")
	}
}

func TestResetStopsTimerUntilRestarted(t *testing.T) {
	c := newController(t, memory.NewStore(), nil, WithAutoAdvanceInterval(3*time.Millisecond))
	eventually(t, func() bool { return c.Snapshot().CurrentStage != domain.StageSpore })
	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if c.AutoAdvancing() {
		t.Fatalf("reset should stop the timer")
	}
	time.Sleep(20 * time.Millisecond)
	if snap := c.Snapshot(); snap.CurrentStage != domain.StageSpore || len(snap.History) != 0 {
		t.Fatalf("tick after reset: %+v", snap)
	}
	c.StartAutoAdvance()
	c.StartAutoAdvance()
	if !c.AutoAdvancing() {
		t.Fatalf("timer should restart")
	}
	eventually(t, func() bool { return c.Snapshot().CurrentStage != domain.StageSpore })
}

func TestZeroIntervalDisablesTimer(t *testing.T) {
	c := newController(t, memory.NewStore(), nil)
	c.StartAutoAdvance()
	if c.AutoAdvancing() {
		t.Fatalf("zero interval must disable auto-advance")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	disc := &stubDiscoverer{org: organism("Amanita"), release: make(chan struct{}), honorCtx: true}
	c := newController(t, memory.NewStore(), disc, WithAutoAdvanceInterval(2*time.Millisecond))
	eventually(t, func() bool { return c.Snapshot().CurrentStage == domain.StageFruiting || c.Snapshot().CurrentStage == domain.StageMature })
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st := c.Status()
	if st.AutoAdvancing || st.Discovering {
		t.Fatalf("close left work running: %+v", st)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
