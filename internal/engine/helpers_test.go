package engine

import (
	"context"
	"errors"
	"mycelium/internal/infra/persistence/memory"
	"mycelium/pkg/domain"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// stubDiscoverer returns org after release is closed (or immediately when nil).
type stubDiscoverer struct {
	org      *domain.DiscoveredOrganism
	release  chan struct{}
	started  chan struct{}
	honorCtx bool

	mu        sync.Mutex
	calls     int
	startOnce sync.Once
}

func (s *stubDiscoverer) Discover(ctx context.Context, _ int) (*domain.DiscoveredOrganism, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.release != nil {
		if s.honorCtx {
			select {
			case <-s.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else {
			<-s.release
		}
	}
	return s.org.Clone(), nil
}

func (s *stubDiscoverer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gatedStore blocks the first Save until release is closed.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Save(ctx context.Context, snap domain.Snapshot) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.Save(ctx, snap)
}

type failingStore struct {
	loadErr error
	saveErr error
}

func (f failingStore) Load(context.Context) (domain.Snapshot, bool, error) {
	return domain.Snapshot{}, false, f.loadErr
}

func (f failingStore) Save(context.Context, domain.Snapshot) error { return f.saveErr }

var errDisk = errors.New("disk full")

func organism(name string) *domain.DiscoveredOrganism {
	return &domain.DiscoveredOrganism{Name: name, Description: "a fungus", ImageURL: "https://img/" + name, Language: "en"}
}

func newController(t *testing.T, store domain.SnapshotStore, d Discoverer, opts ...Option) *Controller {
	t.Helper()
	base := []Option{WithAutoAdvanceInterval(0), WithClock(func() time.Time { return fixedNow })}
	c, err := New(context.Background(), store, d, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustAdvance(t *testing.T, c *Controller, want domain.Stage) {
	t.Helper()
	outcome, err := c.Advance(context.Background())
	if err != nil || outcome != OutcomeAdvanced {
		t.Fatalf("advance to %s: %v %v", want, outcome, err)
	}
	if got := c.Snapshot().CurrentStage; got != want {
		t.Fatalf("stage %s want %s", got, want)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}
