package blobstore

import (
	"context"
	"mycelium/internal/blob/core"
	"mycelium/internal/infra/blob/fs"
	"mycelium/internal/infra/blob/memory"
	"mycelium/internal/infra/blob/s3"
	"mycelium/pkg/domain"
	"strings"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]core.Store {
	t.Helper()
	fsStore, err := fs.New(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	return map[string]core.Store{
		"memory": memory.New(),
		"fs":     fsStore,
		"s3":     s3.NewMockForTests(),
	}
}

func TestSaveLoadLatestAcrossBackends(t *testing.T) {
	for name, blobs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
			store := New(blobs, WithPrefix("sim"), WithRetain(2), WithClock(func() time.Time { return fixed }))
			if _, ok, err := store.Load(ctx); ok || err != nil {
				t.Fatalf("empty archive: %v %v", ok, err)
			}
			for _, stage := range []domain.Stage{domain.StageHyphae, domain.StageMycelium, domain.StageFruiting} {
				if err := store.Save(ctx, domain.Snapshot{CycleID: "c", CurrentStage: stage, Parameters: domain.DefaultParameters()}); err != nil {
					t.Fatalf("save %s: %v", stage, err)
				}
			}
			got, ok, err := store.Load(ctx)
			if err != nil || !ok {
				t.Fatalf("load: %v %v", ok, err)
			}
			if got.CurrentStage != domain.StageFruiting {
				t.Fatalf("expected newest snapshot, got %s", got.CurrentStage)
			}
			infos, err := blobs.List(ctx, "sim/")
			if err != nil || len(infos) != 2 {
				t.Fatalf("retention not applied: %v %d", err, len(infos))
			}
		})
	}
}

func TestNextKeyIsMonotonicWithFrozenClock(t *testing.T) {
	fixed := time.Unix(0, 500)
	store := New(memory.New(), WithClock(func() time.Time { return fixed }), WithRetain(0))
	a, b := store.nextKey(), store.nextKey()
	if !(a < b) {
		t.Fatalf("keys not increasing: %s %s", a, b)
	}
	if store.retain != 1 {
		t.Fatalf("retain floor not applied: %d", store.retain)
	}
}

func TestLoadRejectsCorruptObject(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	store := New(blobs)
	if err := store.Save(ctx, domain.Snapshot{CurrentStage: domain.StageSpore}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := blobs.Put(ctx, "snapshots/99999999999999999999.json", stringsReader("{"), core.PutOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected decode error")
	}
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }
