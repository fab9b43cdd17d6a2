package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mycelium/internal/blob/core"
	"testing"
)

func TestStore_RoundTripAndBranches(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
	if _, err := store.Put(ctx, "snapshots/a", bytes.NewReader([]byte("v")), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"stage": "spore"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "snapshots/a", bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	if _, err := store.Put(ctx, "other/b", bytes.NewReader([]byte("w")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	info, rc, err := store.Get(ctx, "snapshots/a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "v" || info.Metadata["stage"] != "spore" || info.Size != 1 {
		t.Fatalf("unexpected blob %q %+v", body, info)
	}
	info.Metadata["stage"] = "mutated"
	if again, _, _ := store.Get(ctx, "snapshots/a"); again.Metadata["stage"] != "spore" {
		t.Fatalf("metadata must be copied")
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 || list[0].Key != "other/b" {
		t.Fatalf("list all: %v %+v", err, list)
	}
	if list, err := store.List(ctx, "snapshots/"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if ok, err := store.Delete(ctx, "snapshots/a"); err != nil || !ok {
		t.Fatalf("delete existing: %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStore_PutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
