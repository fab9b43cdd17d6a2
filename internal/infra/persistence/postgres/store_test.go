package postgres

import (
	"context"
	"database/sql"
	"errors"
	"mycelium/internal/infra/persistence/postgres/testutil"
	"mycelium/pkg/domain"
	"strings"
	"testing"
	"time"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state DDL, got %v", conn.Execs)
	}
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if _, ok, err := store.Load(ctx); ok || err != nil {
		t.Fatalf("empty table must load ok=false: %v %v", ok, err)
	}
	snap := domain.Snapshot{
		CycleID:        "c-1",
		CurrentStage:   domain.StageHyphae,
		Parameters:     domain.DefaultParameters(),
		History:        []domain.HistoryEntry{{Key: 1, Stage: domain.StageHyphae, OccurredAt: time.Unix(10, 0).UTC()}},
		LastHistoryKey: 1,
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.CurrentStage = domain.StageMycelium
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if rows := conn.Rows("state"); len(rows) != 4 {
		t.Fatalf("expected 4 bucket rows, got %d", len(rows))
	}
	got, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: %v %v", ok, err)
	}
	if got.CurrentStage != domain.StageMycelium || got.CycleID != "c-1" || len(got.History) != 1 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestSaveFailures(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	conn.FailBegin = true
	if err := store.Save(ctx, domain.Snapshot{}); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailTables = map[string]bool{"state": true}
	if err := store.Save(ctx, domain.Snapshot{}); err == nil {
		t.Fatalf("expected upsert failure")
	}
	if _, _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected query failure")
	}
	conn.FailTables = nil
	conn.FailCommit = true
	if err := store.Save(ctx, domain.Snapshot{}); err == nil {
		t.Fatalf("expected commit failure")
	}
}

func TestLoadPropagatesRowsError(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if err := store.Save(ctx, domain.Snapshot{CurrentStage: domain.StageSpore}); err != nil {
		t.Fatalf("save: %v", err)
	}
	conn.RowsErr = errors.New("connection reset")
	if _, _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected rows error")
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected ping failure")
	}
}
