// Package memory provides the in-memory snapshot store and the bucket codec
// shared by the durable backends.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"mycelium/pkg/domain"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SnapshotStore = (*Store)(nil)

// Store keeps the most recent snapshot in process memory.
type Store struct {
	mu    sync.RWMutex
	snap  domain.Snapshot
	ok    bool
	saves int
}

// NewStore returns an empty in-memory store.
func NewStore() *Store { return &Store{} }

// Load returns a copy of the last saved snapshot.
func (s *Store) Load(_ context.Context) (domain.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return domain.Snapshot{}, false, nil
	}
	return cloneSnapshot(s.snap), true, nil
}

// Save replaces the stored snapshot with a copy of snap.
func (s *Store) Save(_ context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cloneSnapshot(snap)
	s.ok = true
	s.saves++
	return nil
}

// Saves reports how many snapshots have been written.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func cloneSnapshot(in domain.Snapshot) domain.Snapshot {
	out := in
	out.Organism = in.Organism.Clone()
	out.History = append([]domain.HistoryEntry(nil), in.History...)
	return out
}

// Bucket names used by the durable backends' state(bucket, payload) table.
const (
	BucketMeta       = "meta"
	BucketParameters = "parameters"
	BucketOrganism   = "organism"
	BucketHistory    = "history"
)

// Buckets lists every bucket in write order.
var Buckets = []string{BucketMeta, BucketParameters, BucketOrganism, BucketHistory}

type metaPayload struct {
	CycleID        string       `json:"cycle_id"`
	CurrentStage   domain.Stage `json:"current_stage"`
	LastHistoryKey uint64       `json:"last_history_key"`
	SavedAt        time.Time    `json:"saved_at"`
}

// EncodeBucket serialises the part of snap stored under bucket.
func EncodeBucket(bucket string, snap domain.Snapshot) ([]byte, error) {
	switch bucket {
	case BucketMeta:
		return json.Marshal(metaPayload{
			CycleID:        snap.CycleID,
			CurrentStage:   snap.CurrentStage,
			LastHistoryKey: snap.LastHistoryKey,
			SavedAt:        snap.SavedAt,
		})
	case BucketParameters:
		return json.Marshal(snap.Parameters)
	case BucketOrganism:
		return json.Marshal(snap.Organism)
	case BucketHistory:
		history := snap.History
		if history == nil {
			history = []domain.HistoryEntry{}
		}
		return json.Marshal(history)
	default:
		return nil, fmt.Errorf("unknown bucket %s", bucket)
	}
}

// DecodeBucket merges payload for bucket into snap. Unknown buckets are ignored
// so older binaries can read newer tables.
func DecodeBucket(bucket string, payload []byte, snap *domain.Snapshot) error {
	var err error
	switch bucket {
	case BucketMeta:
		var meta metaPayload
		if err = json.Unmarshal(payload, &meta); err == nil {
			snap.CycleID = meta.CycleID
			snap.CurrentStage = meta.CurrentStage
			snap.LastHistoryKey = meta.LastHistoryKey
			snap.SavedAt = meta.SavedAt
		}
	case BucketParameters:
		err = json.Unmarshal(payload, &snap.Parameters)
	case BucketOrganism:
		err = json.Unmarshal(payload, &snap.Organism)
	case BucketHistory:
		err = json.Unmarshal(payload, &snap.History)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
