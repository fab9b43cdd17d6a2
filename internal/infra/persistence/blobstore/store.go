// Package blobstore persists simulation snapshots as JSON objects in a blob
// store, keeping a bounded archive of past snapshots.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mycelium/internal/blob/core"
	"mycelium/pkg/domain"
	"strings"
	"sync"
	"time"
)

var _ domain.SnapshotStore = (*Store)(nil)

const (
	defaultPrefix = "snapshots/"
	contentType   = "application/json"
)

// Store writes every snapshot to a new, lexically ordered key and loads the
// newest one. Objects beyond Retain are pruned oldest first.
type Store struct {
	blobs  core.Store
	prefix string
	retain int
	now    func() time.Time

	mu  sync.Mutex
	seq uint64
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix under which snapshots are written.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetain sets how many snapshot objects are kept. Values below 1 keep one.
func WithRetain(n int) Option {
	return func(s *Store) { s.retain = n }
}

// WithClock overrides the time source used for key generation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps a blob store.
func New(blobs core.Store, opts ...Option) *Store {
	s := &Store{blobs: blobs, prefix: defaultPrefix, retain: 10, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if !strings.HasSuffix(s.prefix, "/") {
		s.prefix += "/"
	}
	if s.retain < 1 {
		s.retain = 1
	}
	return s
}

// Load reads the newest snapshot object.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, bool, error) {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("list snapshots: %w", err)
	}
	if len(infos) == 0 {
		return domain.Snapshot{}, false, nil
	}
	latest := infos[len(infos)-1].Key
	_, rc, err := s.blobs.Get(ctx, latest)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("get snapshot %s: %w", latest, err)
	}
	defer func() { _ = rc.Close() }()
	var snap domain.Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", latest, err)
	}
	return snap, true, nil
}

// Save writes snap under a fresh key and prunes objects beyond the retention limit.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		key := s.nextKey()
		_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), core.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"cycle-id": snap.CycleID, "stage": string(snap.CurrentStage)},
		})
		if errors.Is(err, core.ErrExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("put snapshot %s: %w", key, err)
		}
		break
	}
	return s.prune(ctx)
}

// nextKey returns a key that sorts after every key this Store has issued.
// Keys embed the wall clock in nanoseconds so separate processes also order.
func (s *Store) nextKey() string {
	n := uint64(s.now().UTC().UnixNano())
	if n <= s.seq {
		n = s.seq + 1
	}
	s.seq = n
	return fmt.Sprintf("%s%020d.json", s.prefix, n)
}

func (s *Store) prune(ctx context.Context) error {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	excess := len(infos) - s.retain
	for i := 0; i < excess; i++ {
		if _, err := s.blobs.Delete(ctx, infos[i].Key); err != nil {
			return fmt.Errorf("prune %s: %w", infos[i].Key, err)
		}
	}
	return nil
}
