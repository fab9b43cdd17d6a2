package domain

import "time"

// HistoryEntry records one completed stage transition.
type HistoryEntry struct {
	// Key is an opaque, strictly increasing identifier assigned by the log.
	Key        uint64                `json:"key"`
	Stage      Stage                 `json:"stage"`
	Parameters EnvironmentParameters `json:"parameters"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// HistoryLog is an append-only sequence of transitions that supports explicit
// deletion. The zero value is ready to use. It is not safe for concurrent use;
// the owning controller serialises access.
type HistoryLog struct {
	entries []HistoryEntry
	nextKey uint64
}

// RestoreHistoryLog rebuilds a log from persisted entries. Keys are kept and
// entries without a key are assigned fresh ones in order. The next key is the
// larger of lastKey and the highest key present.
func RestoreHistoryLog(entries []HistoryEntry, lastKey uint64) *HistoryLog {
	l := &HistoryLog{nextKey: lastKey}
	for _, e := range entries {
		if e.Key >= l.nextKey {
			l.nextKey = e.Key
		}
	}
	for _, e := range entries {
		if e.Key == 0 {
			l.nextKey++
			e.Key = l.nextKey
		}
		l.entries = append(l.entries, e)
	}
	return l
}

// Append stores the entry at the end of the log and returns it with its key.
func (l *HistoryLog) Append(entry HistoryEntry) HistoryEntry {
	l.nextKey++
	entry.Key = l.nextKey
	l.entries = append(l.entries, entry)
	return entry
}

// DeleteByKey removes the entry with the given key.
func (l *HistoryLog) DeleteByKey(key uint64) bool {
	for i, e := range l.entries {
		if e.Key == key {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// DeleteByTimestamp removes every entry whose OccurredAt equals ts by value and
// returns how many were removed. Remaining entries keep their order.
func (l *HistoryLog) DeleteByTimestamp(ts time.Time) int {
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.OccurredAt.Equal(ts) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = HistoryEntry{}
	}
	l.entries = kept
	return removed
}

// List returns a copy of the entries in insertion order.
func (l *HistoryLog) List() []HistoryEntry {
	out := make([]HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// LastKey returns the most recently issued key.
func (l *HistoryLog) LastKey() uint64 { return l.nextKey }

// Len returns the number of entries.
func (l *HistoryLog) Len() int { return len(l.entries) }

// Clear drops all entries. Keys keep increasing so a deleted key is never reissued.
func (l *HistoryLog) Clear() { l.entries = nil }
