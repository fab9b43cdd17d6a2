package domain

import (
	"context"
	"time"
)

// Snapshot is the persisted form of a simulation. It never carries transient
// controller state such as timers, the advancing flag or discovery generations.
type Snapshot struct {
	CycleID        string                `json:"cycle_id"`
	CurrentStage   Stage                 `json:"current_stage"`
	Parameters     EnvironmentParameters `json:"parameters"`
	Organism       *DiscoveredOrganism   `json:"discovered_organism,omitempty"`
	History        []HistoryEntry        `json:"history"`
	LastHistoryKey uint64                `json:"last_history_key"`
	SavedAt        time.Time             `json:"saved_at"`
}

// Normalize repairs a loaded snapshot: unknown stages fall back to spore,
// parameters are clamped and history is copied.
func (s Snapshot) Normalize() Snapshot {
	out := s
	if !out.CurrentStage.Valid() {
		out.CurrentStage = StageSpore
	}
	out.Parameters = out.Parameters.Normalize()
	out.Organism = s.Organism.Clone()
	out.History = make([]HistoryEntry, len(s.History))
	copy(out.History, s.History)
	return out
}

// SnapshotStore persists simulation snapshots. Load reports ok=false when no
// snapshot has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}
