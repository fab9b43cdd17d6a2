// Package domain defines the growth simulation model: stages, environment
// parameters, gating requirements, history and the persisted snapshot.
package domain

import (
	"fmt"
	"strings"
)

// Stage represents a discrete phase of the growth cycle.
type Stage string

// Canonical growth stages in cycle order.
const (
	StageSpore    Stage = "spore"
	StageHyphae   Stage = "hyphae"
	StageMycelium Stage = "mycelium"
	StageFruiting Stage = "fruiting"
	// StageMature is terminal; advancing from it is a no-op.
	StageMature Stage = "mature"
)

var stageOrder = []Stage{StageSpore, StageHyphae, StageMycelium, StageFruiting, StageMature}

// Stages returns the canonical stages in cycle order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage resolves a canonical stage name, ignoring case and surrounding space.
func ParseStage(raw string) (Stage, error) {
	candidate := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", fmt.Errorf("unknown stage %q", raw)
}

// Index returns the position of the stage in cycle order, or -1 when unknown.
func (s Stage) Index() int {
	for i, candidate := range stageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the canonical stages.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// Terminal reports whether the stage has no outgoing transition.
func (s Stage) Terminal() bool { return s == StageMature }

// Next returns the successor stage. Mature maps to itself.
func (s Stage) Next() Stage {
	idx := s.Index()
	if idx < 0 || idx == len(stageOrder)-1 {
		return s
	}
	return stageOrder[idx+1]
}

func (s Stage) String() string { return string(s) }
