package domain

import "testing"

func TestStageOrderAndNext(t *testing.T) {
	stages := Stages()
	if len(stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(stages))
	}
	for i, s := range stages {
		if s.Index() != i {
			t.Fatalf("stage %s index %d, want %d", s, s.Index(), i)
		}
		if i < len(stages)-1 && s.Next() != stages[i+1] {
			t.Fatalf("next(%s) = %s, want %s", s, s.Next(), stages[i+1])
		}
	}
	if StageMature.Next() != StageMature {
		t.Fatalf("mature must self-loop")
	}
	if !StageMature.Terminal() || StageFruiting.Terminal() {
		t.Fatalf("only mature is terminal")
	}
	stages[0] = "mutated"
	if Stages()[0] != StageSpore {
		t.Fatalf("Stages must return a copy")
	}
}

func TestParseStage(t *testing.T) {
	got, err := ParseStage("  Fruiting ")
	if err != nil || got != StageFruiting {
		t.Fatalf("parse fruiting: %v %v", got, err)
	}
	if _, err := ParseStage("sporangium"); err == nil {
		t.Fatalf("expected unknown stage error")
	}
	if Stage("bogus").Valid() || Stage("bogus").Next() != "bogus" {
		t.Fatalf("unknown stage must be invalid and not advance")
	}
}
