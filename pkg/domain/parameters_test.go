package domain

import (
	"errors"
	"math"
	"testing"
)

func TestSetClampsIntoGlobalRange(t *testing.T) {
	cases := []struct {
		field   Field
		value   float64
		want    float64
		clamped bool
	}{
		{FieldTemperature, 80, 50, true},
		{FieldTemperature, -3, 0, true},
		{FieldHumidity, 55.5, 55.5, false},
		{FieldNutrition, 101, 100, true},
		{FieldPH, 14, 14, false},
		{FieldPH, 15, 14, true},
	}
	for _, tc := range cases {
		p := DefaultParameters()
		got, clamped, err := p.Set(tc.field, tc.value)
		if err != nil {
			t.Fatalf("set %s=%v: %v", tc.field, tc.value, err)
		}
		if got != tc.want || clamped != tc.clamped {
			t.Fatalf("set %s=%v: got (%v,%v) want (%v,%v)", tc.field, tc.value, got, clamped, tc.want, tc.clamped)
		}
		stored, _ := p.Get(tc.field)
		if stored != tc.want {
			t.Fatalf("stored %s=%v, want %v", tc.field, stored, tc.want)
		}
		if !GlobalRanges[tc.field].Contains(stored) {
			t.Fatalf("stored value escaped global range")
		}
	}
}

func TestSetRejectsUnknownFieldAndNaN(t *testing.T) {
	p := DefaultParameters()
	if _, _, err := p.Set("salinity", 3); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, _, err := p.Set(FieldHumidity, math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if p != DefaultParameters() {
		t.Fatalf("rejected set must not mutate: %+v", p)
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("pH")
	if err != nil || f != FieldPH {
		t.Fatalf("parse pH: %v %v", f, err)
	}
	if _, err := ParseField("light"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestWithinBoundariesAreInclusive(t *testing.T) {
	reqs := DefaultRequirements()
	for _, stage := range Stages() {
		req := reqs[stage]
		for _, f := range Fields() {
			rng := req[f]
			for _, v := range []float64{rng.Min, rng.Max, (rng.Min + rng.Max) / 2} {
				p := midpoint(req)
				if _, _, err := p.Set(f, v); err != nil {
					t.Fatalf("set: %v", err)
				}
				if !reqs.Allows(stage, p) {
					t.Fatalf("%s: %s=%v should satisfy %s", stage, f, v, rng)
				}
			}
		}
	}
}

func TestWithinRejectsOutsideValue(t *testing.T) {
	reqs := DefaultRequirements()
	p := midpoint(reqs[StageFruiting])
	p.Humidity = reqs[StageFruiting][FieldHumidity].Min - 0.5
	if reqs.Allows(StageFruiting, p) {
		t.Fatalf("humidity below range must fail gating")
	}
	if reqs.Allows("bogus", DefaultParameters()) {
		t.Fatalf("unknown stage must never be allowed")
	}
}

func TestDefaultParametersSatisfyEveryStage(t *testing.T) {
	reqs := DefaultRequirements()
	for _, stage := range Stages() {
		if !reqs.Allows(stage, DefaultParameters()) {
			t.Fatalf("defaults should satisfy %s", stage)
		}
	}
	if err := reqs.Validate(); err != nil {
		t.Fatalf("default requirements invalid: %v", err)
	}
}

func TestRequirementsMergeAndValidate(t *testing.T) {
	base := DefaultRequirements()
	merged := base.Merge(StageRequirements{StageFruiting: {FieldTemperature: {Min: 10, Max: 12}}})
	if merged[StageFruiting][FieldTemperature] != (Range{Min: 10, Max: 12}) {
		t.Fatalf("override not applied: %v", merged[StageFruiting][FieldTemperature])
	}
	if merged[StageFruiting][FieldHumidity] != base[StageFruiting][FieldHumidity] {
		t.Fatalf("unrelated field changed")
	}
	if base[StageFruiting][FieldTemperature] == merged[StageFruiting][FieldTemperature] {
		t.Fatalf("merge must not mutate the receiver")
	}
	bad := []StageRequirements{
		{"bogus": {FieldPH: {Min: 1, Max: 2}}},
		{StageHyphae: {"light": {Min: 1, Max: 2}}},
		{StageHyphae: {FieldPH: {Min: 3, Max: 2}}},
		{StageHyphae: {FieldPH: {Min: 1, Max: 20}}},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestNormalizeRepairsOutOfRangeValues(t *testing.T) {
	p := EnvironmentParameters{Temperature: 99, Humidity: -1, Nutrition: math.NaN(), PH: 7}
	got := p.Normalize()
	want := EnvironmentParameters{Temperature: 50, Humidity: 0, Nutrition: DefaultParameters().Nutrition, PH: 7}
	if got != want {
		t.Fatalf("normalize: got %+v want %+v", got, want)
	}
}

func midpoint(req StageRequirement) EnvironmentParameters {
	var p EnvironmentParameters
	for _, f := range Fields() {
		r := req[f]
		_, _, _ = p.Set(f, (r.Min+r.Max)/2)
	}
	return p
}
