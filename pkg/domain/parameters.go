package domain

import (
	"fmt"
	"math"
	"strings"
)

// Field names one environmental knob.
type Field string

// Environmental fields driving stage gating.
const (
	FieldTemperature Field = "temperature"
	FieldHumidity    Field = "humidity"
	FieldNutrition   Field = "nutrition"
	FieldPH          Field = "ph"
)

var fieldOrder = []Field{FieldTemperature, FieldHumidity, FieldNutrition, FieldPH}

// Fields returns every environmental field in display order.
func Fields() []Field {
	out := make([]Field, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// ParseField resolves a field name case-insensitively.
func ParseField(raw string) (Field, error) {
	candidate := Field(strings.ToLower(strings.TrimSpace(raw)))
	for _, f := range fieldOrder {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
}

// Range is a closed numeric interval [Min, Max].
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the closed interval.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Clamp pins v into the interval.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Valid reports whether the interval is well formed.
func (r Range) Valid() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max) && r.Min <= r.Max
}

func (r Range) String() string { return fmt.Sprintf("[%g,%g]", r.Min, r.Max) }

// GlobalRanges bounds every stored parameter value regardless of stage.
var GlobalRanges = map[Field]Range{
	FieldTemperature: {Min: 0, Max: 50},
	FieldHumidity:    {Min: 0, Max: 100},
	FieldNutrition:   {Min: 0, Max: 100},
	FieldPH:          {Min: 0, Max: 14},
}

// EnvironmentParameters holds the current value of every environmental field.
// Values are always within GlobalRanges when mutated through Set.
type EnvironmentParameters struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Nutrition   float64 `json:"nutrition"`
	PH          float64 `json:"ph"`
}

// DefaultParameters returns the starting environment of a new growth cycle.
func DefaultParameters() EnvironmentParameters {
	return EnvironmentParameters{Temperature: 25, Humidity: 70, Nutrition: 50, PH: 7}
}

// Get returns the value of a field.
func (p EnvironmentParameters) Get(field Field) (float64, error) {
	ptr := p.ref(field)
	if ptr == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return *ptr, nil
}

// Set clamps value into the field's global range and stores it. It returns the
// stored value and whether clamping occurred. NaN and unknown fields are
// rejected without mutation.
func (p *EnvironmentParameters) Set(field Field, value float64) (stored float64, clamped bool, err error) {
	ptr := p.ref(field)
	if ptr == nil {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if math.IsNaN(value) {
		return *ptr, false, fmt.Errorf("%w: %s is NaN", ErrInvalidValue, field)
	}
	stored = GlobalRanges[field].Clamp(value)
	*ptr = stored
	return stored, stored != value, nil
}

// Normalize clamps every field into its global range. Used when restoring
// snapshots written by other tools.
func (p EnvironmentParameters) Normalize() EnvironmentParameters {
	out := p
	for _, f := range fieldOrder {
		ptr := out.ref(f)
		if math.IsNaN(*ptr) {
			def, _ := DefaultParameters().Get(f)
			*ptr = def
			continue
		}
		*ptr = GlobalRanges[f].Clamp(*ptr)
	}
	return out
}

func (p *EnvironmentParameters) ref(field Field) *float64 {
	switch field {
	case FieldTemperature:
		return &p.Temperature
	case FieldHumidity:
		return &p.Humidity
	case FieldNutrition:
		return &p.Nutrition
	case FieldPH:
		return &p.PH
	default:
		return nil
	}
}

// Within reports whether every field lies inside the requirement's closed ranges.
func (p EnvironmentParameters) Within(req StageRequirement) bool {
	for _, f := range fieldOrder {
		v, _ := p.Get(f)
		r, ok := req[f]
		if !ok {
			continue
		}
		if !r.Contains(v) {
			return false
		}
	}
	return true
}

// StageRequirement is the per-field sub-range required to enter a stage.
// Fields without an entry are unconstrained.
type StageRequirement map[Field]Range

// StageRequirements maps every stage to its entry requirement.
type StageRequirements map[Stage]StageRequirement

// DefaultRequirements returns the built-in gating table.
func DefaultRequirements() StageRequirements {
	return StageRequirements{
		StageSpore: {
			FieldTemperature: GlobalRanges[FieldTemperature],
			FieldHumidity:    GlobalRanges[FieldHumidity],
			FieldNutrition:   GlobalRanges[FieldNutrition],
			FieldPH:          GlobalRanges[FieldPH],
		},
		StageHyphae: {
			FieldTemperature: {Min: 20, Max: 30},
			FieldHumidity:    {Min: 60, Max: 90},
			FieldNutrition:   {Min: 20, Max: 100},
			FieldPH:          {Min: 5.5, Max: 8},
		},
		StageMycelium: {
			FieldTemperature: {Min: 20, Max: 30},
			FieldHumidity:    {Min: 60, Max: 95},
			FieldNutrition:   {Min: 40, Max: 100},
			FieldPH:          {Min: 6, Max: 8},
		},
		StageFruiting: {
			FieldTemperature: {Min: 18, Max: 28},
			FieldHumidity:    {Min: 65, Max: 100},
			FieldNutrition:   {Min: 40, Max: 100},
			FieldPH:          {Min: 6, Max: 8},
		},
		StageMature: {
			FieldTemperature: {Min: 15, Max: 30},
			FieldHumidity:    {Min: 60, Max: 100},
			FieldNutrition:   {Min: 30, Max: 100},
			FieldPH:          {Min: 5.5, Max: 8.5},
		},
	}
}

// Allows reports whether params satisfy the requirement for entering stage.
// Unknown stages are never allowed.
func (r StageRequirements) Allows(stage Stage, params EnvironmentParameters) bool {
	req, ok := r[stage]
	if !ok {
		return false
	}
	return params.Within(req)
}

// Merge returns a copy of r with the overrides applied field by field.
func (r StageRequirements) Merge(overrides StageRequirements) StageRequirements {
	out := make(StageRequirements, len(r))
	for stage, req := range r {
		cp := make(StageRequirement, len(req))
		for f, rng := range req {
			cp[f] = rng
		}
		out[stage] = cp
	}
	for stage, req := range overrides {
		if out[stage] == nil {
			out[stage] = make(StageRequirement, len(req))
		}
		for f, rng := range req {
			out[stage][f] = rng
		}
	}
	return out
}

// Validate checks that every stage and field is known and that each range is
// well formed and inside the field's global range.
func (r StageRequirements) Validate() error {
	for stage, req := range r {
		if !stage.Valid() {
			return fmt.Errorf("requirements: unknown stage %q", stage)
		}
		for f, rng := range req {
			global, ok := GlobalRanges[f]
			if !ok {
				return fmt.Errorf("requirements: %s: %w: %q", stage, ErrUnknownField, f)
			}
			if !rng.Valid() {
				return fmt.Errorf("requirements: %s.%s: invalid range %s", stage, f, rng)
			}
			if rng.Min < global.Min || rng.Max > global.Max {
				return fmt.Errorf("requirements: %s.%s: range %s exceeds global %s", stage, f, rng, global)
			}
		}
	}
	return nil
}
