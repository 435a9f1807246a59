package disease

import (
	"fmt"
	"math"
)

// Kind is the value type of a schema field.
type Kind int

const (
	Integer Kind = iota
	Float
	// Categorical fields carry a small integer code in [0, len(Choices)).
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{Integer, Float, Categorical} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", text)
}

// Field describes one position of a feature vector.
type Field struct {
	Name    string
	Kind    Kind
	Min     float64
	Max     float64
	HasMin  bool
	HasMax  bool
	Default float64
	// Choices is the number of codes of a categorical field.
	Choices int
}

// Check validates v against the field's type and range.
func (f Field) Check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: value must be finite", f.Name)
	}
	if f.Kind != Float && v != math.Trunc(v) {
		return fmt.Errorf("%s: %s value must be a whole number, got %g", f.Name, f.Kind, v)
	}
	if f.HasMin && v < f.Min {
		return fmt.Errorf("%s: %g is below minimum %g", f.Name, v, f.Min)
	}
	if f.HasMax && v > f.Max {
		return fmt.Errorf("%s: %g is above maximum %g", f.Name, v, f.Max)
	}
	return nil
}

// Schema is the ordered feature layout a disease's classifier was fit on.
type Schema struct {
	Disease Disease
	Fields  []Field
}

// Len returns the feature vector length.
func (s Schema) Len() int { return len(s.Fields) }

// Names returns the field names in vector order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Index returns the vector position of the named field.
func (s Schema) Index(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Defaults returns a vector filled with every field's default value.
func (s Schema) Defaults() []float64 {
	out := make([]float64, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Default
	}
	return out
}

// Vector orders named values by the schema. Fields that are not named take
// their default value; unknown names are rejected.
func (s Schema) Vector(values map[string]float64) ([]float64, error) {
	out := s.Defaults()
	for name, v := range values {
		idx, ok := s.Index(name)
		if !ok {
			return nil, fmt.Errorf("%s has no field %q", s.Disease, name)
		}
		out[idx] = v
	}
	return out, nil
}

// Validate checks the vector length and every value against its field.
func (s Schema) Validate(features []float64) error {
	if len(features) != len(s.Fields) {
		return fmt.Errorf("%s expects %d features, got %d", s.Disease, len(s.Fields), len(features))
	}
	for i, f := range s.Fields {
		if err := f.Check(features[i]); err != nil {
			return err
		}
	}
	return nil
}

// Schema returns the feature schema of d. An invalid disease yields an empty
// schema.
func (d Disease) Schema() Schema {
	switch d {
	case Diabetes:
		return diabetesSchema
	case HeartDisease:
		return heartDiseaseSchema
	case Parkinsons:
		return parkinsonsSchema
	case LungCancer:
		return lungCancerSchema
	case Thyroid:
		return thyroidSchema
	}
	return Schema{Disease: d}
}

func intField(name string, min, max, def float64) Field {
	return Field{Name: name, Kind: Integer, Min: min, Max: max, HasMin: true, HasMax: true, Default: def}
}

func floatField(name string, min, max, def float64) Field {
	return Field{Name: name, Kind: Float, Min: min, Max: max, HasMin: true, HasMax: true, Default: def}
}

func nonNegative(name string, def float64) Field {
	return Field{Name: name, Kind: Float, HasMin: true, Default: def}
}

func unbounded(name string, def float64) Field {
	return Field{Name: name, Kind: Float, Default: def}
}

func category(name string, choices int, def float64) Field {
	return Field{
		Name: name, Kind: Categorical,
		Min: 0, Max: float64(choices - 1), HasMin: true, HasMax: true,
		Default: def, Choices: choices,
	}
}

func yesNo(name string) Field { return category(name, 2, 0) }

var diabetesSchema = Schema{
	Disease: Diabetes,
	Fields: []Field{
		intField("pregnancies", 0, 20, 0),
		intField("glucose", 0, 300, 100),
		intField("blood_pressure", 0, 200, 70),
		intField("skin_thickness", 0, 100, 20),
		intField("insulin", 0, 900, 80),
		floatField("bmi", 0, 70, 25.0),
		floatField("diabetes_pedigree_function", 0, 3, 0.5),
		intField("age", 1, 120, 25),
	},
}

var heartDiseaseSchema = Schema{
	Disease: HeartDisease,
	Fields: []Field{
		intField("age", 1, 120, 50),
		category("sex", 2, 0),
		category("chest_pain_type", 4, 0),
		intField("resting_bp", 0, 300, 120),
		intField("cholesterol", 0, 600, 200),
		yesNo("fasting_blood_sugar"),
		category("resting_ecg", 3, 0),
		intField("max_heart_rate", 0, 250, 150),
		yesNo("exercise_angina"),
		floatField("st_depression", 0, 10, 1.0),
		category("st_slope", 3, 0),
		category("num_major_vessels", 4, 0),
		category("thalassemia", 3, 0),
	},
}

var parkinsonsSchema = Schema{
	Disease: Parkinsons,
	Fields: []Field{
		nonNegative("fo", 150.0),
		nonNegative("fhi", 200.0),
		nonNegative("flo", 100.0),
		nonNegative("jitter_pct", 0.005),
		nonNegative("jitter_abs", 0.00003),
		nonNegative("rap", 0.003),
		nonNegative("ppq", 0.003),
		nonNegative("ddp", 0.009),
		nonNegative("shimmer", 0.03),
		nonNegative("shimmer_db", 0.3),
		nonNegative("apq3", 0.015),
		nonNegative("apq5", 0.02),
		nonNegative("apq", 0.02),
		nonNegative("dda", 0.045),
		nonNegative("nhr", 0.02),
		nonNegative("hnr", 22.0),
		nonNegative("rpde", 0.5),
		nonNegative("dfa", 0.7),
		unbounded("spread1", -5.0),
		unbounded("spread2", 0.2),
		nonNegative("d2", 2.5),
		nonNegative("ppe", 0.2),
	},
}

var lungCancerSchema = Schema{
	Disease: LungCancer,
	Fields: []Field{
		category("gender", 2, 0),
		intField("age", 1, 120, 50),
		yesNo("smoking"),
		yesNo("yellow_fingers"),
		yesNo("anxiety"),
		yesNo("peer_pressure"),
		yesNo("chronic_disease"),
		yesNo("fatigue"),
		yesNo("allergy"),
		yesNo("wheezing"),
		yesNo("alcohol_consuming"),
		yesNo("coughing"),
		yesNo("shortness_of_breath"),
		yesNo("swallowing_difficulty"),
		yesNo("chest_pain"),
	},
}

var thyroidSchema = Schema{
	Disease: Thyroid,
	Fields: []Field{
		intField("age", 1, 120, 40),
		category("sex", 2, 0),
		yesNo("on_thyroxine"),
		nonNegative("tsh", 2.0),
		yesNo("t3_measured"),
		nonNegative("t3", 1.5),
		nonNegative("tt4", 100.0),
	},
}
