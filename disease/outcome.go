package disease

import "fmt"

// Tag is the binary decision of a classifier.
type Tag int

const (
	Negative Tag = iota
	Positive
)

func (t Tag) String() string {
	if t == Positive {
		return "POSITIVE"
	}
	return "NEGATIVE"
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tag) UnmarshalText(text []byte) error {
	switch string(text) {
	case "POSITIVE":
		*t = Positive
	case "NEGATIVE":
		*t = Negative
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Outcome is a decision plus its fixed user-facing message.
type Outcome struct {
	Disease Disease `json:"disease"`
	Tag     Tag     `json:"outcome"`
	Message string  `json:"message"`
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s %s: %s", o.Disease, o.Tag, o.Message)
}

// Interpret maps a raw classifier output to an outcome. Only an output equal
// to 1 is positive; 0 and any other value are negative.
func (d Disease) Interpret(raw int) Outcome {
	tag := Negative
	if raw == 1 {
		tag = Positive
	}
	return Outcome{Disease: d, Tag: tag, Message: d.Message(tag)}
}

// Message returns the fixed message shown for tag.
func (d Disease) Message(tag Tag) string {
	m, ok := messages[d]
	if !ok {
		return ""
	}
	if tag == Positive {
		return m.positive
	}
	return m.negative
}

type messagePair struct {
	positive string
	negative string
}

var messages = map[Disease]messagePair{
	Diabetes: {
		positive: "High Risk: The person is likely to be diabetic. Please consult a healthcare professional.",
		negative: "Low Risk: The person is not likely to be diabetic. Maintain a healthy lifestyle!",
	},
	HeartDisease: {
		positive: "High Risk: The person has a high risk of heart disease. Immediate medical consultation recommended.",
		negative: "Low Risk: The person does not have significant heart disease indicators. Continue healthy habits!",
	},
	Parkinsons: {
		positive: "High Risk: The voice analysis indicates potential Parkinson's disease. Consult a neurologist.",
		negative: "Low Risk: No significant Parkinson's disease indicators detected.",
	},
	LungCancer: {
		positive: "High Risk: Multiple risk factors detected. Schedule a comprehensive medical examination immediately.",
		negative: "Low Risk: No significant lung cancer risk factors detected. Continue healthy lifestyle choices!",
	},
	Thyroid: {
		positive: "Abnormal: Thyroid function test indicates potential hypothyroidism. Consult an endocrinologist.",
		negative: "Normal: Thyroid function appears to be within normal range.",
	},
}
