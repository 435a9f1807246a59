// Package disease defines the closed set of supported diseases together with
// the ordered feature schema and fixed outcome messages of each one.
package disease

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownDisease is returned when a name or value is not one of the five
// supported diseases.
var ErrUnknownDisease = errors.New("unknown disease")

// Disease identifies one of the pre-trained classifiers. The zero value is
// not a valid disease.
type Disease int

const (
	Diabetes Disease = iota + 1
	HeartDisease
	Parkinsons
	LungCancer
	Thyroid
)

var names = map[Disease]string{
	Diabetes:     "diabetes",
	HeartDisease: "heart_disease",
	Parkinsons:   "parkinsons",
	LungCancer:   "lung_cancer",
	Thyroid:      "thyroid",
}

// All returns the supported diseases in page order.
func All() []Disease {
	return []Disease{Diabetes, HeartDisease, Parkinsons, LungCancer, Thyroid}
}

// Valid reports whether d is one of the supported diseases.
func (d Disease) Valid() bool {
	_, ok := names[d]
	return ok
}

func (d Disease) String() string {
	if name, ok := names[d]; ok {
		return name
	}
	return fmt.Sprintf("disease(%d)", int(d))
}

// Title returns a display name such as "Heart Disease".
func (d Disease) Title() string {
	if !d.Valid() {
		return d.String()
	}
	return cases.Title(language.English).String(strings.ReplaceAll(d.String(), "_", " "))
}

// Parse resolves a disease identifier. Matching ignores case and accepts
// '-' in place of '_'.
func Parse(s string) (Disease, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for d, name := range names {
		if name == key {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDisease, s)
}

func (d Disease) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDisease, int(d))
	}
	return []byte(d.String()), nil
}

func (d *Disease) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
