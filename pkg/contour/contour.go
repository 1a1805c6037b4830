// Package contour defines the work contour shapes used to spread a remaining
// quantity over future periods, and generates their normalized weights.
package contour

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies one of the closed set of contour shapes.
type Type int

// The contour shapes. Flat is the zero value.
const (
	Flat Type = iota
	FrontLoaded
	BackLoaded
	Bell
	Turtle
	DoublePeak
	EarlyPeak
	LatePeak
	SCurve
	RampUp
	RampDown

	numTypes
)

var names = [numTypes]string{
	Flat:        "flat",
	FrontLoaded: "front-loaded",
	BackLoaded:  "back-loaded",
	Bell:        "bell",
	Turtle:      "turtle",
	DoublePeak:  "double-peak",
	EarlyPeak:   "early-peak",
	LatePeak:    "late-peak",
	SCurve:      "s-curve",
	RampUp:      "ramp-up",
	RampDown:    "ramp-down",
}

// All returns every contour in declaration order.
func All() []Type {
	all := make([]Type, 0, numTypes)
	for t := Flat; t < numTypes; t++ {
		all = append(all, t)
	}
	return all
}

// Valid reports whether t is one of the declared shapes.
func (t Type) Valid() bool {
	return t >= Flat && t < numTypes
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("contour(%d)", int(t))
	}
	return names[t]
}

// Parse resolves a contour identifier. Matching ignores case and accepts
// underscores or spaces in place of hyphens.
func Parse(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "-", " ", "-").Replace(key)
	for t := Flat; t < numTypes; t++ {
		if names[t] == key {
			return t, nil
		}
	}
	return Flat, fmt.Errorf("unknown contour %q", s)
}

// MarshalText encodes the contour as its identifier.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid contour %d", int(t))
	}
	return []byte(names[t]), nil
}

// UnmarshalText decodes a contour identifier.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Weights returns n non-negative weights for the contour that sum to n, so
// that base*weight[i] over all i reconstructs n*base exactly. n below 1
// yields nil.
func Weights(n int, t Type) []float64 {
	if n < 1 {
		return nil
	}

	shape := weightFunc(t)
	raw := make([]float64, n)
	sum := 0.0
	for i := range raw {
		p := 0.5
		if n > 1 {
			p = float64(i) / float64(n-1)
		}
		raw[i] = shape(p)
		sum += raw[i]
	}

	weights := make([]float64, n)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	for i := range raw {
		weights[i] = raw[i] / sum * float64(n)
	}
	return weights
}

func gauss(p, center, width float64) float64 {
	d := (p - center) / width
	return math.Exp(-0.5 * d * d)
}

// weightFunc maps each shape to its raw weight over normalized position p in [0,1].
// All shapes are strictly positive on [0,1].
func weightFunc(t Type) func(p float64) float64 {
	switch t {
	case Flat:
		return func(float64) float64 { return 1 }
	case FrontLoaded:
		return func(p float64) float64 { return math.Exp(-2 * p) }
	case BackLoaded:
		return func(p float64) float64 { return math.Exp(-2 * (1 - p)) }
	case Bell:
		return func(p float64) float64 { return gauss(p, 0.5, 0.2) }
	case Turtle:
		return func(p float64) float64 { return 0.6 + 0.4*gauss(p, 0.5, 0.25) }
	case DoublePeak:
		return func(p float64) float64 { return gauss(p, 0.25, 0.12) + gauss(p, 0.75, 0.12) }
	case EarlyPeak:
		return func(p float64) float64 { return gauss(p, 0.3, 0.2) }
	case LatePeak:
		return func(p float64) float64 { return gauss(p, 0.7, 0.2) }
	case SCurve:
		// Rate of an S-shaped cumulative curve: bell with wider tails.
		return func(p float64) float64 { return 0.1 + gauss(p, 0.5, 0.28) }
	case RampUp:
		return func(p float64) float64 { return 0.1 + 1.8*p }
	case RampDown:
		return func(p float64) float64 { return 1.9 - 1.8*p }
	}
	return func(float64) float64 { return 1 }
}
