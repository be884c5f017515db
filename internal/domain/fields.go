package domain

import (
	"fmt"
	"math"
)

// Absent is the value stored for a field the model configuration does not produce,
// e.g. the vertical velocity of a 2-D run.
var Absent = math.NaN()

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v float64) bool {
	return math.IsNaN(v)
}

// Variable identifies a particle attribute sampled from the model fields.
type Variable int

const (
	VarU Variable = iota
	VarV
	VarW
	VarTemp
	VarSal
)

// String returns the particle attribute name (the trajectory column name).
func (v Variable) String() string {
	switch v {
	case VarU:
		return "u"
	case VarV:
		return "v"
	case VarW:
		return "w"
	case VarTemp:
		return "temp"
	case VarSal:
		return "sal"
	default:
		return fmt.Sprintf("Variable(%d)", int(v))
	}
}

// DefaultSourceNames maps each variable to its HYCOM data variable name.
var DefaultSourceNames = map[Variable]string{
	VarU:    "u",
	VarV:    "v",
	VarW:    "w_velocity",
	VarTemp: "temperature",
	VarSal:  "salinity",
}

// VarBinding pairs a source data variable with the particle attribute it fills.
type VarBinding struct {
	Source string
	Dest   Variable
}

// Schema returns the ordered variable bindings for a model of the given dimensionality.
// Names missing from source fall back to DefaultSourceNames.
func Schema(dims int, source map[Variable]string) ([]VarBinding, error) {
	var vars []Variable
	switch dims {
	case 2:
		vars = []Variable{VarU, VarV, VarTemp, VarSal}
	case 3:
		vars = []Variable{VarU, VarV, VarW, VarTemp, VarSal}
	default:
		return nil, fmt.Errorf("%w: dims must be 2 or 3, got %d", ErrConfig, dims)
	}

	bindings := make([]VarBinding, 0, len(vars))
	for _, v := range vars {
		name := source[v]
		if name == "" {
			name = DefaultSourceNames[v]
		}
		bindings = append(bindings, VarBinding{Source: name, Dest: v})
	}
	return bindings, nil
}

// Variables returns the destination variables of a schema in order.
func Variables(schema []VarBinding) []Variable {
	vars := make([]Variable, len(schema))
	for i, b := range schema {
		vars[i] = b.Dest
	}
	return vars
}

// Fields holds the sampled scalar values at a particle's position.
type Fields struct {
	U    float64
	V    float64
	W    float64
	Temp float64
	Sal  float64
}

// NewFields returns a Fields value with every component Absent.
func NewFields() Fields {
	return Fields{U: Absent, V: Absent, W: Absent, Temp: Absent, Sal: Absent}
}

// HasW reports whether a vertical velocity was sampled.
func (f Fields) HasW() bool {
	return !IsAbsent(f.W)
}

// Get returns the value of variable v.
func (f Fields) Get(v Variable) float64 {
	switch v {
	case VarU:
		return f.U
	case VarV:
		return f.V
	case VarW:
		return f.W
	case VarTemp:
		return f.Temp
	case VarSal:
		return f.Sal
	default:
		return Absent
	}
}

// Set stores value for variable v.
func (f *Fields) Set(v Variable, value float64) {
	switch v {
	case VarU:
		f.U = value
	case VarV:
		f.V = value
	case VarW:
		f.W = value
	case VarTemp:
		f.Temp = value
	case VarSal:
		f.Sal = value
	}
}
