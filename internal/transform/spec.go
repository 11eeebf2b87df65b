package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/autoprep/internal/model"
)

// ParamKind is the declared type of a transformer parameter.
type ParamKind string

// Parameter kind constants.
const (
	ParamString ParamKind = "string"
	ParamInt    ParamKind = "int"
	ParamFloat  ParamKind = "float"
	ParamBool   ParamKind = "bool"
)

// ParamSpec describes one parameter of a transformer.
type ParamSpec struct {
	Name     string    `json:"name"`
	Kind     ParamKind `json:"kind"`
	Required bool      `json:"required,omitempty"`
	Default  any       `json:"default,omitempty"`
	Enum     []string  `json:"enum,omitempty"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
}

// Spec describes a transformer without executing it: its name, the column
// types it applies to, and its parameter schema.
type Spec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Types       []model.ColumnType `json:"types"`
	Params      []ParamSpec        `json:"params,omitempty"`
}

// AppliesTo reports whether the spec covers the given column type.
func (s Spec) AppliesTo(t model.ColumnType) bool {
	for _, st := range s.Types {
		if st == t {
			return true
		}
	}
	return false
}

// Params is a resolved parameter map: defaults filled in, numeric kinds
// normalized. Getters assume validation already ran.
type Params map[string]any

// Str returns the named string parameter.
func (p Params) Str(name string) string {
	v, _ := p[name].(string)
	return v
}

// Int returns the named int parameter.
func (p Params) Int(name string) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the named float parameter.
func (p Params) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns the named bool parameter.
func (p Params) Bool(name string) bool {
	v, _ := p[name].(bool)
	return v
}

// ResolveParams validates raw parameters against the spec and returns the
// resolved map. Unknown names, missing required parameters, kind mismatches,
// enum violations, and out-of-range values all fail with
// ErrInvalidParameter. JSON-decoded numbers arrive as float64; integral
// float64 values satisfy int parameters.
func (s Spec) ResolveParams(raw map[string]any) (Params, error) {
	byName := make(map[string]ParamSpec, len(s.Params))
	for _, ps := range s.Params {
		byName[ps.Name] = ps
	}

	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q is not a parameter of %s", ErrInvalidParameter, name, s.Name)
		}
	}

	resolved := make(Params, len(s.Params))
	for _, ps := range s.Params {
		value, present := raw[ps.Name]
		if !present {
			if ps.Required {
				return nil, fmt.Errorf("%w: %s requires %q", ErrInvalidParameter, s.Name, ps.Name)
			}
			if ps.Default != nil {
				resolved[ps.Name] = ps.Default
			}
			continue
		}

		coerced, err := coerceParam(ps, value)
		if err != nil {
			return nil, err
		}
		resolved[ps.Name] = coerced
	}
	return resolved, nil
}

func coerceParam(ps ParamSpec, value any) (any, error) {
	switch ps.Kind {
	case ParamString:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidParameter, ps.Name, value)
		}
		if len(ps.Enum) > 0 && !containsString(ps.Enum, str) {
			return nil, fmt.Errorf("%w: %q must be one of %s, got %q",
				ErrInvalidParameter, ps.Name, strings.Join(ps.Enum, "|"), str)
		}
		return str, nil

	case ParamInt:
		var n int
		switch v := value.(type) {
		case int:
			n = v
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%w: %q must be an integer, got %v", ErrInvalidParameter, ps.Name, v)
			}
			n = int(v)
		default:
			return nil, fmt.Errorf("%w: %q must be an integer, got %T", ErrInvalidParameter, ps.Name, value)
		}
		if err := checkRange(ps, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case ParamFloat:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		default:
			return nil, fmt.Errorf("%w: %q must be a number, got %T", ErrInvalidParameter, ps.Name, value)
		}
		if err := checkRange(ps, f); err != nil {
			return nil, err
		}
		return f, nil

	case ParamBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %q must be a boolean, got %T", ErrInvalidParameter, ps.Name, value)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidParameter, ps.Name, ps.Kind)
}

func checkRange(ps ParamSpec, v float64) error {
	if ps.Min != nil && v < *ps.Min {
		return fmt.Errorf("%w: %q must be >= %v, got %v", ErrInvalidParameter, ps.Name, *ps.Min, v)
	}
	if ps.Max != nil && v > *ps.Max {
		return fmt.Errorf("%w: %q must be <= %v, got %v", ErrInvalidParameter, ps.Name, *ps.Max, v)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
