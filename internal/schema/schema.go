// Package schema holds the static registry of profiling task families: which
// parameters each family declares, their defaults and domains, and which
// algorithm variants a family permits. A Registry is built once and never
// mutated, so it is safe to share across goroutines.
package schema

import (
	"fmt"
	"slices"
	"sort"

	"github.com/dataprof/dataprof/internal/models"
)

// ParamType is the declared type of a family parameter.
type ParamType string

const (
	TypeBool   ParamType = "bool"
	TypeInt    ParamType = "int"
	TypeFloat  ParamType = "float"
	TypeString ParamType = "string"
)

// Domain constrains the values a parameter accepts. A nil Domain accepts
// anything of the declared type.
type Domain interface {
	Contains(v any) bool
	String() string
}

type unitInterval struct{}

func (unitInterval) Contains(v any) bool {
	f, ok := v.(float64)
	return ok && f >= 0 && f <= 1
}
func (unitInterval) String() string { return "[0, 1]" }

// UnitInterval accepts floats in [0, 1], e.g. probabilities and error rates.
func UnitInterval() Domain { return unitInterval{} }

type nonNegativeInt struct{}

func (nonNegativeInt) Contains(v any) bool {
	n, ok := v.(int)
	return ok && n >= 0
}
func (nonNegativeInt) String() string { return ">= 0" }

// NonNegativeInt accepts integers >= 0, used for limits and counts.
func NonNegativeInt() Domain { return nonNegativeInt{} }

type positiveInt struct{}

func (positiveInt) Contains(v any) bool {
	n, ok := v.(int)
	return ok && n > 0
}
func (positiveInt) String() string { return "> 0" }

// PositiveInt accepts integers > 0.
func PositiveInt() Domain { return positiveInt{} }

type nonNegativeFloat struct{}

func (nonNegativeFloat) Contains(v any) bool {
	f, ok := v.(float64)
	return ok && f >= 0
}
func (nonNegativeFloat) String() string { return ">= 0.0" }

// NonNegativeFloat accepts floats >= 0.
func NonNegativeFloat() Domain { return nonNegativeFloat{} }

type enum struct{ values []string }

func (e enum) Contains(v any) bool {
	s, ok := v.(string)
	return ok && slices.Contains(e.values, s)
}
func (e enum) String() string { return fmt.Sprintf("one of %v", e.values) }

// OneOf accepts exactly the given string values.
func OneOf(values ...string) Domain { return enum{values: values} }

// ParamSpec declares one named parameter of a family schema. A nil Default
// marks the parameter optional: it appears in the merged mapping only when the
// profile overrides it.
type ParamSpec struct {
	Type    ParamType
	Default any
	Domain  Domain
}

// FamilySchema is the declared shape of one task family. Algorithms lists the
// permitted variants; DefaultAlgorithm is used when a task entry names the
// family without an override.
type FamilySchema struct {
	Family           string
	Params           map[string]ParamSpec
	Algorithms       []string
	DefaultAlgorithm string
}

// Permits reports whether the schema declares algo as a permitted variant.
func (s *FamilySchema) Permits(algo string) bool {
	return slices.Contains(s.Algorithms, algo)
}

// Registry is the immutable table of family schemas plus the standalone
// algorithm slot for family-less entries such as the column-ordering task.
type Registry struct {
	families   map[string]FamilySchema
	standalone FamilySchema
}

// SchemaFor returns the schema for family, or an UnknownFamily error.
func (r *Registry) SchemaFor(family string) (*FamilySchema, error) {
	s, ok := r.families[family]
	if !ok {
		return nil, &models.ValidationError{
			Kind:      models.ErrUnknownFamily,
			TaskIndex: -1,
			Family:    family,
			Detail:    fmt.Sprintf("family %q is not registered", family),
		}
	}
	return &s, nil
}

// Standalone returns the schema of the family-less algorithm slot.
func (r *Registry) Standalone() *FamilySchema {
	s := r.standalone
	return &s
}

// Families returns the registered family ids, sorted.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.families))
	for f := range r.families {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// FamilyForAlgorithm resolves the owning family of a bare algorithm id, or ""
// when the algorithm belongs to the standalone slot. Ambiguous algorithms
// (pyro, tane, spider, pyroucc serve both an exact and an approximate family)
// are disambiguated by the presence of a non-zero "error" parameter, matching
// the engine's convention.
func (r *Registry) FamilyForAlgorithm(algo string, params map[string]any) (string, bool) {
	if r.standalone.Permits(algo) {
		return "", true
	}

	hasError := false
	if v, ok := params["error"]; ok {
		switch n := v.(type) {
		case int:
			hasError = n != 0
		case float64:
			hasError = n != 0
		}
	}

	switch algo {
	case "pyro", "tane":
		if hasError {
			return "afd", true
		}
		return "fd", true
	case "spider":
		if hasError {
			return "aind", true
		}
		return "ind", true
	case "pyroucc":
		if hasError {
			return "aucc", true
		}
		return "ucc", true
	}

	// Unambiguous algorithms: scan default-first so e.g. hpivalid resolves
	// to ucc rather than nothing.
	for _, f := range r.Families() {
		s := r.families[f]
		if s.DefaultAlgorithm == algo {
			return f, true
		}
	}
	for _, f := range r.Families() {
		s := r.families[f]
		if s.Permits(algo) {
			return f, true
		}
	}
	return "", false
}

// MergeDefaults merges the profile's parameter overrides over the schema's
// declared defaults. Overrides win. Supplying a key the schema does not
// declare fails with UnknownParameter; a value outside its declared type or
// domain fails with InvalidParameterValue. Merging is side-effect-free and
// idempotent; a schema with no declared parameters merges to an empty mapping.
func MergeDefaults(s *FamilySchema, overrides map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(s.Params))
	for name, spec := range s.Params {
		if spec.Default != nil {
			merged[name] = spec.Default
		}
	}

	for name, raw := range overrides {
		spec, ok := s.Params[name]
		if !ok {
			return nil, &models.ValidationError{
				Kind:      models.ErrUnknownParameter,
				TaskIndex: -1,
				Family:    s.Family,
				Param:     name,
				Detail:    fmt.Sprintf("parameter %q is not declared by family %q", name, s.Family),
			}
		}

		v, ok := coerce(spec.Type, raw)
		if !ok {
			return nil, &models.ValidationError{
				Kind:      models.ErrInvalidParameterValue,
				TaskIndex: -1,
				Family:    s.Family,
				Param:     name,
				Detail:    fmt.Sprintf("value %v is not a valid %s", raw, spec.Type),
			}
		}

		if spec.Domain != nil && !spec.Domain.Contains(v) {
			return nil, &models.ValidationError{
				Kind:      models.ErrInvalidParameterValue,
				TaskIndex: -1,
				Family:    s.Family,
				Param:     name,
				Detail:    fmt.Sprintf("value %v is outside domain %s", v, spec.Domain),
			}
		}

		merged[name] = v
	}

	return merged, nil
}

// coerce normalizes a raw YAML value to the declared parameter type. Integers
// are accepted where floats are declared; fractional floats are rejected where
// integers are declared.
func coerce(t ParamType, raw any) (any, bool) {
	switch t {
	case TypeBool:
		b, ok := raw.(bool)
		return b, ok
	case TypeInt:
		switch n := raw.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n == float64(int(n)) {
				return int(n), true
			}
		}
		return nil, false
	case TypeFloat:
		switch n := raw.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false
	case TypeString:
		s, ok := raw.(string)
		return s, ok
	}
	return nil, false
}
