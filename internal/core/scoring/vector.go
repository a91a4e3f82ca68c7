package scoring

import "math"

// Vector is a sparse score record. Unset registered fields read as their
// schema default and unregistered names read as 0.
//
// A Vector is not safe for concurrent mutation.
type Vector struct {
	registry *Registry
	values   map[string]float64
}

// Get resolves name against the stored values and the schema.
func (v *Vector) Get(name string) float64 {
	entry, ok := v.registry.Entry(name)
	if !ok {
		return 0
	}
	if val, ok := v.values[name]; ok {
		return val
	}
	return entry.Default
}

// GetEach resolves names in order into a fresh slice.
func (v *Vector) GetEach(names []string) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		out[i] = v.Get(name)
	}
	return out
}

func (v *Vector) Set(name string, value float64) {
	v.values[name] = value
}

// IsSet reports whether name has an explicitly stored value.
func (v *Vector) IsSet(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Len counts explicitly stored entries.
func (v *Vector) Len() int {
	return len(v.values)
}

// AsMap copies the explicitly stored entries.
func (v *Vector) AsMap() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Clone copies stored entries only; defaults are not materialised.
func (v *Vector) Clone() *Vector {
	return &Vector{registry: v.registry, values: v.AsMap()}
}

func (v *Vector) Registry() *Registry {
	return v.registry
}

// Merge combines two vectors field by field using each field's strategy,
// weighting Mean fields by COUNT.
//
// When both counts sum to zero or less the result is a copy of left and right
// is dropped.
func Merge(left, right *Vector) *Vector {
	lc := left.Get(CountField)
	rc := right.Get(CountField)
	if lc+rc <= 0 {
		return left.Clone()
	}

	out := left.registry.Empty()
	for _, e := range left.registry.Entries() {
		lv := left.Get(e.Name)
		rv := right.Get(e.Name)
		switch e.Strategy {
		case Mean:
			out.values[e.Name] = (lc*lv + rc*rv) / (lc + rc)
		case Or:
			if lv+rv > 0 {
				out.values[e.Name] = 1
			} else {
				out.values[e.Name] = 0
			}
		case Min:
			out.values[e.Name] = math.Min(lv, rv)
		case Max:
			out.values[e.Name] = math.Max(lv, rv)
		case Sum:
			out.values[e.Name] = lv + rv
		}
	}
	return out
}
