// Package scoring holds the score-vector engine: a registry of named evidence
// fields, sparse vectors resolved against it, and per-question normalization.
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// CountField is registered by every Registry. It weights Mean merges.
const CountField = "COUNT"

// MergeStrategy combines two same-named values when duplicate candidates merge.
type MergeStrategy int

const (
	Sum MergeStrategy = iota
	Mean
	Min
	Max
	Or
)

func (s MergeStrategy) String() string {
	switch s {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	case Or:
		return "or"
	default:
		return fmt.Sprintf("merge(%d)", int(s))
	}
}

// ParseMergeStrategy accepts the lowercase or capitalised strategy name.
func ParseMergeStrategy(raw string) (MergeStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "or":
		return Or, nil
	default:
		return 0, fmt.Errorf("unknown merge strategy %q", raw)
	}
}

// Entry describes one registered field. Entries are immutable once registered.
type Entry struct {
	Name     string
	Default  float64
	Strategy MergeStrategy
}

type schemaSnapshot struct {
	byName  map[string]Entry
	ordered []Entry
}

// Registry is an append-only catalog of score fields.
//
// Writers serialise on a mutex and publish an immutable snapshot, so readers
// never lock.
type Registry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[schemaSnapshot]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.snapshot.Store(&schemaSnapshot{byName: map[string]Entry{}})
	r.Register(CountField, 1, Sum)
	return r
}

// Register inserts the field if absent. The first registration of a name wins.
func (r *Registry) Register(name string, defaultValue float64, strategy MergeStrategy) {
	if _, ok := r.load().byName[name]; ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.load()
	if _, ok := current.byName[name]; ok {
		return
	}

	entry := Entry{Name: name, Default: defaultValue, Strategy: strategy}
	next := &schemaSnapshot{
		byName:  make(map[string]Entry, len(current.byName)+1),
		ordered: make([]Entry, 0, len(current.ordered)+1),
	}
	for k, v := range current.byName {
		next.byName[k] = v
	}
	next.byName[name] = entry
	next.ordered = append(next.ordered, current.ordered...)
	next.ordered = append(next.ordered, entry)
	sort.Slice(next.ordered, func(i, j int) bool {
		return next.ordered[i].Name < next.ordered[j].Name
	})
	r.snapshot.Store(next)
}

// Fields returns the registered names sorted ascending.
func (r *Registry) Fields() []string {
	snap := r.load()
	out := make([]string, len(snap.ordered))
	for i, e := range snap.ordered {
		out[i] = e.Name
	}
	return out
}

// Entries returns the registered entries sorted by name.
func (r *Registry) Entries() []Entry {
	snap := r.load()
	out := make([]Entry, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

func (r *Registry) Entry(name string) (Entry, bool) {
	e, ok := r.load().byName[name]
	return e, ok
}

// Len is the number of registered fields. Since the registry only grows it
// doubles as a version for pinning a feature ordering.
func (r *Registry) Len() int {
	return len(r.load().ordered)
}

// Empty returns a vector with every field at its default.
func (r *Registry) Empty() *Vector {
	return &Vector{registry: r, values: make(map[string]float64)}
}

func (r *Registry) load() *schemaSnapshot {
	return r.snapshot.Load()
}
