package scoring

import (
	"errors"
	"math"
)

var ErrEmptyGroup = errors.New("normalize: empty group")

// Scored is anything carrying a score vector, typically an answer candidate.
type Scored interface {
	ScoreVector() *Vector
}

// Normalizer rescales a group of vectors to zero mean and unit population
// standard deviation per field, leaving the protected field untouched.
type Normalizer struct {
	registry  *Registry
	protected string
}

// NewNormalizer builds a normalizer. protected may be empty or unregistered,
// in which case nothing is excluded.
func NewNormalizer(registry *Registry, protected string) *Normalizer {
	return &Normalizer{registry: registry, protected: protected}
}

func (n *Normalizer) Protected() string {
	return n.protected
}

// Normalize mutates vectors in place.
func (n *Normalizer) Normalize(vectors []*Vector) error {
	if len(vectors) == 0 {
		return ErrEmptyGroup
	}

	size := float64(len(vectors))
	for _, e := range n.registry.Entries() {
		if n.protected != "" && e.Name == n.protected {
			continue
		}

		var sum float64
		for _, v := range vectors {
			sum += v.Get(e.Name)
		}
		mean := sum / size

		var variance float64
		for _, v := range vectors {
			diff := v.Get(e.Name) - mean
			variance += diff * diff
		}
		stdev := math.Sqrt(variance / size)
		if stdev == 0 {
			continue
		}

		for _, v := range vectors {
			v.Set(e.Name, (v.Get(e.Name)-mean)/stdev)
		}
	}
	return nil
}

// NormalizeGroup normalizes the vectors carried by group and returns group.
func NormalizeGroup[S Scored](n *Normalizer, group []S) ([]S, error) {
	vectors := make([]*Vector, len(group))
	for i, item := range group {
		vectors[i] = item.ScoreVector()
	}
	if err := n.Normalize(vectors); err != nil {
		return group, err
	}
	return group, nil
}
