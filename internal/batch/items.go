package batch

import (
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/tohu/internal/record"
	"github.com/roach88/tohu/internal/seed"
)

// Items is an immutable, ordered list of generated values, usually records.
type Items struct {
	values []any
}

// New returns a batch holding a copy of values.
func New(values []any) *Items {
	return &Items{values: append([]any(nil), values...)}
}

// Len returns the number of items.
func (it *Items) Len() int { return len(it.values) }

// At returns the i-th item.
func (it *Items) At(i int) any { return it.values[i] }

// Values returns a copy of the items.
func (it *Items) Values() []any { return append([]any(nil), it.values...) }

// All iterates over index/item pairs.
func (it *Items) All() iter.Seq2[int, any] {
	return slices.All(it.values)
}

// Equal compares with another *Items or a plain []any, item by item.
func (it *Items) Equal(other any) bool {
	switch o := other.(type) {
	case *Items:
		return o != nil && record.ValuesEqual(it.values, o.values)
	case []any:
		return record.ValuesEqual(it.values, o)
	}
	return false
}

// Records returns the items as records. ok is false if any item is not a
// record.
func (it *Items) Records() (recs []*record.Record, ok bool) {
	recs = make([]*record.Record, len(it.values))
	for i, v := range it.values {
		r, isRec := v.(*record.Record)
		if !isRec {
			return nil, false
		}
		recs[i] = r
	}
	return recs, true
}

// FieldNames returns the field names of the first record, or nil when the
// batch is empty or does not hold records.
func (it *Items) FieldNames() []string {
	if len(it.values) == 0 {
		return nil
	}
	if r, ok := it.values[0].(*record.Record); ok {
		return r.FieldNames()
	}
	return nil
}

// Fingerprint returns a content hash of the batch.
func (it *Items) Fingerprint() (string, error) {
	return record.Fingerprint(it.values)
}

func newRand(s uint64) *seed.Rand {
	st := seed.New()
	st.Reset(s)
	return seed.NewRand(st.Next())
}

// Sample returns n distinct items chosen uniformly with the given seed,
// keeping their original order.
func (it *Items) Sample(n int, s uint64) (*Items, error) {
	if n < 0 || n > len(it.values) {
		return nil, fmt.Errorf("sample size %d outside [0, %d]", n, len(it.values))
	}
	rng := newRand(s)
	idx := rng.Perm(len(it.values))[:n]
	slices.Sort(idx)
	out := make([]any, n)
	for i, j := range idx {
		out[i] = it.values[j]
	}
	return &Items{values: out}, nil
}

// SampleProb keeps each item independently with probability p.
func (it *Items) SampleProb(p float64, s uint64) (*Items, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("probability must be in [0, 1], got %v", p)
	}
	rng := newRand(s)
	var out []any
	for _, v := range it.values {
		if rng.Float64() < p {
			out = append(out, v)
		}
	}
	return &Items{values: out}, nil
}
