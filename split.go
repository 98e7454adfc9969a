package detprep

// Deterministic train/val/test partitioning.

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Split names a dataset partition.
type Split string

// The dataset partitions, in output order.
const (
	Train Split = "train"
	Val   Split = "val"
	Test  Split = "test"
)

// Splits lists all partitions in output order.
var Splits = [...]Split{Train, Val, Test}

// Proportions are the fractions of examples assigned to each split. They need not add up to
// exactly 1; whatever train and val do not take goes to test.
type Proportions struct {
	Train, Val, Test float64
}

// DefaultProportions is the 80/10/10 split.
var DefaultProportions = Proportions{Train: 0.8, Val: 0.1, Test: 0.1}

// ParseProportions parses "train,val,test", e.g. "0.8,0.1,0.1".
func ParseProportions(s string) (Proportions, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Proportions{}, configErrorf(nil, "split %q must have three comma-separated values", s)
	}

	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Proportions{}, configErrorf(err, "invalid value in split %q", s)
		}
		v[i] = f
	}

	p := Proportions{Train: v[0], Val: v[1], Test: v[2]}
	return p, p.Validate()
}

// Validate checks that the proportions are usable for a prefix partition.
func (p Proportions) Validate() error {
	for _, v := range [...]float64{p.Train, p.Val, p.Test} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return configErrorf(nil, "split proportions must be in [0, 1], got %v", p)
		}
	}
	if p.Train+p.Val > 1 {
		return configErrorf(nil, "train and val proportions exceed 1: %v", p)
	}
	return nil
}

func (p Proportions) String() string {
	return fmt.Sprintf("%g,%g,%g", p.Train, p.Val, p.Test)
}

// SplitAssignment holds the indices of the input sequence assigned to each split. The three groups
// are disjoint and together cover every index exactly once.
type SplitAssignment struct {
	Train, Val, Test []int
}

// Indices returns the indices assigned to s.
func (a SplitAssignment) Indices(s Split) []int {
	switch s {
	case Train:
		return a.Train
	case Val:
		return a.Val
	default:
		return a.Test
	}
}

// SplitIndices partitions the indices [0, n). The indices are shuffled with a random source
// seeded by seed and then cut into prefix ranges: the first floor(n*Train) go to train, the next
// floor(n*Val) to val and the rest to test. Identical arguments always give identical results.
func SplitIndices(n int, p Proportions, seed int64) SplitAssignment {
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	nTrain := int(math.Floor(float64(n) * p.Train))
	nVal := int(math.Floor(float64(n) * p.Val))
	if nTrain > n {
		nTrain = n
	}
	if nTrain+nVal > n {
		nVal = n - nTrain
	}

	return SplitAssignment{
		Train: perm[:nTrain:nTrain],
		Val:   perm[nTrain : nTrain+nVal : nTrain+nVal],
		Test:  perm[nTrain+nVal:],
	}
}

// Split partitions data with SplitIndices and returns the examples of each split, keyed by
// split name.
func (data Examples) Split(p Proportions, seed int64) map[Split]Examples {
	assignment := SplitIndices(len(data), p, seed)

	datasets := make(map[Split]Examples, len(Splits))
	for _, s := range Splits {
		indices := assignment.Indices(s)
		datasets[s] = make(Examples, len(indices))
		for i, idx := range indices {
			datasets[s][i] = data[idx]
		}
	}

	return datasets
}
