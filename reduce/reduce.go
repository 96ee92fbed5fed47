// Package reduce turns per-partition partial sums into one dataset-wide
// result. Partitions are evaluated independently and in parallel; the
// partials are then combined in a balanced tree whose depth is a
// caller-specified knob bounding how much intermediate state any one
// combine level holds. The combine is associative and commutative up to
// floating-point rounding, so the result is invariant to the partition
// count and the tree depth at that level of precision.
package reduce

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/sergejau/photon-ml/common"
	"github.com/sergejau/photon-ml/data"
)

// A Partial is one partition's contribution: a scalar sum, an optional
// vector sum, and the total example weight seen. The zero Partial is
// the additive identity, which is what an empty partition contributes.
type Partial struct {
	Value  float64
	Vec    []float64
	Weight float64
}

func (p Partial) finite() bool {
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return false
	}
	for _, v := range p.Vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// add accumulates q into p in place.
func (p *Partial) add(q Partial) {
	p.Value += q.Value
	p.Weight += q.Weight
	if q.Vec == nil {
		return
	}
	if p.Vec == nil {
		p.Vec = make([]float64, len(q.Vec))
	}
	floats.Add(p.Vec, q.Vec)
}

// Partitioned is a labeled-example collection split into disjoint
// subsets. The examples themselves are shared, never copied.
type Partitioned struct {
	dim   int
	n     int
	parts [][]data.LabeledExample
}

// Partition splits examples into p contiguous subsets. Every example's
// feature vector must have dimension dim; a mismatch is reported before
// any computation can run. p below 1 is treated as 1, and p larger than
// the example count leaves the excess partitions empty.
func Partition(examples []data.LabeledExample, dim, p int) (*Partitioned, error) {
	for _, ex := range examples {
		if ex.Features.Len() != dim {
			return nil, common.DimensionMismatch{Expected: dim, Found: ex.Features.Len()}
		}
	}
	if p < 1 {
		p = 1
	}
	parts := make([][]data.LabeledExample, p)
	n := len(examples)
	for i := range parts {
		lo, hi := i*n/p, (i+1)*n/p
		parts[i] = examples[lo:hi]
	}
	return &Partitioned{dim: dim, n: n, parts: parts}, nil
}

// Dim returns the feature dimension shared by all examples.
func (pt *Partitioned) Dim() int { return pt.dim }

// NumExamples returns the total example count across partitions.
func (pt *Partitioned) NumExamples() int { return pt.n }

// NumPartitions returns the partition count.
func (pt *Partitioned) NumPartitions() int { return len(pt.parts) }

// Repartition reflows the same examples into p partitions.
func (pt *Partitioned) Repartition(p int) *Partitioned {
	all := make([]data.LabeledExample, 0, pt.n)
	for _, part := range pt.parts {
		all = append(all, part...)
	}
	out, _ := Partition(all, pt.dim, p) // dims already validated
	return out
}

// MapSum evaluates f on every partition concurrently and combines the
// partials in a tree of the given depth. A non-finite partial fails the
// whole evaluation with ErrNonFinite.
func (pt *Partitioned) MapSum(depth int, f func(part []data.LabeledExample) Partial) (Partial, error) {
	partials := make([]Partial, len(pt.parts))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, part := range pt.parts {
		g.Go(func() error {
			p := f(part)
			if !p.finite() {
				return common.ErrNonFinite
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Partial{}, err
	}
	total := TreeCombine(partials, depth)
	if !total.finite() {
		return Partial{}, common.ErrNonFinite
	}
	return total, nil
}

// TreeCombine sums the partials in a balanced tree. depth bounds the
// number of combine levels: each level groups at most
// ceil(len^(1/depth)) partials, so no single combining step holds more
// than that many intermediate results. Summation is left to right
// within a group, which makes the result deterministic for fixed
// inputs; different depths agree up to rounding.
func TreeCombine(partials []Partial, depth int) Partial {
	if depth < 1 {
		depth = 1
	}
	level := partials
	for len(level) > 1 {
		branch := int(math.Ceil(math.Pow(float64(len(level)), 1/float64(depth))))
		if branch < 2 {
			branch = 2
		}
		next := make([]Partial, 0, (len(level)+branch-1)/branch)
		for lo := 0; lo < len(level); lo += branch {
			hi := lo + branch
			if hi > len(level) {
				hi = len(level)
			}
			next = append(next, sumRange(level[lo:hi]))
		}
		level = next
		if depth > 1 {
			depth--
		}
	}
	if len(level) == 0 {
		return Partial{}
	}
	return level[0]
}

func sumRange(ps []Partial) Partial {
	var acc Partial
	acc.Value = ps[0].Value
	acc.Weight = ps[0].Weight
	if ps[0].Vec != nil {
		acc.Vec = append([]float64(nil), ps[0].Vec...)
	}
	for _, p := range ps[1:] {
		acc.add(p)
	}
	return acc
}

const (
	minGrainSize = 64
	maxGrainSize = 4096
)

// DefaultPartitions returns a partition count that keeps per-partition
// work between minGrainSize and maxGrainSize examples, bounded by the
// number of usable CPUs.
func DefaultPartitions(nSamples int) int {
	procs := runtime.GOMAXPROCS(0)
	if nSamples < 2*minGrainSize || procs == 1 {
		return 1
	}
	p := procs
	if nSamples/p < minGrainSize {
		p = nSamples / minGrainSize
	}
	if nSamples/p > maxGrainSize {
		p = (nSamples + maxGrainSize - 1) / maxGrainSize
	}
	if p < 1 {
		p = 1
	}
	return p
}
