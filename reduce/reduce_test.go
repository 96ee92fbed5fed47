package reduce

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergejau/photon-ml/common"
	"github.com/sergejau/photon-ml/data"
)

func sumPartial(part []data.LabeledExample) Partial {
	p := Partial{Vec: make([]float64, 3)}
	for i := range part {
		ex := &part[i]
		p.Value += ex.Label
		ex.Features.AddScaled(p.Vec, ex.Weight)
		p.Weight += ex.Weight
	}
	return p
}

func makeExamples(n int) []data.LabeledExample {
	examples := make([]data.LabeledExample, n)
	for i := range examples {
		examples[i] = data.Simple(float64(i), data.Dense{float64(i), 1, -0.5 * float64(i)})
	}
	return examples
}

func TestPartitionShapes(t *testing.T) {
	examples := makeExamples(10)
	pt, err := Partition(examples, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, pt.NumExamples())
	assert.Equal(t, 4, pt.NumPartitions())
	assert.Equal(t, 3, pt.Dim())

	// more partitions than examples: the excess must be empty, not an error
	pt, err = Partition(examples[:2], 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, pt.NumPartitions())
	total, err := pt.MapSum(2, sumPartial)
	require.NoError(t, err)
	assert.Equal(t, 1.0, total.Value)
	assert.Equal(t, 2.0, total.Weight)
}

func TestPartitionDimensionMismatch(t *testing.T) {
	examples := makeExamples(4)
	examples[2].Features = data.Dense{1, 2}
	_, err := Partition(examples, 3, 2)
	var dm common.DimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Found)
}

func TestPartitionInvariance(t *testing.T) {
	examples := makeExamples(101)
	base, err := Partition(examples, 3, 1)
	require.NoError(t, err)
	want, err := base.MapSum(1, sumPartial)
	require.NoError(t, err)

	eps := 1e-12 * float64(len(examples))
	for _, p := range []int{2, 3, 7, 25, 101, 200} {
		for _, depth := range []int{1, 2, 3, 5} {
			got, err := base.Repartition(p).MapSum(depth, sumPartial)
			require.NoError(t, err)
			assert.InDelta(t, want.Value, got.Value, eps, "value with p=%d depth=%d", p, depth)
			assert.InDelta(t, want.Weight, got.Weight, eps)
			for j := range want.Vec {
				assert.InDelta(t, want.Vec[j], got.Vec[j], eps, "vec[%d] with p=%d depth=%d", j, p, depth)
			}
		}
	}
}

func TestTreeCombineExact(t *testing.T) {
	partials := []Partial{
		{Value: 1, Vec: []float64{1, 0}, Weight: 1},
		{Value: 2, Vec: []float64{0, 2}, Weight: 1},
		{},
		{Value: -4, Vec: []float64{1, 1}, Weight: 3},
	}
	for _, depth := range []int{1, 2, 3} {
		got := TreeCombine(partials, depth)
		assert.Equal(t, -1.0, got.Value, "depth %d", depth)
		assert.Equal(t, 5.0, got.Weight, "depth %d", depth)
		assert.Equal(t, []float64{2, 3}, got.Vec, "depth %d", depth)
	}
	assert.Equal(t, Partial{}, TreeCombine(nil, 2))
}

func TestMapSumNonFinite(t *testing.T) {
	examples := makeExamples(6)
	pt, err := Partition(examples, 3, 2)
	require.NoError(t, err)
	_, err = pt.MapSum(1, func(part []data.LabeledExample) Partial {
		return Partial{Value: math.Inf(1)}
	})
	assert.ErrorIs(t, err, common.ErrNonFinite)
}

func TestDefaultPartitions(t *testing.T) {
	assert.Equal(t, 1, DefaultPartitions(10))
	for _, n := range []int{1000, 100000} {
		p := DefaultPartitions(n)
		require.GreaterOrEqual(t, p, 1)
		assert.GreaterOrEqual(t, n/p, 1)
	}
}
