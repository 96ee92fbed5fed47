// Package objective aggregates per-example loss contributions over a
// partitioned dataset into a dataset-wide value, gradient, and
// Hessian-vector product. The objective is the weighted mean of the
// per-example contributions; regularization penalties are layered on
// top by the regularize package and are not normalized.
package objective

import (
	"github.com/sergejau/photon-ml/common"
	"github.com/sergejau/photon-ml/data"
	"github.com/sergejau/photon-ml/loss"
	"github.com/sergejau/photon-ml/reduce"
)

// A Function is a differentiable objective of a parameter vector.
// Evaluations are pure: fixed inputs give the same result up to
// floating-point rounding regardless of scheduling.
type Function interface {
	Dim() int

	// Value returns the objective at params.
	Value(params []float64) (float64, error)

	// Grad stores the gradient at params into grad, which must have
	// length Dim, and returns the objective value.
	Grad(grad, params []float64) (float64, error)
}

// A TwiceDiff is a Function that can multiply its (implicit, never
// materialized) Hessian by a direction vector.
type TwiceDiff interface {
	Function

	// HessVec stores H(params)·dir into dst.
	HessVec(dst, params, dir []float64) error
}

// An Evaluator computes one example's weighted contribution. AddGrad
// accumulates into grad in place; implementations must not allocate,
// since they run in the innermost loop of the reduction.
type Evaluator interface {
	ExampleValue(params []float64, ex *data.LabeledExample) float64
	AddExampleGrad(grad, params []float64, ex *data.LabeledExample)
	String() string
}

// A HessEvaluator also accumulates weighted Hessian-vector-product
// contributions. Only twice-differentiable per-example math may
// implement it.
type HessEvaluator interface {
	Evaluator
	AddExampleHessVec(dst, params, dir []float64, ex *data.LabeledExample)
}

// NewGLM returns the per-example evaluator for a margin-based loss
// kernel: value w·l(s,y), gradient w·l'(s,y)·x, and Hessian-vector
// product w·l''(s,y)·(x·d)·x with s = params·x + offset. The result
// satisfies HessEvaluator exactly when the kernel is twice
// differentiable, so differentiability is decided at construction, not
// discovered mid-computation.
func NewGLM(k loss.Kernel) Evaluator {
	if tk, ok := k.(loss.TwiceDiffKernel); ok {
		return glmHess{glm{k}, tk}
	}
	return glm{k}
}

type glm struct {
	kernel loss.Kernel
}

func (g glm) String() string { return g.kernel.String() }

func (g glm) ExampleValue(params []float64, ex *data.LabeledExample) float64 {
	return ex.Weight * g.kernel.Loss(ex.Margin(params), ex.Label)
}

func (g glm) AddExampleGrad(grad, params []float64, ex *data.LabeledExample) {
	d := ex.Weight * g.kernel.Deriv(ex.Margin(params), ex.Label)
	ex.Features.AddScaled(grad, d)
}

type glmHess struct {
	glm
	twice loss.TwiceDiffKernel
}

func (g glmHess) AddExampleHessVec(dst, params, dir []float64, ex *data.LabeledExample) {
	dd := ex.Weight * g.twice.SecondDeriv(ex.Margin(params), ex.Label)
	ex.Features.AddScaled(dst, dd*ex.Features.Dot(dir))
}

// Quadratic is a data-independent evaluator used to validate the
// aggregation plumbing itself: every example contributes
// w·Σ(params_j - Center)² regardless of its features, so the weighted
// mean over any partitioning equals the polynomial exactly.
type Quadratic struct {
	Center float64
}

func (q Quadratic) String() string { return "quadratic" }

func (q Quadratic) ExampleValue(params []float64, ex *data.LabeledExample) float64 {
	var v float64
	for _, p := range params {
		d := p - q.Center
		v += d * d
	}
	return ex.Weight * v
}

func (q Quadratic) AddExampleGrad(grad, params []float64, ex *data.LabeledExample) {
	for i, p := range params {
		grad[i] += ex.Weight * 2 * (p - q.Center)
	}
}

func (q Quadratic) AddExampleHessVec(dst, params, dir []float64, ex *data.LabeledExample) {
	for i := range dst {
		dst[i] += ex.Weight * 2 * dir[i]
	}
}

// Batch is the dataset-wide objective over a partitioned collection.
type Batch struct {
	Eval Evaluator
	Data *reduce.Partitioned

	// TreeDepth controls the combine tree of the reduction. It may be
	// changed between evaluations; it shifts work and memory around the
	// tree without affecting results beyond rounding.
	TreeDepth int
}

// NewBatch wraps eval and the partitioned data with a depth-2 combine
// tree.
func NewBatch(eval Evaluator, d *reduce.Partitioned) *Batch {
	return &Batch{Eval: eval, Data: d, TreeDepth: 2}
}

func (b *Batch) Dim() int { return b.Data.Dim() }

func (b *Batch) depth() int {
	if b.TreeDepth < 1 {
		return 1
	}
	return b.TreeDepth
}

// Value returns the weighted mean loss at params.
func (b *Batch) Value(params []float64) (float64, error) {
	if err := common.CheckDim(params, b.Dim()); err != nil {
		return 0, err
	}
	total, err := b.Data.MapSum(b.depth(), func(part []data.LabeledExample) reduce.Partial {
		var p reduce.Partial
		for i := range part {
			ex := &part[i]
			p.Value += b.Eval.ExampleValue(params, ex)
			p.Weight += ex.Weight
		}
		return p
	})
	if err != nil {
		return 0, err
	}
	if total.Weight == 0 {
		return 0, nil
	}
	return total.Value / total.Weight, nil
}

// Grad stores the weighted mean gradient at params into grad and
// returns the corresponding value.
func (b *Batch) Grad(grad, params []float64) (float64, error) {
	if err := common.CheckDim(params, b.Dim()); err != nil {
		return 0, err
	}
	if err := common.CheckDim(grad, b.Dim()); err != nil {
		return 0, err
	}
	total, err := b.Data.MapSum(b.depth(), func(part []data.LabeledExample) reduce.Partial {
		p := reduce.Partial{Vec: make([]float64, b.Dim())}
		for i := range part {
			ex := &part[i]
			p.Value += b.Eval.ExampleValue(params, ex)
			b.Eval.AddExampleGrad(p.Vec, params, ex)
			p.Weight += ex.Weight
		}
		return p
	})
	if err != nil {
		return 0, err
	}
	for i := range grad {
		grad[i] = 0
	}
	if total.Weight == 0 {
		return 0, nil
	}
	for i, v := range total.Vec {
		grad[i] = v / total.Weight
	}
	return total.Value / total.Weight, nil
}

// HessVec stores the weighted mean Hessian-vector product H(params)·dir
// into dst. It fails with ErrNotTwiceDiff, before any computation, when
// the evaluator is not twice differentiable.
func (b *Batch) HessVec(dst, params, dir []float64) error {
	h, ok := b.Eval.(HessEvaluator)
	if !ok {
		return common.ErrNotTwiceDiff
	}
	if err := common.CheckDim(params, b.Dim()); err != nil {
		return err
	}
	if err := common.CheckDim(dir, b.Dim()); err != nil {
		return err
	}
	if err := common.CheckDim(dst, b.Dim()); err != nil {
		return err
	}
	total, err := b.Data.MapSum(b.depth(), func(part []data.LabeledExample) reduce.Partial {
		p := reduce.Partial{Vec: make([]float64, b.Dim())}
		for i := range part {
			ex := &part[i]
			h.AddExampleHessVec(p.Vec, params, dir, ex)
			p.Weight += ex.Weight
		}
		return p
	})
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = 0
	}
	if total.Weight == 0 {
		return nil
	}
	for i, v := range total.Vec {
		dst[i] = v / total.Weight
	}
	return nil
}
