package lp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	convexlp "gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultTol      = 1e-10
	defaultMaxNodes = 2000
	intTol          = 1e-6
	pruneTol        = 1e-9
)

// Options are forwarded to the solver as-is.
type Options struct {
	// Tol is the simplex pivot tolerance. Zero means the default.
	Tol float64
	// MaxNodes bounds the branch and bound search. Zero means the default.
	MaxNodes int
}

// Solution is the outcome of one Solve call.
type Solution struct {
	Status    Status
	Objective float64
	// Nodes is the number of branch and bound nodes visited.
	Nodes int
}

// fix pins one binary variable to 0 or 1 in a branch and bound node.
type fix struct {
	v   int
	val float64
}

// Solve evaluates the current parameter values and solves the problem.
// The LP relaxation is solved with gonum's simplex; binary variables
// are then driven to integrality by branch and bound. Infeasible and
// unbounded outcomes are reported in the Status, not as an error; an
// error means the problem is unusable (not compiled, non-finite data,
// or a solver breakdown).
func (p *Problem) Solve(opts Options) (Solution, error) {
	if !p.compiled {
		return Solution{Status: StatusFailed}, fmt.Errorf("lp: solve before compile")
	}
	tol := opts.Tol
	if tol == 0 {
		tol = defaultTol
	}
	maxNodes := opts.MaxNodes
	if maxNodes == 0 {
		maxNodes = defaultMaxNodes
	}

	p.solved = false

	var binaries []int
	for i, v := range p.vars {
		if v.binary {
			binaries = append(binaries, i)
		}
	}

	// Depth-first search, minimize space (Maximize is negated in the
	// dense build and flipped back at the end).
	stack := []([]fix){nil}
	best := math.Inf(1)
	var bestX []float64
	nodes := 0
	exhausted := false

	for len(stack) > 0 {
		if nodes >= maxNodes {
			exhausted = true
			break
		}
		nodes++
		fixes := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, x, status, err := p.solveRelaxation(fixes, tol)
		switch status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			// Fixing binaries cannot unbound a bounded problem, so an
			// unbounded relaxation means the problem itself is unbounded.
			return Solution{Status: StatusUnbounded, Nodes: nodes}, nil
		case StatusFailed:
			return Solution{Status: StatusFailed, Nodes: nodes}, err
		}

		if obj >= best-pruneTol {
			continue
		}

		branch := -1
		worst := intTol
		for _, v := range binaries {
			frac := math.Abs(x[v] - math.Round(x[v]))
			if frac > worst {
				worst = frac
				branch = v
			}
		}
		if branch < 0 {
			best = obj
			bestX = x
			continue
		}

		// Explore the side nearer the fractional value first (LIFO).
		lo := append(append([]fix(nil), fixes...), fix{v: branch, val: 0})
		hi := append(append([]fix(nil), fixes...), fix{v: branch, val: 1})
		if x[branch] < 0.5 {
			stack = append(stack, hi, lo)
		} else {
			stack = append(stack, lo, hi)
		}
	}

	if bestX == nil {
		if exhausted {
			return Solution{Status: StatusFailed, Nodes: nodes},
				fmt.Errorf("lp: node budget %d exhausted without an integer-feasible solution", maxNodes)
		}
		return Solution{Status: StatusInfeasible, Nodes: nodes}, nil
	}

	p.x = bestX
	p.solved = true

	status := StatusOptimal
	if exhausted && len(stack) > 0 {
		status = StatusOptimalInaccurate
	}
	if p.sense == Maximize {
		best = -best
	}
	for _, k := range p.obj.consts {
		best += k.Value()
	}
	return Solution{Status: status, Objective: best, Nodes: nodes}, nil
}

// solveRelaxation builds the standard-form LP for the current parameter
// values plus the node's binary fixes and calls the simplex. The
// returned x is in original variable space.
func (p *Problem) solveRelaxation(fixes []fix, tol float64) (float64, []float64, Status, error) {
	// Column layout: continuous/binary variables first (free variables
	// split into a positive and a negative part), then one slack per
	// inequality row.
	colOf := make([]int, len(p.vars))
	ncols := 0
	for i, v := range p.vars {
		colOf[i] = ncols
		if v.free {
			ncols += 2
		} else {
			ncols++
		}
	}

	nineq := 0
	for _, c := range p.cons {
		if c.op != opEq {
			nineq++
		}
	}
	nbin := 0
	for _, v := range p.vars {
		if v.binary {
			nbin++
		}
	}
	slack0 := ncols
	ncols += nineq + nbin // binaries get an upper-bound row z + s = 1

	nrows := len(p.cons) + nbin + len(fixes)
	a := mat.NewDense(nrows, ncols, nil)
	b := make([]float64, nrows)
	c := make([]float64, ncols)

	setVar := func(row, v int, coeff float64) {
		col := colOf[v]
		a.Set(row, col, a.At(row, col)+coeff)
		if p.vars[v].free {
			a.Set(row, col+1, a.At(row, col+1)-coeff)
		}
	}

	row := 0
	slack := slack0
	for _, con := range p.cons {
		for _, t := range con.terms {
			k := t.k.Value()
			if math.IsNaN(k) || math.IsInf(k, 0) {
				return 0, nil, StatusFailed, fmt.Errorf("lp: non-finite coefficient in constraint")
			}
			setVar(row, t.v, k)
		}
		rhs := con.rhsValue()
		if math.IsNaN(rhs) || math.IsInf(rhs, 0) {
			return 0, nil, StatusFailed, fmt.Errorf("lp: non-finite right-hand side")
		}
		b[row] = rhs
		switch con.op {
		case opLe:
			a.Set(row, slack, 1)
			slack++
		case opGe:
			a.Set(row, slack, -1)
			slack++
		}
		row++
	}
	for v, def := range p.vars {
		if !def.binary {
			continue
		}
		setVar(row, v, 1)
		a.Set(row, slack, 1)
		b[row] = 1
		slack++
		row++
	}
	for _, f := range fixes {
		setVar(row, f.v, 1)
		b[row] = f.val
		row++
	}

	objSign := 1.0
	if p.sense == Maximize {
		objSign = -1
	}
	for _, t := range p.obj.terms {
		k := objSign * t.k.Value()
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return 0, nil, StatusFailed, fmt.Errorf("lp: non-finite coefficient in objective")
		}
		col := colOf[t.v]
		c[col] += k
		if p.vars[t.v].free {
			c[col+1] -= k
		}
	}

	obj, xs, err := convexlp.Simplex(c, a, b, tol, nil)
	switch err {
	case nil:
	case convexlp.ErrInfeasible:
		return 0, nil, StatusInfeasible, nil
	case convexlp.ErrUnbounded:
		return 0, nil, StatusUnbounded, nil
	default:
		return 0, nil, StatusFailed, fmt.Errorf("lp: simplex: %w", err)
	}

	x := make([]float64, len(p.vars))
	for i, v := range p.vars {
		if v.free {
			x[i] = xs[colOf[i]] - xs[colOf[i]+1]
		} else {
			x[i] = xs[colOf[i]]
		}
	}
	return obj, x, StatusOptimal, nil
}
