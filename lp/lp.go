// Package lp is a small modeling layer for linear and mixed-integer
// linear programs. A Problem is built once (variables, parameters,
// constraints, objective), compiled, and then re-solved any number of
// times with updated parameter values. The structure (which variables
// exist, which constraints hold, where parameters appear) is immutable
// after Compile; only parameter values change between solves.
//
// The underlying LP solver is gonum's dense simplex. Binary variables
// are handled by branch and bound on top of it, see solve.go.
package lp

import (
	"fmt"
	"math"
)

type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Status reported by Solve.
type Status string

const (
	StatusOptimal Status = "optimal"
	// StatusOptimalInaccurate means the node budget ran out but an
	// integer-feasible incumbent was found.
	StatusOptimalInaccurate Status = "optimal_inaccurate"
	StatusInfeasible        Status = "infeasible"
	StatusUnbounded         Status = "unbounded"
	StatusFailed            Status = "failed"
)

// IsOptimal reports whether the status is a recognized optimal outcome.
func (s Status) IsOptimal() bool {
	return s == StatusOptimal || s == StatusOptimalInaccurate
}

type variable struct {
	name   string
	free   bool
	binary bool
}

// Param is a numeric series referenced by constraint and objective
// coefficients. Its values may change between solves; its length may not.
type Param struct {
	name string
	vals []float64
}

func (p *Param) Len() int { return len(p.vals) }

func (p *Param) Values() []float64 { return p.vals }

// Set replaces all values. The length must match the declared length.
func (p *Param) Set(vals []float64) {
	if len(vals) != len(p.vals) {
		panic(fmt.Sprintf("lp: param %s has length %d, got %d values", p.name, len(p.vals), len(vals)))
	}
	copy(p.vals, vals)
}

func (p *Param) SetAt(i int, v float64) { p.vals[i] = v }

func (p *Param) At(i int) float64 { return p.vals[i] }

// Coeff is a coefficient that is either a constant or a scaled
// reference into a Param. Parameter references keep the compiled
// problem re-solvable without reconstruction.
type Coeff struct {
	c     float64
	p     *Param
	index int
	scale float64
}

func Const(v float64) Coeff { return Coeff{c: v} }

// FromParam references scale * p[index].
func FromParam(p *Param, index int, scale float64) Coeff {
	if index < 0 || index >= len(p.vals) {
		panic(fmt.Sprintf("lp: param %s index %d out of range [0,%d)", p.name, index, len(p.vals)))
	}
	return Coeff{p: p, index: index, scale: scale}
}

// Value evaluates the coefficient against current parameter values.
func (k Coeff) Value() float64 {
	if k.p != nil {
		return k.scale * k.p.vals[k.index]
	}
	return k.c
}

// Scaled returns the coefficient multiplied by f.
func (k Coeff) Scaled(f float64) Coeff {
	if k.p != nil {
		k.scale *= f
	} else {
		k.c *= f
	}
	return k
}

// Term is one linear term: coefficient times a variable.
type Term struct {
	v int
	k Coeff
}

// Scaled returns the term with its coefficient multiplied by f.
func (t Term) Scaled(f float64) Term {
	t.k = t.k.Scaled(f)
	return t
}

type op int

const (
	opEq op = iota
	opLe
	opGe
)

// Constraint is a scalar linear relation: sum(terms) op sum(rhs).
type Constraint struct {
	terms []Term
	op    op
	rhs   []Coeff
}

// Eq builds sum(terms) == sum(rhs).
func Eq(terms []Term, rhs ...Coeff) Constraint { return Constraint{terms: terms, op: opEq, rhs: rhs} }

// LessEq builds sum(terms) <= sum(rhs).
func LessEq(terms []Term, rhs ...Coeff) Constraint {
	return Constraint{terms: terms, op: opLe, rhs: rhs}
}

// GreaterEq builds sum(terms) >= sum(rhs).
func GreaterEq(terms []Term, rhs ...Coeff) Constraint {
	return Constraint{terms: terms, op: opGe, rhs: rhs}
}

func (c Constraint) rhsValue() float64 {
	v := 0.0
	for _, k := range c.rhs {
		v += k.Value()
	}
	return v
}

// Expr is a linear objective expression: variable terms plus an
// optional constant part (which does not influence the optimum but is
// included in the reported objective value).
type Expr struct {
	terms  []Term
	consts []Coeff
}

func (e *Expr) Add(terms ...Term) { e.terms = append(e.terms, terms...) }

func (e *Expr) AddConst(coeffs ...Coeff) { e.consts = append(e.consts, coeffs...) }

// Problem owns variables, parameters, constraints and the objective.
// It is not safe for concurrent use.
type Problem struct {
	vars     []variable
	params   []*Param
	cons     []Constraint
	obj      Expr
	sense    Sense
	compiled bool

	x      []float64 // last solution, len(vars)
	solved bool
}

func NewProblem() *Problem { return &Problem{} }

// Vector is a run of consecutive decision variables in a Problem.
type Vector struct {
	p    *Problem
	off  int
	n    int
	name string
}

func (p *Problem) mustBeOpen() {
	if p.compiled {
		panic("lp: problem is already compiled")
	}
}

func (p *Problem) newVector(name string, n int, free, binary bool) Vector {
	p.mustBeOpen()
	if n <= 0 {
		panic(fmt.Sprintf("lp: vector %s must have positive length", name))
	}
	off := len(p.vars)
	for i := 0; i < n; i++ {
		p.vars = append(p.vars, variable{name: fmt.Sprintf("%s[%d]", name, i), free: free, binary: binary})
	}
	return Vector{p: p, off: off, n: n, name: name}
}

// NewVector declares n non-negative continuous variables.
func (p *Problem) NewVector(name string, n int) Vector { return p.newVector(name, n, false, false) }

// NewFreeVector declares n continuous variables without a sign restriction.
func (p *Problem) NewFreeVector(name string, n int) Vector { return p.newVector(name, n, true, false) }

// NewBinaryVector declares n binary (0/1) variables.
func (p *Problem) NewBinaryVector(name string, n int) Vector { return p.newVector(name, n, false, true) }

// NewParam declares a parameter series of length n, initially all zero.
func (p *Problem) NewParam(name string, n int) *Param {
	p.mustBeOpen()
	if n <= 0 {
		panic(fmt.Sprintf("lp: param %s must have positive length", name))
	}
	prm := &Param{name: name, vals: make([]float64, n)}
	p.params = append(p.params, prm)
	return prm
}

// NewScalarParam declares a parameter of length one.
func (p *Problem) NewScalarParam(name string, value float64) *Param {
	prm := p.NewParam(name, 1)
	prm.vals[0] = value
	return prm
}

func (v Vector) Len() int { return v.n }

// Term builds coeff * v[i].
func (v Vector) Term(i int, coeff float64) Term {
	return Term{v: v.id(i), k: Const(coeff)}
}

// ParamTerm builds (scale * prm[pi]) * v[i].
func (v Vector) ParamTerm(i int, prm *Param, pi int, scale float64) Term {
	return Term{v: v.id(i), k: FromParam(prm, pi, scale)}
}

func (v Vector) id(i int) int {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("lp: index %d out of range for vector %s of length %d", i, v.name, v.n))
	}
	return v.off + i
}

// Value returns the solved trajectory. Panics if the problem has not
// been solved.
func (v Vector) Value() []float64 {
	if !v.p.solved {
		panic(fmt.Sprintf("lp: reading vector %s before a successful solve", v.name))
	}
	out := make([]float64, v.n)
	copy(out, v.p.x[v.off:v.off+v.n])
	return out
}

// At returns one solved value.
func (v Vector) At(i int) float64 {
	if !v.p.solved {
		panic(fmt.Sprintf("lp: reading vector %s before a successful solve", v.name))
	}
	return v.p.x[v.id(i)]
}

func (p *Problem) AddConstraints(cs ...Constraint) {
	p.mustBeOpen()
	p.cons = append(p.cons, cs...)
}

func (p *Problem) SetObjective(sense Sense, e Expr) {
	p.mustBeOpen()
	p.sense = sense
	p.obj = e
}

func (p *Problem) NumVariables() int   { return len(p.vars) }
func (p *Problem) NumConstraints() int { return len(p.cons) }

// Solved reports whether the problem holds a solution from a
// successful Solve.
func (p *Problem) Solved() bool { return p.solved }

// Compile verifies the structure and freezes it. After Compile only
// parameter values may change. Structural defects are reported here,
// never at solve time.
func (p *Problem) Compile() error {
	if p.compiled {
		return fmt.Errorf("lp: problem compiled twice")
	}
	if len(p.vars) == 0 {
		return fmt.Errorf("lp: problem has no variables")
	}
	if len(p.obj.terms) == 0 {
		return fmt.Errorf("lp: problem has no objective")
	}
	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if t.v < 0 || t.v >= len(p.vars) {
				return fmt.Errorf("lp: %s references unknown variable %d", where, t.v)
			}
			if t.k.p == nil && (math.IsNaN(t.k.c) || math.IsInf(t.k.c, 0)) {
				return fmt.Errorf("lp: %s has non-finite coefficient", where)
			}
			if t.k.p != nil && (math.IsNaN(t.k.scale) || math.IsInf(t.k.scale, 0)) {
				return fmt.Errorf("lp: %s has non-finite parameter scale", where)
			}
		}
		return nil
	}
	if err := check("objective", p.obj.terms); err != nil {
		return err
	}
	for i, c := range p.cons {
		where := fmt.Sprintf("constraint %d", i)
		if err := check(where, c.terms); err != nil {
			return err
		}
		if len(c.terms) == 0 {
			return fmt.Errorf("lp: %s has no variable terms", where)
		}
	}
	p.compiled = true
	return nil
}
