package lp

import (
	"math"
	"testing"
)

func TestSimpleMinimize(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 2)
	p.AddConstraints(
		GreaterEq([]Term{x.Term(0, 1), x.Term(1, 1)}, Const(10)),
		LessEq([]Term{x.Term(0, 1)}, Const(6)),
	)
	var obj Expr
	obj.Add(x.Term(0, 2), x.Term(1, 3))
	p.SetObjective(Minimize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 24.0) {
		t.Errorf("got objective %f, wanted 24", sol.Objective)
	}
	if !almostEqual(x.At(0), 6.0) || !almostEqual(x.At(1), 4.0) {
		t.Errorf("got x = %v, wanted [6 4]", x.Value())
	}
}

func TestSimpleMaximize(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 2)
	p.AddConstraints(
		LessEq([]Term{x.Term(0, 1), x.Term(1, 2)}, Const(4)),
		LessEq([]Term{x.Term(0, 1)}, Const(2)),
	)
	var obj Expr
	obj.Add(x.Term(0, 1), x.Term(1, 1))
	p.SetObjective(Maximize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 3.0) {
		t.Errorf("got objective %f, wanted 3", sol.Objective)
	}
	if !almostEqual(x.At(0), 2.0) || !almostEqual(x.At(1), 1.0) {
		t.Errorf("got x = %v, wanted [2 1]", x.Value())
	}
}

func TestFreeVariable(t *testing.T) {
	// min y subject to y >= x, y >= -x, x == -3; y must reach |x| = 3.
	p := NewProblem()
	x := p.NewFreeVector("x", 1)
	y := p.NewVector("y", 1)
	p.AddConstraints(
		GreaterEq([]Term{y.Term(0, 1), x.Term(0, -1)}, Const(0)),
		GreaterEq([]Term{y.Term(0, 1), x.Term(0, 1)}, Const(0)),
		Eq([]Term{x.Term(0, 1)}, Const(-3)),
	)
	var obj Expr
	obj.Add(y.Term(0, 1))
	p.SetObjective(Minimize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 3.0) {
		t.Errorf("got objective %f, wanted 3", sol.Objective)
	}
	if !almostEqual(x.At(0), -3.0) {
		t.Errorf("got x = %f, wanted -3", x.At(0))
	}
}

func TestBinaryKnapsack(t *testing.T) {
	// max 5a + 4b + 3c subject to 2a + 3b + c <= 3, all binary.
	p := NewProblem()
	z := p.NewBinaryVector("z", 3)
	p.AddConstraints(
		LessEq([]Term{z.Term(0, 2), z.Term(1, 3), z.Term(2, 1)}, Const(3)),
	)
	var obj Expr
	obj.Add(z.Term(0, 5), z.Term(1, 4), z.Term(2, 3))
	p.SetObjective(Maximize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 8.0) {
		t.Errorf("got objective %f, wanted 8", sol.Objective)
	}
	want := []float64{1, 0, 1}
	for i, w := range want {
		if !almostEqual(z.At(i), w) {
			t.Errorf("got z[%d] = %f, wanted %f", i, z.At(i), w)
		}
	}
}

func TestInfeasible(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 1)
	p.AddConstraints(
		GreaterEq([]Term{x.Term(0, 1)}, Const(2)),
		LessEq([]Term{x.Term(0, 1)}, Const(1)),
	)
	var obj Expr
	obj.Add(x.Term(0, 1))
	p.SetObjective(Minimize, obj)
	mustCompile(t, p)

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Errorf("got status %s, wanted %s", sol.Status, StatusInfeasible)
	}
	if p.Solved() {
		t.Error("problem reports solved after infeasible outcome")
	}
}

func TestUnbounded(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 1)
	p.AddConstraints(GreaterEq([]Term{x.Term(0, 1)}, Const(1)))
	var obj Expr
	obj.Add(x.Term(0, 1))
	p.SetObjective(Maximize, obj)
	mustCompile(t, p)

	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != StatusUnbounded {
		t.Errorf("got status %s, wanted %s", sol.Status, StatusUnbounded)
	}
}

func TestParamReSolve(t *testing.T) {
	// The same compiled problem solved twice with different prices must
	// move the optimum between the bounds.
	p := NewProblem()
	x := p.NewVector("x", 1)
	price := p.NewScalarParam("price", 1.0)
	p.AddConstraints(
		GreaterEq([]Term{x.Term(0, 1)}, Const(1)),
		LessEq([]Term{x.Term(0, 1)}, Const(5)),
	)
	var obj Expr
	obj.Add(x.ParamTerm(0, price, 0, 1))
	p.SetObjective(Minimize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 1.0) || !almostEqual(x.At(0), 1.0) {
		t.Errorf("got objective %f at x = %f, wanted 1 at 1", sol.Objective, x.At(0))
	}

	price.SetAt(0, -2.0)
	sol = mustSolve(t, p)
	if !almostEqual(sol.Objective, -10.0) || !almostEqual(x.At(0), 5.0) {
		t.Errorf("got objective %f at x = %f, wanted -10 at 5", sol.Objective, x.At(0))
	}
}

func TestObjectiveConstant(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 1)
	p.AddConstraints(GreaterEq([]Term{x.Term(0, 1)}, Const(2)))
	var obj Expr
	obj.Add(x.Term(0, 1))
	obj.AddConst(Const(7))
	p.SetObjective(Minimize, obj)
	mustCompile(t, p)

	sol := mustSolve(t, p)
	if !almostEqual(sol.Objective, 9.0) {
		t.Errorf("got objective %f, wanted 9", sol.Objective)
	}
}

func TestCompileRejectsEmptyProblem(t *testing.T) {
	if err := NewProblem().Compile(); err == nil {
		t.Error("expected error for a problem without variables")
	}

	p := NewProblem()
	p.NewVector("x", 1)
	if err := p.Compile(); err == nil {
		t.Error("expected error for a problem without an objective")
	}
}

func TestSolveBeforeCompile(t *testing.T) {
	p := NewProblem()
	x := p.NewVector("x", 1)
	var obj Expr
	obj.Add(x.Term(0, 1))
	p.SetObjective(Minimize, obj)

	if _, err := p.Solve(Options{}); err == nil {
		t.Error("expected error when solving an uncompiled problem")
	}
}

func mustCompile(t *testing.T, p *Problem) {
	t.Helper()
	if err := p.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
}

func mustSolve(t *testing.T, p *Problem) Solution {
	t.Helper()
	sol, err := p.Solve(Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !sol.Status.IsOptimal() {
		t.Fatalf("got status %s, wanted an optimal outcome", sol.Status)
	}
	return sol
}

func almostEqual(f1 float64, f2 float64) bool {
	return math.Abs(f1-f2) < 1e-6
}
