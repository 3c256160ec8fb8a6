package hems

import (
	"math"
	"testing"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/lp"
)

func fptr(v float64) *float64 { return &v }

func testBatterySpec(capacity, rate, initial, terminal float64) config.BatterySpec {
	return config.BatterySpec{
		Capacity:            capacity,
		MaxChargeRate:       rate,
		MaxDischargeRate:    rate,
		ChargeEfficiency:    fptr(1.0),
		DischargeEfficiency: fptr(1.0),
		InitialCharge:       fptr(initial),
		TerminalCharge:      fptr(terminal),
	}
}

// Solves a bare battery problem minimizing total throughput, so any
// charging that happens is forced by the constraints alone.
func solveBatteryAlone(t *testing.T, b *Battery) {
	t.Helper()
	prob := lp.NewProblem()
	b.build(prob)
	prob.AddConstraints(b.constraints()...)

	var obj lp.Expr
	for i := 0; i < b.Horizon(); i++ {
		obj.Add(b.PCh.Term(i, 1), b.PDis.Term(i, 1))
	}
	prob.SetObjective(lp.Minimize, obj)
	if err := prob.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	sol, err := prob.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !sol.Status.IsOptimal() {
		t.Fatalf("got status %s, wanted an optimal outcome", sol.Status)
	}
}

func TestBatteryIdleWhenNothingForces(t *testing.T) {
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 2, 2))
	solveBatteryAlone(t, b)

	for i, v := range b.Charge() {
		if !almostEqual(v, 2.0) {
			t.Errorf("got charge %f at step %d, wanted 2", v, i)
		}
	}
	for i, v := range b.Power() {
		if !almostEqual(v, 0.0) {
			t.Errorf("got power %f at step %d, wanted 0", v, i)
		}
	}
}

func TestBatteryDrainForcesRecharge(t *testing.T) {
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 2, 2))
	if err := b.SetDrain([]float64{1, 0, 0, 0}); err != nil {
		t.Fatalf("set drain: %v", err)
	}
	solveBatteryAlone(t, b)

	soc := b.Charge()
	if !almostEqual(soc[0], 2.0) {
		t.Errorf("got initial charge %f, wanted 2", soc[0])
	}
	if soc[4] < 2.0-1e-6 {
		t.Errorf("got terminal charge %f, below the floor 2", soc[4])
	}
	var charged float64
	for _, v := range b.ChargePower() {
		charged += v
	}
	// Exactly the drained kWh must come back, and nothing more is
	// optimal under a throughput objective.
	if !almostEqual(charged, 1.0) {
		t.Errorf("got total charging %f kWh, wanted 1", charged)
	}
}

func TestBatteryCapacityBound(t *testing.T) {
	// Terminal floor above capacity is unreachable.
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 2, 11))

	prob := lp.NewProblem()
	b.build(prob)
	prob.AddConstraints(b.constraints()...)
	var obj lp.Expr
	for i := 0; i < b.Horizon(); i++ {
		obj.Add(b.PCh.Term(i, 1))
	}
	prob.SetObjective(lp.Minimize, obj)
	if err := prob.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	sol, err := prob.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if sol.Status != lp.StatusInfeasible {
		t.Errorf("got status %s, wanted %s", sol.Status, lp.StatusInfeasible)
	}
}

func TestBatteryChargeEfficiencyLoss(t *testing.T) {
	// With 80% charge efficiency, moving the state of charge up one kWh
	// needs 1.25 kWh of grid-side energy.
	spec := testBatterySpec(10, 5, 0, 1)
	spec.ChargeEfficiency = fptr(0.8)
	b := NewBattery("batt", 1, 1.0, spec)
	solveBatteryAlone(t, b)

	if !almostEqual(b.ChargePower()[0], 1.25) {
		t.Errorf("got charge power %f, wanted 1.25", b.ChargePower()[0])
	}
	if !almostEqual(b.Charge()[1], 1.0) {
		t.Errorf("got charge %f, wanted 1", b.Charge()[1])
	}
}

func TestBatterySetDrainLength(t *testing.T) {
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 2, 2))
	if err := b.SetDrain([]float64{1, 2}); err == nil {
		t.Error("expected error for a drain series of the wrong length")
	}
}

func almostEqual(f1 float64, f2 float64) bool {
	return math.Abs(f1-f2) < 1e-6
}
