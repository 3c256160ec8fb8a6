package hems

import (
	"strings"
	"testing"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/lp"
)

func TestFixedLoadCost(t *testing.T) {
	// 1 kW for four quarter hours at 0.10 EUR/kWh is exactly 0.10 EUR.
	load := NewFixedLoad("house", []float64{1, 1, 1, 1})
	sys, err := New(Input{
		Loads:     []Load{load},
		Prices:    []float64{0.10, 0.10, 0.10, 0.10},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	if sys.StepHours() != DefaultStepHours {
		t.Errorf("got step duration %f, wanted the default %f", sys.StepHours(), DefaultStepHours)
	}

	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !almostEqual(res.Objective, 0.10) {
		t.Errorf("got objective %f, wanted 0.10", res.Objective)
	}
	if !almostEqual(res.Breakdown.TotalImport, 0.10) {
		t.Errorf("got import cost %f, wanted 0.10", res.Breakdown.TotalImport)
	}
	for i, v := range res.GridImport {
		if !almostEqual(v, 1.0) {
			t.Errorf("got import %f at step %d, wanted 1", v, i)
		}
	}
	for i, v := range res.GridExport {
		if !almostEqual(v, 0.0) {
			t.Errorf("got export %f at step %d, wanted 0", v, i)
		}
	}
}

func TestPowerBalance(t *testing.T) {
	load := NewFixedLoad("house", []float64{2, 2, 2, 2})
	pv := NewSolar("roof", 4, false)
	if err := pv.SetMaxPower([]float64{0, 3, 3, 0}); err != nil {
		t.Fatalf("set pv: %v", err)
	}
	batt := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 2, 2))

	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{load},
		PVs:       []*Solar{pv},
		Battery:   batt,
		Prices:    []float64{0.05, 0.10, 0.40, 0.30},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	battPower := batt.Power()
	for step := 0; step < 4; step++ {
		lhs := res.GridImport[step] - res.GridExport[step] + pv.Power()[step]
		rhs := load.Power()[step] + battPower[step]
		if !almostEqual(lhs, rhs) {
			t.Errorf("power balance violated at step %d: supply %f, demand %f", step, lhs, rhs)
		}
	}

	for step, v := range batt.Charge() {
		if v < -1e-6 || v > 10+1e-6 {
			t.Errorf("got charge %f at step %d, outside [0, 10]", v, step)
		}
	}
}

func TestBatteryArbitrage(t *testing.T) {
	load := NewFixedLoad("house", []float64{2, 2, 2, 2})
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 2, 0, 0))
	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{load},
		Battery:   b,
		Prices:    []float64{0.05, 0.05, 0.50, 0.50},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	// Charging at 0.05 to displace consumption at 0.50 clearly beats
	// buying everything as it comes (0.05*4 + 0.50*4 = 2.20 EUR).
	if res.Breakdown.Net() >= 2.20 {
		t.Errorf("got net cost %f, wanted an improvement over 2.20", res.Breakdown.Net())
	}
	for step := 0; step < 2; step++ {
		if b.DischargePower()[step] > 1e-6 {
			t.Errorf("got discharge %f during the cheap step %d", b.DischargePower()[step], step)
		}
	}
	for step := 2; step < 4; step++ {
		if b.ChargePower()[step] > 1e-6 {
			t.Errorf("got charging %f during the expensive step %d", b.ChargePower()[step], step)
		}
	}
}

func TestNoSimultaneousChargeAndDischarge(t *testing.T) {
	// Negative prices reward burning energy through round-trip losses,
	// which would require charging and discharging in the same step.
	// The per-step mode binary forbids it.
	spec := testBatterySpec(10, 5, 5, 5)
	spec.ChargeEfficiency = fptr(0.9)
	spec.DischargeEfficiency = fptr(0.9)
	b := NewBattery("batt", 4, 1.0, spec)

	sys, err := New(Input{
		StepHours: 1.0,
		Battery:   b,
		Prices:    []float64{-0.2, -0.2, -0.2, -0.2},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	if _, err := sys.Solve(lp.Options{}); err != nil {
		t.Fatalf("solve: %v", err)
	}

	for step := 0; step < 4; step++ {
		ch, dis := b.ChargePower()[step], b.DischargePower()[step]
		if ch > 1e-6 && dis > 1e-6 {
			t.Errorf("got charge %f and discharge %f at step %d simultaneously", ch, dis, step)
		}
	}
}

func TestZeroInputsCostNothing(t *testing.T) {
	load := NewFixedLoad("house", []float64{0, 0, 0, 0})
	sys, err := New(Input{
		Loads:     []Load{load},
		Prices:    []float64{0, 0, 0, 0},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}

	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !almostEqual(res.Objective, 0) {
		t.Errorf("got objective %f, wanted 0", res.Objective)
	}
	if !almostEqual(res.Breakdown.Net(), 0) {
		t.Errorf("got net cost %f, wanted 0", res.Breakdown.Net())
	}
}

func TestFlexibleLoadSoaksNegativePrices(t *testing.T) {
	// With nothing but the spot price on the bill, negative prices make
	// importing profitable, so the optimizer runs the controllable load
	// flat out at its cap.
	flex := NewFlexibleLoad("boiler", 4, 3.0)
	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{flex},
		Prices:    []float64{-0.1, -0.1, -0.1, -0.1},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}

	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if !almostEqual(res.Objective, -1.2) {
		t.Errorf("got objective %f, wanted -1.2", res.Objective)
	}
	for i, v := range flex.Power() {
		if !almostEqual(v, 3.0) {
			t.Errorf("got load %f at step %d, wanted the 3.0 cap", v, i)
		}
	}
	for i, v := range res.GridExport {
		if !almostEqual(v, 0.0) {
			t.Errorf("got export %f at step %d, wanted 0", v, i)
		}
	}
}

func TestSelfRelianceKeepsBatteryIdle(t *testing.T) {
	// With no local generation the battery cannot reduce total import;
	// the cycling penalty makes the do-nothing plan the unique optimum.
	load := NewFixedLoad("house", []float64{1, 1, 1, 1})
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 5, 5, 5))

	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{load},
		Battery:   b,
		Prices:    []float64{0.5, 0.01, 0.5, 0.01},
		Objective: ObjectiveSelfReliance,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if !almostEqual(res.Objective, 4.0) {
		t.Errorf("got objective %f, wanted 4 kWh of import", res.Objective)
	}
	for step, v := range b.Power() {
		if !almostEqual(v, 0) {
			t.Errorf("got battery power %f at step %d, wanted idle", v, step)
		}
	}
}

func TestSelfConsumptionStoresSurplus(t *testing.T) {
	// 2 kW of PV against 1 kW of load: the surplus goes into the
	// battery instead of the grid.
	load := NewFixedLoad("house", []float64{1, 1})
	pv := NewSolar("roof", 2, false)
	if err := pv.SetMaxPower([]float64{2, 2}); err != nil {
		t.Fatalf("set pv: %v", err)
	}
	b := NewBattery("batt", 2, 1.0, testBatterySpec(10, 5, 0, 0))

	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{load},
		PVs:       []*Solar{pv},
		Battery:   b,
		Prices:    []float64{0.1, 0.1},
		Objective: ObjectiveSelfConsumption,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	for step, v := range res.GridExport {
		if !almostEqual(v, 0) {
			t.Errorf("got export %f at step %d, wanted the surplus stored instead", v, step)
		}
	}
	for step, v := range b.ChargePower() {
		if !almostEqual(v, 1.0) {
			t.Errorf("got charging %f at step %d, wanted the 1 kW surplus", v, step)
		}
	}
	// 4 kWh generated, none exported, minus the cycling penalty on
	// 2 kWh of charging throughput
	if !almostEqual(res.Objective, 4.0-0.005*2.0) {
		t.Errorf("got objective %f, wanted %f", res.Objective, 4.0-0.005*2.0)
	}
}

func TestCurtailableSolarSpillsAtNegativePrices(t *testing.T) {
	// Exporting at a negative price costs money; curtailable PV is
	// spilled instead.
	pv := NewSolar("roof", 2, true)
	if err := pv.SetMaxPower([]float64{3, 3}); err != nil {
		t.Fatalf("set pv: %v", err)
	}
	sys, err := New(Input{
		StepHours: 1.0,
		PVs:       []*Solar{pv},
		Prices:    []float64{-0.1, -0.1},
		Economy:   config.EconomySpec{ProcurementFee: 0.2},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	for step, v := range res.GridExport {
		if !almostEqual(v, 0) {
			t.Errorf("got export %f at step %d, wanted full curtailment", v, step)
		}
	}
	if !almostEqual(res.Objective, 0) {
		t.Errorf("got objective %f, wanted 0", res.Objective)
	}
}

func TestNetMeteringExportValue(t *testing.T) {
	pv := NewSolar("roof", 1, false)
	if err := pv.SetMaxPower([]float64{2}); err != nil {
		t.Fatalf("set pv: %v", err)
	}
	sys, err := New(Input{
		StepHours: 1.0,
		PVs:       []*Solar{pv},
		Prices:    []float64{0.10},
		Economy: config.EconomySpec{
			ProcurementFee: 0.01,
			EnergyTax:      0.02,
			VAT:            0.21,
			NetMetering:    true,
		},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	res, err := sys.Solve(lp.Options{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	// 2 kWh exported, credited at the full import price
	want := -2.0 * (0.10 + 0.01 + 0.02) * 1.21
	if !almostEqual(res.Objective, want) {
		t.Errorf("got objective %f, wanted %f", res.Objective, want)
	}
	if !almostEqual(res.Breakdown.Net(), want) {
		t.Errorf("got net cost %f, wanted %f", res.Breakdown.Net(), want)
	}
}

func TestTaxMonotonicity(t *testing.T) {
	cost := func(tax float64) float64 {
		load := NewFixedLoad("house", []float64{1, 1, 1, 1})
		sys, err := New(Input{
			StepHours: 1.0,
			Loads:     []Load{load},
			Prices:    []float64{0.1, 0.2, 0.3, 0.4},
			Economy:   config.EconomySpec{EnergyTax: tax},
			Objective: ObjectiveCost,
		})
		if err != nil {
			t.Fatalf("new system: %v", err)
		}
		res, err := sys.Solve(lp.Options{})
		if err != nil {
			t.Fatalf("solve: %v", err)
		}
		return res.Breakdown.Net()
	}

	if low, high := cost(0.02), cost(0.15); high <= low {
		t.Errorf("got net cost %f at the higher tax, wanted more than %f", high, low)
	}
}

func TestStepAdvancesInitialCharge(t *testing.T) {
	load := NewFixedLoad("house", []float64{2, 2, 2, 2})
	b := NewBattery("batt", 4, 1.0, testBatterySpec(10, 2, 0, 0))
	sys, err := New(Input{
		StepHours: 1.0,
		Loads:     []Load{load},
		Battery:   b,
		Prices:    []float64{0.05, 0.05, 0.50, 0.50},
		Objective: ObjectiveCost,
	})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}

	if err := sys.Step(); err == nil {
		t.Fatal("expected error when stepping before a solve")
	}

	if _, err := sys.Solve(lp.Options{}); err != nil {
		t.Fatalf("solve: %v", err)
	}
	next := b.Charge()[1]
	if err := sys.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !almostEqual(b.CurrentInitialCharge(), next) {
		t.Errorf("got initial charge %f after step, wanted %f", b.CurrentInitialCharge(), next)
	}
}

func TestHorizonMismatch(t *testing.T) {
	load := NewFixedLoad("house", []float64{1, 1, 1, 1})
	pv := NewSolar("roof", 3, false)
	_, err := New(Input{Loads: []Load{load}, PVs: []*Solar{pv}})
	if err == nil {
		t.Fatal("expected error for mismatched horizons")
	}
	if !strings.Contains(err.Error(), "roof") {
		t.Errorf("got error %q, wanted the offending component named", err)
	}
}

func TestUnknownObjective(t *testing.T) {
	load := NewFixedLoad("house", []float64{1, 1})
	if _, err := New(Input{Loads: []Load{load}, Objective: "profit"}); err == nil {
		t.Error("expected error for an unknown objective")
	}
}

func TestNoComponents(t *testing.T) {
	if _, err := New(Input{}); err == nil {
		t.Error("expected error when the horizon cannot be inferred")
	}
}

func TestPriceLengthMismatch(t *testing.T) {
	load := NewFixedLoad("house", []float64{1, 1})
	if _, err := New(Input{Loads: []Load{load}, Prices: []float64{0.1}}); err == nil {
		t.Error("expected error for a price series of the wrong length")
	}

	sys, err := New(Input{Loads: []Load{load}, Prices: []float64{0.1, 0.1}})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	if err := sys.SetPrices([]float64{0.1}); err == nil {
		t.Error("expected error from SetPrices with the wrong length")
	}
}

func TestSummary(t *testing.T) {
	load := NewFixedLoad("house", []float64{1, 1})
	sys, err := New(Input{StepHours: 1.0, Loads: []Load{load}, Prices: []float64{0.1, 0.1}})
	if err != nil {
		t.Fatalf("new system: %v", err)
	}
	if !strings.Contains(sys.Summary(), "no solution") {
		t.Errorf("got summary %q before solving", sys.Summary())
	}
	if _, err := sys.Solve(lp.Options{}); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if !strings.Contains(sys.Summary(), "status: optimal") {
		t.Errorf("got summary %q, wanted the solve status in it", sys.Summary())
	}
}
