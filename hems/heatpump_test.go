package hems

import (
	"testing"

	"github.com/angas/hems-go/config"
)

func testHeatPumpSpec() config.HeatPumpSpec {
	return config.HeatPumpSpec{
		HeatLoss:        0.2,  // kW/°C
		ThermalCapacity: 10.0, // kWh/°C
		SetPoint:        20.0,
		InitialIndoor:   20.0,
		SupplyTemp:      35.0,
		CarnotFactor:    0.4,
		COPMin:          1.0,
		COPMax:          5.0,
		MaxThermalPower: 8.0,
	}
}

func TestComputeCOP(t *testing.T) {
	hp := NewHeatPump("hp", 1.0, testHeatPumpSpec(), []float64{0})

	// Carnot against ambient 0°C: 0.4 * 308.15 / 35
	if !almostEqual(hp.ComputeCOP(0), 0.4*308.15/35.0) {
		t.Errorf("got COP %f, wanted %f", hp.ComputeCOP(0), 0.4*308.15/35.0)
	}
	// Near-zero temperature lift clamps at the ceiling
	if !almostEqual(hp.ComputeCOP(34.9), 5.0) {
		t.Errorf("got COP %f, wanted the ceiling 5", hp.ComputeCOP(34.9))
	}
	// Deep cold clamps at the floor
	if !almostEqual(hp.ComputeCOP(-250), 1.0) {
		t.Errorf("got COP %f, wanted the floor 1", hp.ComputeCOP(-250))
	}
}

func TestHeatPumpHoldsSetPoint(t *testing.T) {
	ambient := []float64{0, 0, 0, 0}
	hp := NewHeatPump("hp", 1.0, testHeatPumpSpec(), ambient)

	// Starting at the set-point, the pump exactly covers the standing
	// loss and the indoor temperature never moves.
	wantThermal := 0.2 * 20.0
	for step := 0; step < 4; step++ {
		if !almostEqual(hp.Thermal[step], wantThermal) {
			t.Errorf("got thermal %f at step %d, wanted %f", hp.Thermal[step], step, wantThermal)
		}
		if !almostEqual(hp.Power()[step], wantThermal/hp.COP[step]) {
			t.Errorf("got electrical %f at step %d, wanted %f", hp.Power()[step], step, wantThermal/hp.COP[step])
		}
	}
	for step, temp := range hp.Indoor {
		if !almostEqual(temp, 20.0) {
			t.Errorf("got indoor %f at step %d, wanted 20", temp, step)
		}
	}
}

func TestHeatPumpClampsAtRatedPower(t *testing.T) {
	spec := testHeatPumpSpec()
	spec.InitialIndoor = 10.0
	hp := NewHeatPump("hp", 1.0, spec, []float64{-10, -10, -10, -10})

	// A 10°C deficit over one step would need far more than 8 kW
	if !almostEqual(hp.Thermal[0], 8.0) {
		t.Errorf("got thermal %f, wanted the 8 kW cap", hp.Thermal[0])
	}
	if hp.Indoor[1] <= 10.0 {
		t.Errorf("got indoor %f after one step, wanted it rising", hp.Indoor[1])
	}
}

func TestHeatPumpNoCooling(t *testing.T) {
	spec := testHeatPumpSpec()
	spec.InitialIndoor = 25.0
	hp := NewHeatPump("hp", 1.0, spec, []float64{30, 30})

	for step, v := range hp.Thermal {
		if v < 0 {
			t.Errorf("got negative thermal power %f at step %d", v, step)
		}
	}
	for step, v := range hp.Power() {
		if !almostEqual(v, 0) {
			t.Errorf("got electrical %f at step %d, wanted 0 while warm", v, step)
		}
	}
}

func TestHeatPumpInternalGains(t *testing.T) {
	spec := testHeatPumpSpec()
	spec.InternalGains = 1.0
	hp := NewHeatPump("hp", 1.0, spec, []float64{0, 0})

	// Gains offset part of the standing loss
	want := 0.2*20.0 - 1.0
	for step, v := range hp.Thermal {
		if !almostEqual(v, want) {
			t.Errorf("got thermal %f at step %d, wanted %f", v, step, want)
		}
	}
}

func TestHeatPumpRecompute(t *testing.T) {
	hp := NewHeatPump("hp", 1.0, testHeatPumpSpec(), []float64{0, 0})

	if err := hp.Recompute([]float64{0, 0, 0}); err == nil {
		t.Error("expected error for an ambient series of the wrong length")
	}

	before := hp.Power()[0]
	if err := hp.Recompute([]float64{-20, -20}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if hp.Power()[0] <= before {
		t.Errorf("got electrical %f after a colder forecast, wanted more than %f", hp.Power()[0], before)
	}
}
