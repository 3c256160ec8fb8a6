package hems

import (
	"fmt"
	"math"

	"github.com/angas/hems-go/config"
)

// HeatPump is an air-source heat pump modeled as a fixed load. Its
// electrical profile is derived once, outside the optimization, from a
// 1R1C building simulation: at every step the pump delivers the thermal
// power needed to bring the indoor temperature back to the set-point,
// clamped to its rated capacity, and the electrical draw follows from
// a Carnot-based COP. The temperature and COP trajectories are kept
// for inspection only.
type HeatPump struct {
	FixedLoad
	config.HeatPumpSpec

	dt      float64
	ambient []float64

	Indoor  []float64 // indoor temperature in °C, horizon+1 values
	Thermal []float64 // delivered thermal power in kW
	COP     []float64 // coefficient of performance per step
}

// NewHeatPump runs the thermal simulation over len(ambient) steps and
// fixes the resulting electrical profile.
func NewHeatPump(name string, dt float64, spec config.HeatPumpSpec, ambient []float64) *HeatPump {
	hp := &HeatPump{HeatPumpSpec: spec, dt: dt}
	hp.ambient = make([]float64, len(ambient))
	copy(hp.ambient, ambient)

	elec := hp.simulate()
	hp.FixedLoad = *NewFixedLoad(name, elec)
	return hp
}

// Recompute re-runs the simulation for a new ambient forecast and
// re-values the electrical profile. Structure is untouched, so this is
// safe between solves.
func (hp *HeatPump) Recompute(ambient []float64) error {
	if len(ambient) != hp.Horizon() {
		return fmt.Errorf("hems: heat pump %s has horizon %d, got ambient series of length %d",
			hp.Name(), hp.Horizon(), len(ambient))
	}
	copy(hp.ambient, ambient)
	return hp.SetProfile(hp.simulate())
}

// ComputeCOP returns the Carnot COP scaled by the second-law factor,
// clamped to [COPMin, COPMax]. Temperatures are taken absolute.
func (hp *HeatPump) ComputeCOP(ambient float64) float64 {
	th := hp.SupplyTemp + 273.15
	tc := ambient + 273.15
	dT := max(th-tc, 1.0) // avoid division by zero near equal temperatures
	cop := hp.CarnotFactor * th / dT
	return math.Min(math.Max(cop, hp.COPMin), hp.COPMax)
}

// simulate runs the forward-Euler 1R1C simulation and returns the
// electrical profile. Heating only, no cooling mode.
func (hp *HeatPump) simulate() []float64 {
	n := len(hp.ambient)
	indoor := make([]float64, n+1)
	thermal := make([]float64, n)
	cop := make([]float64, n)
	elec := make([]float64, n)
	indoor[0] = hp.InitialIndoor

	for t := 0; t < n; t++ {
		cop[t] = hp.ComputeCOP(hp.ambient[t])

		// Heat loss this step (positive = heat leaves the building)
		loss := hp.HeatLoss * (indoor[t] - hp.ambient[t])

		// Thermal power needed to reach the set-point next step:
		//   C * (T_set - T_in[t]) / dt = Q_hp + Q_int - Q_loss
		needed := hp.ThermalCapacity*(hp.SetPoint-indoor[t])/hp.dt + loss - hp.InternalGains
		thermal[t] = math.Min(math.Max(needed, 0), hp.MaxThermalPower)

		indoor[t+1] = indoor[t] + hp.dt/hp.ThermalCapacity*(thermal[t]+hp.InternalGains-loss)

		if cop[t] > 0 {
			elec[t] = thermal[t] / cop[t]
		}
	}

	hp.Indoor = indoor
	hp.Thermal = thermal
	hp.COP = cop
	return elec
}
