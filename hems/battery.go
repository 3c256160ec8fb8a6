package hems

import (
	"fmt"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/lp"
)

// Battery is a stationary storage component. Its state of charge
// follows the recursion
//
//	E[t+1] = E[t] + dt*(etaCh*P_ch[t] - P_dis[t]/etaDis) - drain[t]
//
// with a per-step binary mode forbidding simultaneous charging and
// discharging. Without the binary, the optimizer could run charge and
// discharge together and launder energy through the round-trip losses.
type Battery struct {
	config.BatterySpec

	name    string
	horizon int
	dt      float64

	initial  float64
	terminal float64
	drain    []float64 // external energy drain per step in kWh

	e0, eT, drainP *lp.Param
	E              lp.Vector // state of charge in kWh, horizon+1 values
	PCh, PDis      lp.Vector // charge and discharge power in kW
	P              lp.Vector // net grid-side power, P = PCh - PDis
	mode           lp.Vector // binary: 1 = charging allowed, 0 = discharging allowed
}

func NewBattery(name string, horizon int, dt float64, spec config.BatterySpec) *Battery {
	return &Battery{
		BatterySpec: spec,
		name:        name,
		horizon:     horizon,
		dt:          dt,
		initial:     spec.GetInitialCharge(),
		terminal:    spec.GetTerminalCharge(),
		drain:       make([]float64, horizon),
	}
}

func (b *Battery) Name() string { return b.name }

func (b *Battery) Horizon() int { return b.horizon }

// SetInitialCharge updates E_0 for the next solve (rolling horizon).
func (b *Battery) SetInitialCharge(kwh float64) {
	b.initial = kwh
	if b.e0 != nil {
		b.e0.SetAt(0, kwh)
	}
}

// SetTerminalCharge updates the terminal state-of-charge floor.
func (b *Battery) SetTerminalCharge(kwh float64) {
	b.terminal = kwh
	if b.eT != nil {
		b.eT.SetAt(0, kwh)
	}
}

// SetDrain replaces the per-step external energy drain in kWh. The EV
// uses this for trip consumption; a plain battery normally leaves it
// at zero.
func (b *Battery) SetDrain(kwh []float64) error {
	if len(kwh) != b.horizon {
		return fmt.Errorf("hems: battery %s has horizon %d, got drain of length %d", b.name, b.horizon, len(kwh))
	}
	copy(b.drain, kwh)
	if b.drainP != nil {
		b.drainP.Set(b.drain)
	}
	return nil
}

func (b *Battery) build(prob *lp.Problem) {
	b.E = prob.NewVector(b.name+"_SoC_kWh", b.horizon+1)
	b.PCh = prob.NewVector(b.name+"_P_ch_kW", b.horizon)
	b.PDis = prob.NewVector(b.name+"_P_dis_kW", b.horizon)
	b.P = prob.NewFreeVector(b.name+"_P_kW", b.horizon)
	b.mode = prob.NewBinaryVector(b.name+"_mode", b.horizon)
	b.e0 = prob.NewScalarParam(b.name+"_E0_kWh", b.initial)
	b.eT = prob.NewScalarParam(b.name+"_ET_kWh", b.terminal)
	b.drainP = prob.NewParam(b.name+"_drain_kWh", b.horizon)
	b.drainP.Set(b.drain)
}

func (b *Battery) constraints() []lp.Constraint {
	etaCh := b.GetChargeEfficiency()
	etaDis := b.GetDischargeEfficiency()

	cs := make([]lp.Constraint, 0, 6*b.horizon+3)

	// Initial condition
	cs = append(cs, lp.Eq([]lp.Term{b.E.Term(0, 1)}, lp.FromParam(b.e0, 0, 1)))

	for t := 0; t < b.horizon; t++ {
		// State-of-charge recursion; the drain sits on the right-hand
		// side so it stays a pure parameter update between solves.
		cs = append(cs, lp.Eq(
			[]lp.Term{
				b.E.Term(t+1, 1),
				b.E.Term(t, -1),
				b.PCh.Term(t, -b.dt*etaCh),
				b.PDis.Term(t, b.dt/etaDis),
			},
			lp.FromParam(b.drainP, t, -1)))

		// Power limits gated by the binary mode:
		//   P_ch[t]  <= maxCharge * mode[t]
		//   P_dis[t] <= maxDischarge * (1 - mode[t])
		cs = append(cs, lp.LessEq(
			[]lp.Term{b.PCh.Term(t, 1), b.mode.Term(t, -b.MaxChargeRate)},
			lp.Const(0)))
		cs = append(cs, lp.LessEq(
			[]lp.Term{b.PDis.Term(t, 1), b.mode.Term(t, b.MaxDischargeRate)},
			lp.Const(b.MaxDischargeRate)))

		// Net power linkage (positive = consuming from the grid side)
		cs = append(cs, lp.Eq(
			[]lp.Term{b.P.Term(t, 1), b.PCh.Term(t, -1), b.PDis.Term(t, 1)},
			lp.Const(0)))
	}

	// Energy bounds; the lower bound is implied by the declaration
	for t := 0; t <= b.horizon; t++ {
		cs = append(cs, lp.LessEq([]lp.Term{b.E.Term(t, 1)}, lp.Const(b.Capacity)))
	}

	// Terminal state of charge is a floor, not an equality: ending
	// above target is allowed at no penalty.
	cs = append(cs, lp.GreaterEq([]lp.Term{b.E.Term(b.horizon, 1)}, lp.FromParam(b.eT, 0, 1)))

	return cs
}

func (b *Battery) powerAt(t int) ([]lp.Term, []lp.Coeff) {
	return []lp.Term{b.P.Term(t, 1)}, nil
}

// Power returns the realized net power trajectory in kW.
func (b *Battery) Power() []float64 { return b.P.Value() }

// Charge returns the realized state of charge in kWh, horizon+1 values.
func (b *Battery) Charge() []float64 { return b.E.Value() }

// ChargePower returns the realized charging power in kW.
func (b *Battery) ChargePower() []float64 { return b.PCh.Value() }

// DischargePower returns the realized discharging power in kW.
func (b *Battery) DischargePower() []float64 { return b.PDis.Value() }

// CurrentInitialCharge returns the E_0 configured for the next solve.
func (b *Battery) CurrentInitialCharge() float64 { return b.initial }
