package hems

import (
	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/lp"
)

// Trip is one planned absence: the vehicle leaves at step Departure,
// is back at step Arrival and consumes Energy kWh while away.
type Trip struct {
	Departure int
	Arrival   int
	Energy    float64
}

// EV composes a battery state record with an availability series and a
// trip schedule. Charging and discharging are only possible while the
// vehicle is at home; trip consumption is injected as a drain at the
// departure step.
type EV struct {
	Battery

	availability []float64 // 1 = at home, 0 = away
	avail        *lp.Param
}

func NewEV(name string, horizon int, dt float64, spec config.BatterySpec) *EV {
	ev := &EV{Battery: *NewBattery(name, horizon, dt, spec)}
	ev.availability = make([]float64, horizon)
	for t := range ev.availability {
		ev.availability[t] = 1
	}
	return ev
}

// ScheduleTrips resets the drain and availability to their defaults and
// applies the given trips. A departure step outside [0, horizon) is
// silently ignored; overlapping trips overwrite each other
// (last write wins). The arrival step is exclusive and clamped to the
// horizon.
func (ev *EV) ScheduleTrips(trips []Trip) {
	drain := make([]float64, ev.horizon)
	for t := range ev.availability {
		ev.availability[t] = 1
	}

	for _, trip := range trips {
		if trip.Departure < 0 || trip.Departure >= ev.horizon {
			continue
		}
		drain[trip.Departure] = trip.Energy
		arrival := min(trip.Arrival, ev.horizon)
		for t := trip.Departure; t < arrival; t++ {
			ev.availability[t] = 0
		}
	}

	// Horizon already validated, SetDrain cannot fail here
	_ = ev.SetDrain(drain)
	if ev.avail != nil {
		ev.avail.Set(ev.availability)
	}
}

// Availability returns the current availability series (1 = at home).
func (ev *EV) Availability() []float64 {
	out := make([]float64, len(ev.availability))
	copy(out, ev.availability)
	return out
}

func (ev *EV) build(prob *lp.Problem) {
	ev.Battery.build(prob)
	ev.avail = prob.NewParam(ev.name+"_availability", ev.horizon)
	ev.avail.Set(ev.availability)
}

func (ev *EV) constraints() []lp.Constraint {
	cs := ev.Battery.constraints()

	// Availability gates expressed against the numeric series, never
	// as a product of two decision quantities:
	//   P_ch[t]  <= maxCharge * a[t]
	//   P_dis[t] <= maxDischarge * a[t]
	// With a[t] = 0 both powers are pinned to zero.
	for t := 0; t < ev.horizon; t++ {
		cs = append(cs, lp.LessEq(
			[]lp.Term{ev.PCh.Term(t, 1)},
			lp.FromParam(ev.avail, t, ev.MaxChargeRate)))
		cs = append(cs, lp.LessEq(
			[]lp.Term{ev.PDis.Term(t, 1)},
			lp.FromParam(ev.avail, t, ev.MaxDischargeRate)))
	}
	return cs
}
