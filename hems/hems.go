package hems

import (
	"fmt"
	"strings"

	"github.com/angas/hems-go/calc"
	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/lp"
)

// Objective selects what the dispatch optimizes for.
type Objective string

const (
	// ObjectiveCost minimizes the total electricity bill.
	ObjectiveCost Objective = "cost"
	// ObjectiveSelfConsumption maximizes locally consumed PV energy.
	ObjectiveSelfConsumption Objective = "self_consumption"
	// ObjectiveSelfReliance minimizes total grid import.
	ObjectiveSelfReliance Objective = "self_reliance"
)

func ParseObjective(s string) (Objective, error) {
	switch Objective(strings.ToLower(strings.TrimSpace(s))) {
	case "", ObjectiveCost:
		return ObjectiveCost, nil
	case ObjectiveSelfConsumption:
		return ObjectiveSelfConsumption, nil
	case ObjectiveSelfReliance:
		return ObjectiveSelfReliance, nil
	}
	return "", fmt.Errorf("hems: unknown objective %q", s)
}

const (
	// DefaultStepHours is the step duration when none is given (15 min).
	DefaultStepHours = 0.25

	// cyclePenalty is a small battery throughput cost in EUR/kWh added
	// to every objective. It stands in for degradation and keeps the
	// optimizer from degenerate charge/discharge oscillation that
	// would otherwise be objective-neutral.
	cyclePenalty = 0.005
)

// Input collects the components and economics of one household
// problem. All component lists are optional; the horizon is inferred
// from the first component found when not given explicitly.
type Input struct {
	Horizon   int     // number of steps, 0 = infer from components
	StepHours float64 // step duration in hours, 0 = DefaultStepHours

	Loads   []Load
	PVs     []*Solar
	EVs     []*EV
	Battery *Battery

	// Prices is the day-ahead spot price series in EUR/kWh, before any
	// supplier markup, taxes or VAT. May be left nil and set later
	// with SetPrices.
	Prices  []float64
	Economy config.EconomySpec

	Objective Objective // "" = ObjectiveCost
}

// Result of one solve.
type Result struct {
	Status    lp.Status
	Objective float64 // objective value in the chosen mode's unit
	// Breakdown is recomputed from the realized trajectories and the
	// current economic parameters, independent of the objective mode.
	Breakdown  calc.Breakdown
	GridImport []float64 // kW per step
	GridExport []float64 // kW per step
}

// System owns one compiled household dispatch problem. Between solves
// only parameters (prices, forecasts, initial conditions, trips) may
// change; the variable and constraint structure is fixed for the
// lifetime of the instance, which is what keeps re-solves cheap.
//
// A System is not safe for concurrent use; parallel scenarios need
// independent instances.
type System struct {
	horizon   int
	dt        float64
	loads     []Load
	pvs       []*Solar
	evs       []*EV
	battery   *Battery
	eco       config.EconomySpec
	objective Objective

	prob       *lp.Problem
	price      *lp.Param
	pImp, pExp lp.Vector

	last *Result
}

// New assembles and compiles the dispatch problem. Horizon mismatches,
// an unknown objective, and structural defects of the assembled
// problem are all construction-time errors.
func New(in Input) (*System, error) {
	objective, err := ParseObjective(string(in.Objective))
	if err != nil {
		return nil, err
	}

	dt := in.StepHours
	if dt == 0 {
		dt = DefaultStepHours
	}
	if dt < 0 {
		return nil, fmt.Errorf("hems: negative step duration %f", dt)
	}

	s := &System{
		horizon:   in.Horizon,
		dt:        dt,
		loads:     in.Loads,
		pvs:       in.PVs,
		evs:       in.EVs,
		battery:   in.Battery,
		eco:       in.Economy,
		objective: objective,
	}

	type horizoner interface {
		Name() string
		Horizon() int
	}
	var components []horizoner
	for _, l := range s.loads {
		components = append(components, l)
	}
	for _, pv := range s.pvs {
		components = append(components, pv)
	}
	for _, ev := range s.evs {
		components = append(components, ev)
	}
	if s.battery != nil {
		components = append(components, s.battery)
	}

	if s.horizon == 0 {
		if len(components) == 0 {
			return nil, fmt.Errorf("hems: cannot infer horizon, no components given")
		}
		s.horizon = components[0].Horizon()
	}
	for _, c := range components {
		if c.Horizon() != s.horizon {
			return nil, fmt.Errorf("hems: component %s has horizon %d, expected %d", c.Name(), c.Horizon(), s.horizon)
		}
	}

	s.prob = lp.NewProblem()
	s.price = s.prob.NewParam("spot_EUR_kWh", s.horizon)
	if in.Prices != nil {
		if len(in.Prices) != s.horizon {
			return nil, fmt.Errorf("hems: got %d prices for horizon %d", len(in.Prices), s.horizon)
		}
		s.price.Set(in.Prices)
	}

	// Grid power split, both directions non-negative. Simultaneous
	// import and export is not forbidden by a hard constraint; the
	// price asymmetry plus the cycling penalty make it non-optimal.
	s.pImp = s.prob.NewVector("P_import_kW", s.horizon)
	s.pExp = s.prob.NewVector("P_export_kW", s.horizon)

	for _, l := range s.loads {
		l.build(s.prob)
	}
	for _, pv := range s.pvs {
		pv.build(s.prob)
	}
	for _, ev := range s.evs {
		ev.build(s.prob)
	}
	if s.battery != nil {
		s.battery.build(s.prob)
	}

	s.prob.AddConstraints(s.balance()...)
	for _, l := range s.loads {
		s.prob.AddConstraints(l.constraints()...)
	}
	for _, pv := range s.pvs {
		s.prob.AddConstraints(pv.constraints()...)
	}
	for _, ev := range s.evs {
		s.prob.AddConstraints(ev.constraints()...)
	}
	if s.battery != nil {
		s.prob.AddConstraints(s.battery.constraints()...)
	}

	sense, obj := s.buildObjective()
	s.prob.SetObjective(sense, obj)

	if err := s.prob.Compile(); err != nil {
		return nil, fmt.Errorf("hems: problem failed structural verification: %w", err)
	}
	return s, nil
}

// balance builds, per step,
//
//	P_import - P_export = sum(loads) + sum(EVs) + battery - sum(PVs)
//
// with variable contributions on the left and fixed (parameter)
// contributions on the right.
func (s *System) balance() []lp.Constraint {
	cs := make([]lp.Constraint, 0, s.horizon)
	for t := 0; t < s.horizon; t++ {
		terms := []lp.Term{s.pImp.Term(t, 1), s.pExp.Term(t, -1)}
		var rhs []lp.Coeff

		demand := func(l Load) {
			tt, cc := l.powerAt(t)
			for _, term := range tt {
				terms = append(terms, term.Scaled(-1))
			}
			rhs = append(rhs, cc...)
		}
		for _, l := range s.loads {
			demand(l)
		}
		for _, ev := range s.evs {
			demand(ev)
		}
		if s.battery != nil {
			demand(s.battery)
		}

		for _, pv := range s.pvs {
			tt, cc := pv.powerAt(t)
			terms = append(terms, tt...)
			for _, k := range cc {
				rhs = append(rhs, k.Scaled(-1))
			}
		}

		cs = append(cs, lp.Eq(terms, rhs...))
	}
	return cs
}

func (s *System) buildObjective() (lp.Sense, lp.Expr) {
	var obj lp.Expr

	// Battery cycling penalty, applied in every mode
	penalty := func(sign float64) {
		if s.battery == nil {
			return
		}
		for t := 0; t < s.horizon; t++ {
			obj.Add(
				s.battery.PCh.Term(t, sign*cyclePenalty*s.dt),
				s.battery.PDis.Term(t, sign*cyclePenalty*s.dt))
		}
	}

	switch s.objective {
	case ObjectiveCost:
		// import_price[t] = (spot[t] + procurement + tax) * (1 + vat)
		// export_price[t] = spot[t] + sell_back (or the import price
		// under net metering)
		vf := 1.0 + s.eco.VAT
		adder := (s.eco.ProcurementFee + s.eco.EnergyTax) * vf
		for t := 0; t < s.horizon; t++ {
			obj.Add(
				s.pImp.ParamTerm(t, s.price, t, s.dt*vf),
				s.pImp.Term(t, s.dt*adder))
			if s.eco.NetMetering {
				obj.Add(
					s.pExp.ParamTerm(t, s.price, t, -s.dt*vf),
					s.pExp.Term(t, -s.dt*adder))
			} else {
				obj.Add(
					s.pExp.ParamTerm(t, s.price, t, -s.dt),
					s.pExp.Term(t, -s.dt*s.eco.SellBackCredit))
			}
		}
		penalty(1)
		return lp.Minimize, obj

	case ObjectiveSelfConsumption:
		// max dt * (sum PV generation - sum export); curtailable PV
		// enters as a variable so generating and using it locally both
		// pay off, fixed PV only shifts the reported value.
		for t := 0; t < s.horizon; t++ {
			for _, pv := range s.pvs {
				tt, cc := pv.powerAt(t)
				for _, term := range tt {
					obj.Add(term.Scaled(s.dt))
				}
				for _, k := range cc {
					obj.AddConst(k.Scaled(s.dt))
				}
			}
			obj.Add(s.pExp.Term(t, -s.dt))
		}
		penalty(-1)
		return lp.Maximize, obj

	default: // ObjectiveSelfReliance
		for t := 0; t < s.horizon; t++ {
			obj.Add(s.pImp.Term(t, s.dt))
		}
		penalty(1)
		return lp.Minimize, obj
	}
}

// SetPrices replaces the spot price series for the next solve.
func (s *System) SetPrices(prices []float64) error {
	if len(prices) != s.horizon {
		return fmt.Errorf("hems: got %d prices for horizon %d", len(prices), s.horizon)
	}
	s.price.Set(prices)
	return nil
}

// Solve re-solves the compiled problem against the current parameter
// values. Options are passed through to the solver untouched. Any
// status that is not a recognized optimal outcome is returned as an
// error, never as a partial result.
func (s *System) Solve(opts lp.Options) (Result, error) {
	sol, err := s.prob.Solve(opts)
	if err != nil {
		return Result{Status: sol.Status}, fmt.Errorf("hems: solve: %w", err)
	}
	if !sol.Status.IsOptimal() {
		return Result{Status: sol.Status}, fmt.Errorf("hems: optimization failed: status=%s", sol.Status)
	}

	imp := s.pImp.Value()
	exp := s.pExp.Value()
	spot := s.price.Values()

	var bd calc.Breakdown
	if s.objective == ObjectiveCost {
		bd = calc.Cost(s.dt, imp, exp, spot,
			s.eco.ProcurementFee, s.eco.SellBackCredit, s.eco.EnergyTax, s.eco.VAT, s.eco.NetMetering)
	} else {
		// Raw spot costs only; fees and taxes are not part of these
		// objectives and would suggest precision that is not there.
		bd = calc.Cost(s.dt, imp, exp, spot, 0, 0, 0, 0, false)
	}

	res := Result{
		Status:     sol.Status,
		Objective:  sol.Objective,
		Breakdown:  bd,
		GridImport: imp,
		GridExport: exp,
	}
	s.last = &res
	return res, nil
}

// Step advances the rolling horizon after a solve: the battery and
// every EV get their initial state of charge set to the realized value
// one step ahead. Nothing else is touched; the caller updates
// forecasts and prices before the next Solve.
func (s *System) Step() error {
	if !s.prob.Solved() {
		return fmt.Errorf("hems: step before a successful solve")
	}
	if s.battery != nil {
		s.battery.SetInitialCharge(s.battery.E.At(1))
	}
	for _, ev := range s.evs {
		ev.SetInitialCharge(ev.E.At(1))
	}
	return nil
}

func (s *System) Horizon() int { return s.horizon }

func (s *System) StepHours() float64 { return s.dt }

func (s *System) ObjectiveMode() Objective { return s.objective }

// GridImport returns the realized import trajectory of the last solve.
func (s *System) GridImport() []float64 { return s.pImp.Value() }

// GridExport returns the realized export trajectory of the last solve.
func (s *System) GridExport() []float64 { return s.pExp.Value() }

// Summary renders a short human-readable account of the last solve,
// suitable for logs and the one-shot CLI.
func (s *System) Summary() string {
	if s.last == nil {
		return "no solution yet"
	}
	var b strings.Builder
	r := s.last
	fmt.Fprintf(&b, "status: %s\n", r.Status)
	fmt.Fprintf(&b, "objective (%s): %.4f\n", s.objective, r.Objective)
	var imp, exp float64
	for t := 0; t < s.horizon; t++ {
		imp += r.GridImport[t] * s.dt
		exp += r.GridExport[t] * s.dt
	}
	fmt.Fprintf(&b, "grid import: %.2f kWh (%.2f EUR)\n", imp, r.Breakdown.TotalImport)
	fmt.Fprintf(&b, "grid export: %.2f kWh (%.2f EUR)\n", exp, r.Breakdown.TotalExport)
	fmt.Fprintf(&b, "net cost: %.2f EUR\n", r.Breakdown.Net())
	if s.battery != nil {
		soc := s.battery.Charge()
		fmt.Fprintf(&b, "battery: %.2f -> %.2f kWh\n", soc[0], soc[len(soc)-1])
	}
	for _, ev := range s.evs {
		soc := ev.Charge()
		fmt.Fprintf(&b, "ev %s: %.2f -> %.2f kWh\n", ev.Name(), soc[0], soc[len(soc)-1])
	}
	return b.String()
}

// TotalPVGeneration sums all PV injection per step.
func (s *System) TotalPVGeneration() []float64 {
	total := make([]float64, s.horizon)
	for _, pv := range s.pvs {
		for t, v := range pv.Power() {
			total[t] += v
		}
	}
	return total
}

// TotalLoad sums all non-EV load consumption per step.
func (s *System) TotalLoad() []float64 {
	total := make([]float64, s.horizon)
	for _, l := range s.loads {
		for t, v := range l.Power() {
			total[t] += v
		}
	}
	return total
}

// TotalEVPower sums all EV net power per step.
func (s *System) TotalEVPower() []float64 {
	total := make([]float64, s.horizon)
	for _, ev := range s.evs {
		for t, v := range ev.Power() {
			total[t] += v
		}
	}
	return total
}
