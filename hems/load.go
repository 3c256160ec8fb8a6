// Package hems models a household's electrical energy flows over a
// finite horizon and computes an optimal dispatch of the controllable
// assets (battery, EV, curtailable solar, flexible loads). Components
// contribute decision variables, parameters and linear constraints;
// the System assembles them into one mixed-integer linear problem that
// is compiled once and re-solved cheaply as forecasts change.
package hems

import (
	"fmt"

	"github.com/angas/hems-go/lp"
)

// Load is the capability shared by every component on the demand side
// of the power balance.
type Load interface {
	Name() string
	// Horizon is the number of discrete steps of the component. Every
	// component of one System must agree on it.
	Horizon() int
	// Power returns the realized grid-side power trajectory in kW
	// after a solve (positive = consuming).
	Power() []float64

	// build creates the component's variables and parameters in prob.
	build(prob *lp.Problem)
	// constraints returns the component's own constraint rows.
	constraints() []lp.Constraint
	// powerAt returns the step-t power contribution: variable parts as
	// terms, fixed parts as coefficients.
	powerAt(t int) ([]lp.Term, []lp.Coeff)
}

// FixedLoad is a demand component with a prescribed power profile. The
// profile is a parameter: it can be re-valued between solves without
// touching the compiled problem.
type FixedLoad struct {
	name    string
	horizon int
	profile []float64
	p       *lp.Param
}

// NewFixedLoad derives the horizon from the profile length.
func NewFixedLoad(name string, profile []float64) *FixedLoad {
	l := &FixedLoad{name: name, horizon: len(profile), profile: make([]float64, len(profile))}
	copy(l.profile, profile)
	return l
}

func (l *FixedLoad) Name() string { return l.name }

func (l *FixedLoad) Horizon() int { return l.horizon }

// SetProfile replaces the consumption profile. The length must match
// the horizon.
func (l *FixedLoad) SetProfile(profile []float64) error {
	if len(profile) != l.horizon {
		return fmt.Errorf("hems: load %s has horizon %d, got profile of length %d", l.name, l.horizon, len(profile))
	}
	copy(l.profile, profile)
	if l.p != nil {
		l.p.Set(l.profile)
	}
	return nil
}

func (l *FixedLoad) build(prob *lp.Problem) {
	l.p = prob.NewParam(l.name+"_P_kW", l.horizon)
	l.p.Set(l.profile)
}

func (l *FixedLoad) constraints() []lp.Constraint { return nil }

func (l *FixedLoad) powerAt(t int) ([]lp.Term, []lp.Coeff) {
	return nil, []lp.Coeff{lp.FromParam(l.p, t, 1)}
}

func (l *FixedLoad) Power() []float64 {
	out := make([]float64, l.horizon)
	copy(out, l.profile)
	return out
}

// FlexibleLoad is a demand component whose power trajectory is decided
// by the optimizer, optionally capped at MaxPower kW.
type FlexibleLoad struct {
	name     string
	horizon  int
	maxPower float64
	p        lp.Vector
}

// NewFlexibleLoad creates a controllable load. maxPower zero means no cap.
func NewFlexibleLoad(name string, horizon int, maxPower float64) *FlexibleLoad {
	return &FlexibleLoad{name: name, horizon: horizon, maxPower: maxPower}
}

func (l *FlexibleLoad) Name() string { return l.name }

func (l *FlexibleLoad) Horizon() int { return l.horizon }

func (l *FlexibleLoad) build(prob *lp.Problem) {
	l.p = prob.NewVector(l.name+"_P_kW", l.horizon)
}

func (l *FlexibleLoad) constraints() []lp.Constraint {
	if l.maxPower <= 0 {
		return nil
	}
	cs := make([]lp.Constraint, 0, l.horizon)
	for t := 0; t < l.horizon; t++ {
		cs = append(cs, lp.LessEq([]lp.Term{l.p.Term(t, 1)}, lp.Const(l.maxPower)))
	}
	return cs
}

func (l *FlexibleLoad) powerAt(t int) ([]lp.Term, []lp.Coeff) {
	return []lp.Term{l.p.Term(t, 1)}, nil
}

func (l *FlexibleLoad) Power() []float64 { return l.p.Value() }
