package hems

import (
	"fmt"

	"github.com/angas/hems-go/lp"
)

// Solar is a PV array. Its maximum available AC power comes from an
// external physical model (a precomputed series, never negative). In
// fixed mode the injected power equals that ceiling; in curtailable
// mode the optimizer may spill generation down to zero when consuming
// or exporting it is not worthwhile.
type Solar struct {
	name        string
	horizon     int
	curtailable bool

	maxPower []float64
	pmax     *lp.Param
	p        lp.Vector // injected power, curtailable mode only
}

func NewSolar(name string, horizon int, curtailable bool) *Solar {
	return &Solar{
		name:        name,
		horizon:     horizon,
		curtailable: curtailable,
		maxPower:    make([]float64, horizon),
	}
}

func (s *Solar) Name() string { return s.name }

func (s *Solar) Horizon() int { return s.horizon }

func (s *Solar) Curtailable() bool { return s.curtailable }

// SetMaxPower replaces the generation ceiling in kW. Negative values
// are clamped to zero at the source.
func (s *Solar) SetMaxPower(series []float64) error {
	if len(series) != s.horizon {
		return fmt.Errorf("hems: solar %s has horizon %d, got series of length %d", s.name, s.horizon, len(series))
	}
	for t, v := range series {
		s.maxPower[t] = max(v, 0)
	}
	if s.pmax != nil {
		s.pmax.Set(s.maxPower)
	}
	return nil
}

// MaxPower returns the current generation ceiling in kW.
func (s *Solar) MaxPower() []float64 {
	out := make([]float64, s.horizon)
	copy(out, s.maxPower)
	return out
}

func (s *Solar) build(prob *lp.Problem) {
	s.pmax = prob.NewParam(s.name+"_Pmax_kW", s.horizon)
	s.pmax.Set(s.maxPower)
	if s.curtailable {
		s.p = prob.NewVector(s.name+"_P_kW", s.horizon)
	}
}

func (s *Solar) constraints() []lp.Constraint {
	if !s.curtailable {
		return nil
	}
	// 0 <= P is implied by the declaration
	cs := make([]lp.Constraint, 0, s.horizon)
	for t := 0; t < s.horizon; t++ {
		cs = append(cs, lp.LessEq([]lp.Term{s.p.Term(t, 1)}, lp.FromParam(s.pmax, t, 1)))
	}
	return cs
}

func (s *Solar) powerAt(t int) ([]lp.Term, []lp.Coeff) {
	if s.curtailable {
		return []lp.Term{s.p.Term(t, 1)}, nil
	}
	return nil, []lp.Coeff{lp.FromParam(s.pmax, t, 1)}
}

// Power returns the realized injected power in kW.
func (s *Solar) Power() []float64 {
	if s.curtailable {
		return s.p.Value()
	}
	return s.MaxPower()
}
