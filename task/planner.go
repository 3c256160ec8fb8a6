package task

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hems"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/lp"
)

// Planner owns the compiled dispatch problem and the components built
// from the configuration. The problem is assembled once at startup;
// every planning run only moves parameter values (prices, forecasts,
// state of charge) and re-solves.
type Planner struct {
	mu   sync.Mutex
	cnfg *config.AppConfig
	sys  *hems.System

	base *hems.FixedLoad
	hp   *hems.HeatPump
	pv   *hems.Solar
	batt *hems.Battery
	ev   *hems.EV

	horizon      int
	dt           float64
	stepsPerHour int
	hoursAhead   int
}

// PlanResult is what one planning run produces: the rows to persist
// plus the solver outcome for logging and broadcasting.
type PlanResult struct {
	Rows   []database.PlanRow
	Solved hems.Result
}

func NewPlanner(cnfg *config.AppConfig) (*Planner, error) {
	horizon := cnfg.Planner.Horizon
	if horizon <= 0 {
		return nil, fmt.Errorf("planner horizon must be positive, got %d", horizon)
	}
	dt := cnfg.Planner.GetStepHours()
	stepsPerHour := int(math.Round(1 / dt))
	if dt > 1 || stepsPerHour < 1 || math.Abs(float64(stepsPerHour)*dt-1) > 1e-9 {
		return nil, fmt.Errorf("step duration %v must evenly divide one hour", dt)
	}

	p := &Planner{
		cnfg:         cnfg,
		horizon:      horizon,
		dt:           dt,
		stepsPerHour: stepsPerHour,
		hoursAhead:   (horizon + stepsPerHour - 1) / stepsPerHour,
	}

	p.base = hems.NewFixedLoad("base_load", make([]float64, horizon))

	in := hems.Input{
		Horizon:   horizon,
		StepHours: dt,
		Loads:     []hems.Load{p.base},
		Objective: hems.Objective(cnfg.Planner.Objective),
	}

	if spec := cnfg.HeatPump; spec != nil {
		p.hp = hems.NewHeatPump("heat_pump", dt, *spec, make([]float64, horizon))
		in.Loads = append(in.Loads, p.hp)
	}
	if spec := cnfg.Solar; spec != nil {
		p.pv = hems.NewSolar("pv", horizon, spec.Curtailable)
		in.PVs = []*hems.Solar{p.pv}
	}
	if spec := cnfg.Battery; spec != nil {
		p.batt = hems.NewBattery("battery", horizon, dt, *spec)
		in.Battery = p.batt
	}
	if spec := cnfg.EV; spec != nil {
		p.ev = hems.NewEV("ev", horizon, dt, spec.BatterySpec)
		trips := make([]hems.Trip, len(spec.Trips))
		for i, tr := range spec.Trips {
			trips[i] = hems.Trip{Departure: tr.Departure, Arrival: tr.Arrival, Energy: tr.Energy}
		}
		p.ev.ScheduleTrips(trips)
		in.EVs = []*hems.EV{p.ev}
	}

	eco, err := cnfg.Economy.Resolved()
	if err != nil {
		return nil, fmt.Errorf("resolve economy: %w", err)
	}
	in.Economy = eco

	sys, err := hems.New(in)
	if err != nil {
		return nil, fmt.Errorf("assemble dispatch problem: %w", err)
	}
	p.sys = sys

	return p, nil
}

func (p *Planner) Horizon() int    { return p.horizon }
func (p *Planner) HoursAhead() int { return p.hoursAhead }

// Summary proxies the last solve's summary for the API layer.
func (p *Planner) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sys.Summary()
}

// Plan runs one rolling-horizon iteration: pull prices and forecasts
// for the hours the horizon covers, update the problem parameters,
// solve, and advance the initial state of charge one step. Missing
// prices or forecasts abort the run, a stale plan is better than one
// built on made-up inputs.
func (p *Planner) Plan(ctx context.Context, db *database.Database, startHour hours.DateHour) (PlanResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prices := make([]float64, p.hoursAhead)
	consumption := make([]float64, p.hoursAhead)
	production := make([]float64, p.hoursAhead)
	temperature := make([]float64, p.hoursAhead)

	for h := 0; h < p.hoursAhead; h++ {
		hour := startHour.Add(h)

		ep, err := db.GetEnergyPriceForHour(ctx, hour)
		if err == sql.ErrNoRows {
			return PlanResult{}, fmt.Errorf("no energy price for %s", hour)
		}
		if err != nil {
			return PlanResult{}, fmt.Errorf("getting energy price for %s: %w", hour, err)
		}
		prices[h] = ep.Price

		ef, err := db.GetEnergyForecastForHour(ctx, hour)
		if err == sql.ErrNoRows {
			return PlanResult{}, fmt.Errorf("no energy forecast for %s", hour)
		}
		if err != nil {
			return PlanResult{}, fmt.Errorf("getting energy forecast for %s: %w", hour, err)
		}
		consumption[h] = ef.Consumption
		production[h] = ef.Production
		temperature[h] = ef.Temperature
	}

	if err := p.sys.SetPrices(p.expand(prices)); err != nil {
		return PlanResult{}, err
	}
	if err := p.base.SetProfile(p.expand(consumption)); err != nil {
		return PlanResult{}, err
	}
	if p.pv != nil {
		if err := p.pv.SetMaxPower(p.expand(production)); err != nil {
			return PlanResult{}, err
		}
	}
	if p.hp != nil {
		if err := p.hp.Recompute(p.expand(temperature)); err != nil {
			return PlanResult{}, err
		}
	}

	res, err := p.sys.Solve(lp.Options{
		Tol:      p.cnfg.Planner.SolverTolerance,
		MaxNodes: p.cnfg.Planner.SolverMaxNodes,
	})
	if err != nil {
		return PlanResult{Solved: res}, err
	}

	rows := make([]database.PlanRow, p.horizon)
	for t := 0; t < p.horizon; t++ {
		rows[t] = database.PlanRow{
			When:       startHour.Add(t / p.stepsPerHour),
			Slot:       t % p.stepsPerHour,
			GridImport: res.GridImport[t],
			GridExport: res.GridExport[t],
		}
		if p.batt != nil {
			rows[t].BatteryPower = p.batt.Power()[t]
			rows[t].BatterySoC = p.batt.Charge()[t]
		}
		if p.ev != nil {
			rows[t].EVPower = p.ev.Power()[t]
		}
	}

	if err := p.sys.Step(); err != nil {
		return PlanResult{Rows: rows, Solved: res}, err
	}

	return PlanResult{Rows: rows, Solved: res}, nil
}

// expand stretches an hourly series over the planning steps.
func (p *Planner) expand(hourly []float64) []float64 {
	out := make([]float64, p.horizon)
	for t := 0; t < p.horizon; t++ {
		out[t] = hourly[t/p.stepsPerHour]
	}
	return out
}
