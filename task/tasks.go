package task

import (
	"context"
	"log/slog"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/types"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	EnergyPriceTask func()
	ForecastTask    func()
	PlanningTask    func()
	MaintenanceTask func()
}

func NewTasks(
	db *database.Database,
	planner *Planner,
	priceProviders []types.EnergyPriceProvider,
	weather types.WeatherProvider,
	onPlanned func(PlanResult),
	cnfg *config.AppConfig,
) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		EnergyPriceTask: NewEnergyPriceTask(logger.With(slog.String("task", "energy_price")), db, priceProviders),
		ForecastTask:    NewForecastTask(logger.With(slog.String("task", "forecast")), db, weather, cnfg.Forecast),
		PlanningTask:    NewPlanningTask(logger.With(slog.String("task", "planning")), db, planner, onPlanned),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
}

func (t *Tasks) Run() {
	// Day-ahead prices are published mid-afternoon CET, fetch twice in
	// case the first attempt is early.
	_, err := t.cron.AddFunc(cronOrDefault(t.cnfg.Prices.RunAt, "10 13,15 * * *"), t.EnergyPriceTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc(cronOrDefault(t.cnfg.Forecast.RunAt, "20 */3 * * *"), t.ForecastTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc(cronOrDefault(t.cnfg.Planner.RunAt, "55 * * * *"), t.PlanningTask)
	if err != nil {
		panic(err)
	}
	_, err = t.cron.AddFunc("30 2 * * *", t.MaintenanceTask)
	if err != nil {
		panic(err)
	}
	t.cron.Start()
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}

func cronOrDefault(expr, def string) string {
	if expr == "" {
		return def
	}
	return expr
}
