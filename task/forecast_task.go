package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/convert"
	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/types"
)

// NewForecastTask builds the energy forecast from the weather
// forecast: PV production scales with irradiance, consumption follows
// the configured base-load profile, and the outdoor temperature is
// passed through for the heat-pump model.
func NewForecastTask(logger *slog.Logger, db *database.Database, weather types.WeatherProvider, cnfg config.ForecastSpec) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if needImmediateForecastUpdate(ctx, db) {
		logger.Info("need an immediate update of the energy forecast")
		runForecastTask(logger, db, weather, cnfg)
	} else {
		logger.Debug("no need for immediate update of the energy forecast")
	}

	return func() {
		runForecastTask(logger, db, weather, cnfg)
	}
}

func runForecastTask(logger *slog.Logger, db *database.Database, weather types.WeatherProvider, cnfg config.ForecastSpec) {
	logger.Debug("running forecast task...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fc, err := weather.GetForecast(ctx)
	if err != nil {
		logger.Error("forecast task error", slog.Any("error", err))
		return
	}

	rows := make([]database.EnergyForecastRow, 0, len(fc))
	for _, wh := range fc {
		dh := hours.FromTime(wh.Hour)
		rows = append(rows, database.EnergyForecastRow{
			When:        dh,
			Consumption: cnfg.GetBaseLoadAt(int(dh.Hour)),
			Production:  convert.WhM2ToKW(wh.Irradiance, cnfg.PVPeakPower),
			Temperature: wh.Temperature,
		})
	}

	if err := db.SaveEnergyForecasts(ctx, rows); err != nil {
		logger.Error("forecast task error", slog.Any("error", err))
		return
	}

	logger.Info("forecast task done", slog.Int("noOfHoursUpdated", len(rows)))
}

func needImmediateForecastUpdate(ctx context.Context, db *database.Database) bool {
	dh := hours.FromNow().Add(12)
	if _, err := db.GetEnergyForecastForHour(ctx, dh); err != nil {
		return true
	}
	return false
}
