package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/angas/hems-go/convert"
	"github.com/angas/hems-go/hours"
)

// EnergyForecastRow carries the per-hour planning inputs that are not
// prices: the expected base load, the PV generation ceiling and the
// outdoor temperature driving the heat-pump model.
type EnergyForecastRow struct {
	When        hours.DateHour
	Consumption float64 // kW
	Production  float64 // kW
	Temperature float64 // °C
}

func (d *Database) SaveEnergyForecasts(ctx context.Context, rows []EnergyForecastRow) error {
	for _, row := range rows {
		_, err := d.write.ExecContext(ctx, `
			INSERT INTO energy_forecast (date, hour, consumption, production, temperature)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(date, hour) DO UPDATE SET
				consumption = excluded.consumption,
				production = excluded.production,
				temperature = excluded.temperature`,
			row.When.Date,
			row.When.Hour,
			convert.RoundFloat64(row.Consumption, 3),
			convert.RoundFloat64(row.Production, 3),
			convert.RoundFloat64(row.Temperature, 2))
		if err != nil {
			return fmt.Errorf("saving energy forecast for %s: %w", row.When, err)
		}
	}
	return nil
}

func (d *Database) GetEnergyForecastForHour(ctx context.Context, dh hours.DateHour) (EnergyForecastRow, error) {
	row := d.read.QueryRowContext(ctx, `SELECT
		date, hour, consumption, production, temperature
		FROM energy_forecast
		WHERE date = ? AND hour = ?`,
		dh.Date, dh.Hour)

	var ef EnergyForecastRow
	err := row.Scan(&ef.When.Date, &ef.When.Hour, &ef.Consumption, &ef.Production, &ef.Temperature)
	if err == sql.ErrNoRows {
		return EnergyForecastRow{}, sql.ErrNoRows
	}
	if err != nil {
		return EnergyForecastRow{}, fmt.Errorf("scanning energy forecast row: %w", err)
	}

	return ef, nil
}

func (d *Database) GetEnergyForecastsFrom(ctx context.Context, dh hours.DateHour) ([]EnergyForecastRow, error) {
	rows, err := d.read.QueryContext(ctx, `SELECT
		date, hour, consumption, production, temperature
		FROM energy_forecast
		WHERE (date = ? AND hour >= ?) OR date > ?
		ORDER BY date, hour ASC`,
		dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching energy forecasts from %s: %w", dh, err)
	}
	defer rows.Close()

	var forecasts []EnergyForecastRow
	for rows.Next() {
		var ef EnergyForecastRow
		err := rows.Scan(&ef.When.Date, &ef.When.Hour, &ef.Consumption, &ef.Production, &ef.Temperature)
		if err != nil {
			return nil, fmt.Errorf("scanning energy forecast row: %w", err)
		}
		forecasts = append(forecasts, ef)
	}

	return forecasts, rows.Err()
}

func (d *Database) PurgeEnergyForecast(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "energy_forecast", retentionDays)
}
