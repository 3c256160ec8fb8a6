package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/angas/hems-go/convert"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/types/maybe"
)

// PlanRow is one dispatch step of the latest optimization run. Slot
// subdivides the hour when the planning step is shorter than an hour
// (slot 2 at a 15-minute step means minutes 30 to 45).
type PlanRow struct {
	When         hours.DateHour
	Slot         int
	GridImport   float64 // kW
	GridExport   float64 // kW
	BatteryPower float64 // kW, positive = charging
	BatterySoC   float64 // kWh at the start of the step
	EVPower      float64 // kW, positive = charging
}

// DetailedPlanRow joins a plan step with the inputs it was planned
// against. Forecast and price may be missing when their rows were
// purged or never ingested.
type DetailedPlanRow struct {
	PlanRow
	EnergyPrice          maybe.Maybe[float64]
	ProductionEstimated  maybe.Maybe[float64]
	ConsumptionEstimated maybe.Maybe[float64]
	Temperature          maybe.Maybe[float64]
}

// SavePlan atomically replaces every stored step from the first row's
// hour onward. A re-plan always supersedes the old tail of the plan;
// already-executed steps stay untouched.
func (d *Database) SavePlan(ctx context.Context, rows []PlanRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start plan transaction: %w", err)
	}

	first := rows[0].When
	_, err = tx.ExecContext(ctx, `
		DELETE FROM plan
		WHERE (date = ? AND hour >= ?) OR date > ?`,
		first.Date, first.Hour, first.Date)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback plan delete: %w", rbErr)
		}
		return fmt.Errorf("deleting superseded plan rows: %w", err)
	}

	for _, row := range rows {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO plan (date, hour, slot, grid_import, grid_export, battery_power, battery_soc, ev_power)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.When.Date,
			row.When.Hour,
			row.Slot,
			convert.RoundFloat64(row.GridImport, 3),
			convert.RoundFloat64(row.GridExport, 3),
			convert.RoundFloat64(row.BatteryPower, 3),
			convert.RoundFloat64(row.BatterySoC, 3),
			convert.RoundFloat64(row.EVPower, 3))
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("rollback plan insert: %w", rbErr)
			}
			return fmt.Errorf("saving plan row for %s slot %d: %w", row.When, row.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit plan: %w", err)
	}
	return nil
}

func (d *Database) GetPlanForHour(ctx context.Context, dh hours.DateHour) ([]PlanRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT date, hour, slot, grid_import, grid_export, battery_power, battery_soc, ev_power
		FROM plan
		WHERE date = ? AND hour = ?
		ORDER BY slot ASC`,
		dh.Date, dh.Hour)
	if err != nil {
		return nil, fmt.Errorf("fetching plan for %s: %w", dh, err)
	}
	defer rows.Close()

	return scanPlanRows(rows)
}

func (d *Database) GetPlanFrom(ctx context.Context, dh hours.DateHour) ([]PlanRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT date, hour, slot, grid_import, grid_export, battery_power, battery_soc, ev_power
		FROM plan
		WHERE (date = ? AND hour >= ?) OR date > ?
		ORDER BY date, hour, slot ASC`,
		dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching plan from %s: %w", dh, err)
	}
	defer rows.Close()

	return scanPlanRows(rows)
}

func scanPlanRows(rows *sql.Rows) ([]PlanRow, error) {
	var res []PlanRow
	for rows.Next() {
		var row PlanRow
		err := rows.Scan(
			&row.When.Date,
			&row.When.Hour,
			&row.Slot,
			&row.GridImport,
			&row.GridExport,
			&row.BatteryPower,
			&row.BatterySoC,
			&row.EVPower)
		if err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

func (d *Database) GetDetailedPlanFrom(ctx context.Context, dh hours.DateHour) ([]DetailedPlanRow, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT
			pl.date,
			pl.hour,
			pl.slot,
			pl.grid_import,
			pl.grid_export,
			pl.battery_power,
			pl.battery_soc,
			pl.ev_power,
			ep.price as energy_price,
			ef.production as production_estimated,
			ef.consumption as consumption_estimated,
			ef.temperature
		FROM plan pl
		LEFT OUTER JOIN energy_price ep ON ep.date = pl.date AND ep.hour = pl.hour
		LEFT OUTER JOIN energy_forecast ef ON ef.date = pl.date AND ef.hour = pl.hour
		WHERE (pl.date > ?) OR (pl.date = ? AND pl.hour >= ?)
		ORDER BY pl.date, pl.hour, pl.slot ASC`,
		dh.Date, dh.Date, dh.Hour)
	if err != nil {
		return nil, fmt.Errorf("fetching detailed plan from %s: %w", dh, err)
	}
	defer rows.Close()

	var res []DetailedPlanRow
	for rows.Next() {
		var row DetailedPlanRow
		var price, production, consumption, temperature sql.NullFloat64
		err := rows.Scan(
			&row.When.Date,
			&row.When.Hour,
			&row.Slot,
			&row.GridImport,
			&row.GridExport,
			&row.BatteryPower,
			&row.BatterySoC,
			&row.EVPower,
			&price,
			&production,
			&consumption,
			&temperature)
		if err != nil {
			return nil, fmt.Errorf("scanning detailed plan row: %w", err)
		}
		row.EnergyPrice = maybe.SqlNull(price.Float64, price.Valid)
		row.ProductionEstimated = maybe.SqlNull(production.Float64, production.Valid)
		row.ConsumptionEstimated = maybe.SqlNull(consumption.Float64, consumption.Valid)
		row.Temperature = maybe.SqlNull(temperature.Float64, temperature.Valid)
		res = append(res, row)
	}

	return res, rows.Err()
}

func (d *Database) PurgePlan(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "plan", retentionDays)
}
