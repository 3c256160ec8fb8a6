package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/angas/hems-go/convert"
	"github.com/angas/hems-go/hours"
)

type EnergyPriceRow struct {
	When  hours.DateHour
	Price float64 // EUR/kWh excluding VAT
}

func (d *Database) SaveEnergyPrices(ctx context.Context, rows []EnergyPriceRow) error {
	for _, row := range rows {
		_, err := d.write.ExecContext(ctx, `
			INSERT INTO energy_price (date, hour, price) VALUES (?, ?, ?)
			ON CONFLICT(date, hour) DO UPDATE SET price = excluded.price`,
			row.When.Date,
			row.When.Hour,
			convert.RoundFloat64(row.Price, 4))
		if err != nil {
			return fmt.Errorf("saving energy price for %s: %w", row.When, err)
		}
	}
	return nil
}

func (d *Database) GetEnergyPriceForHour(ctx context.Context, dh hours.DateHour) (EnergyPriceRow, error) {
	row := d.read.QueryRowContext(ctx, `SELECT
		date, hour, price
		FROM energy_price
		WHERE date = ? AND hour = ?`,
		dh.Date, dh.Hour)

	var ep EnergyPriceRow
	err := row.Scan(&ep.When.Date, &ep.When.Hour, &ep.Price)
	if err == sql.ErrNoRows {
		return EnergyPriceRow{}, sql.ErrNoRows
	}
	if err != nil {
		return EnergyPriceRow{}, fmt.Errorf("scanning energy price row: %w", err)
	}

	return ep, nil
}

func (d *Database) GetEnergyPricesFrom(ctx context.Context, dh hours.DateHour) ([]EnergyPriceRow, error) {
	rows, err := d.read.QueryContext(ctx, `SELECT
		date, hour, price
		FROM energy_price
		WHERE (date = ? AND hour >= ?) OR date > ?
		ORDER BY date, hour ASC`,
		dh.Date, dh.Hour, dh.Date)
	if err != nil {
		return nil, fmt.Errorf("fetching energy prices from %s: %w", dh, err)
	}
	defer rows.Close()

	var energyPrices []EnergyPriceRow
	for rows.Next() {
		var ep EnergyPriceRow
		err := rows.Scan(&ep.When.Date, &ep.When.Hour, &ep.Price)
		if err != nil {
			return nil, fmt.Errorf("scanning energy price row: %w", err)
		}
		energyPrices = append(energyPrices, ep)
	}

	return energyPrices, rows.Err()
}

func (d *Database) PurgeEnergyPrice(ctx context.Context, retentionDays int) error {
	return d.purgeTable(ctx, "energy_price", retentionDays)
}
