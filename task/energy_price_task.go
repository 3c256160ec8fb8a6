package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/types"
)

func NewEnergyPriceTask(logger *slog.Logger, db *database.Database, providers []types.EnergyPriceProvider) func() {
	if len(providers) == 0 {
		panic("no energy price providers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if needImmediateEnergyPriceUpdate(ctx, db) {
		logger.Info("need an immediate update of energy prices")
		runEnergyPriceTask(logger, db, providers)
	} else {
		logger.Debug("no need for immediate update of energy prices")
	}

	return func() { runEnergyPriceTask(logger, db, providers) }
}

func runEnergyPriceTask(logger *slog.Logger, db *database.Database, providers []types.EnergyPriceProvider) {
	logger.Debug("running energy price task...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Providers are tried in configured order; the first one that
	// answers wins.
	var rows []database.EnergyPriceRow
	for i, provider := range providers {
		prices, err := provider.GetEnergyPrices(ctx)
		if err != nil {
			logger.Warn("energy price provider failed",
				slog.Int("provider", i), slog.Any("error", err))
			continue
		}
		rows = make([]database.EnergyPriceRow, len(prices))
		for j, ep := range prices {
			rows[j] = database.EnergyPriceRow{When: ep.Hour, Price: ep.Price}
		}
		break
	}

	if len(rows) == 0 {
		logger.Error("energy price task error, no provider delivered prices")
		return
	}

	err := db.SaveEnergyPrices(ctx, rows)
	if err != nil {
		logger.Error("energy price task error", slog.Any("error", err))
		return
	}

	logger.Info("energy price task done", slog.Int("noOfHoursUpdated", len(rows)))
}

func needImmediateEnergyPriceUpdate(ctx context.Context, db *database.Database) bool {
	dh := hours.FromNow().Add(12)
	if _, err := db.GetEnergyPriceForHour(ctx, dh); err != nil {
		return true
	}
	return false
}
