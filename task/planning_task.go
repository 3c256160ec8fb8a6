package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
)

// NewPlanningTask wires the rolling-horizon planner into a cron
// callable. onPlanned (optional) is invoked after a successful run,
// the www layer uses it to push the fresh plan to websocket clients.
func NewPlanningTask(logger *slog.Logger, db *database.Database, planner *Planner, onPlanned func(PlanResult)) func() {
	return func() {
		logger.Debug("running planning task...")
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		startHour := hours.FromNow().Add(1)

		result, err := planner.Plan(ctx, db, startHour)
		if err != nil {
			logger.Error("planning task error", slog.String("hour", startHour.String()), slog.Any("error", err))
			return
		}

		if err := db.SavePlan(ctx, result.Rows); err != nil {
			logger.Error("planning task error, saving plan", slog.Any("error", err))
			return
		}

		if onPlanned != nil {
			onPlanned(result)
		}

		logger.Info("planning task done",
			slog.String("from", startHour.String()),
			slog.Int("steps", len(result.Rows)),
			slog.String("status", string(result.Solved.Status)),
			slog.Float64("netCost", result.Solved.Breakdown.Net()))
	}
}
