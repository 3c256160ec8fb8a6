package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/task"
)

// NewSummaryHandler reports the outcome of the most recent solve plus
// the dispatch planned for the current hour.
func NewSummaryHandler(logger *slog.Logger, db *database.Database, planner *task.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		hour := hours.FromNow()
		current, err := db.GetPlanForHour(r.Context(), hour)
		if err != nil {
			logger.Warn("no plan for current hour", slog.String("hour", hour.String()), slog.Any("error", err))
			current = nil
		}

		data := struct {
			Horizon     int                `json:"horizon"`
			HoursAhead  int                `json:"hoursAhead"`
			Summary     string             `json:"summary"`
			CurrentHour []database.PlanRow `json:"currentHour,omitempty"`
		}{
			Horizon:     planner.Horizon(),
			HoursAhead:  planner.HoursAhead(),
			Summary:     planner.Summary(),
			CurrentHour: current,
		}

		writeJSON(logger, w, data)
	}
}
