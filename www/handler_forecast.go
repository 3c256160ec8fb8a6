package www

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/slice"
)

type forecastPoint struct {
	Hour        string  `json:"hour"`
	Consumption float64 `json:"consumption"`
	Production  float64 `json:"production"`
	Temperature float64 `json:"temperature"`
}

// NewForecastHandler serves stored load and production forecasts.
// POST with a JSON body ingests externally computed series, POST with
// an empty body triggers an immediate refresh from the weather
// provider.
func NewForecastHandler(logger *slog.Logger, db *database.Database, task func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			from := hours.FromNow().Sub(intOrDefault(r.URL, "hours", 24))
			rows, err := db.GetEnergyForecastsFrom(r.Context(), from)
			if err != nil {
				logger.Error("handling forecast request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			writeJSON(logger, w, slice.Map(rows, func(row database.EnergyForecastRow) forecastPoint {
				return forecastPoint{
					Hour:        row.When.IsoString(),
					Consumption: row.Consumption,
					Production:  row.Production,
					Temperature: row.Temperature,
				}
			}))

		case http.MethodPost:
			// A JSON body stores externally computed series as-is, an
			// empty body re-runs the fetch task.
			var points []forecastPoint
			switch err := json.NewDecoder(r.Body).Decode(&points); err {
			case nil:
				rows := make([]database.EnergyForecastRow, 0, len(points))
				for _, p := range points {
					t := hours.FromIso(p.Hour)
					if t.IsZero() {
						http.Error(w, fmt.Sprintf("invalid hour %q", p.Hour), http.StatusBadRequest)
						return
					}
					rows = append(rows, database.EnergyForecastRow{
						When:        hours.FromTime(t),
						Consumption: p.Consumption,
						Production:  p.Production,
						Temperature: p.Temperature,
					})
				}
				if err := db.SaveEnergyForecasts(r.Context(), rows); err != nil {
					logger.Error("saving pushed forecast", slog.Any("error", err))
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			case io.EOF:
				task()
				w.WriteHeader(http.StatusAccepted)
			default:
				http.Error(w, err.Error(), http.StatusBadRequest)
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
