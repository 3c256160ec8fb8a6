package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/slice"
)

type planStep struct {
	Hour         string   `json:"hour"`
	Slot         int      `json:"slot"`
	GridImport   float64  `json:"gridImport"`
	GridExport   float64  `json:"gridExport"`
	BatteryPower float64  `json:"batteryPower"`
	BatterySoC   float64  `json:"batterySoc"`
	EVPower      float64  `json:"evPower"`
	EnergyPrice  *float64 `json:"energyPrice,omitempty"`
	Production   *float64 `json:"production,omitempty"`
	Consumption  *float64 `json:"consumption,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// NewPlanHandler serves the stored dispatch plan joined with the prices
// and forecasts it was planned against. POST triggers a re-plan.
func NewPlanHandler(logger *slog.Logger, db *database.Database, task func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			from := hours.FromNow().Sub(intOrDefault(r.URL, "hours", 0))
			rows, err := db.GetDetailedPlanFrom(r.Context(), from)
			if err != nil {
				logger.Error("handling plan request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			writeJSON(logger, w, slice.Map(rows, func(row database.DetailedPlanRow) planStep {
				return planStep{
					Hour:         row.When.IsoString(),
					Slot:         row.Slot,
					GridImport:   row.GridImport,
					GridExport:   row.GridExport,
					BatteryPower: row.BatteryPower,
					BatterySoC:   row.BatterySoC,
					EVPower:      row.EVPower,
					EnergyPrice:  maybeToPtr(row.EnergyPrice),
					Production:   maybeToPtr(row.ProductionEstimated),
					Consumption:  maybeToPtr(row.ConsumptionEstimated),
					Temperature:  maybeToPtr(row.Temperature),
				}
			}))

		case http.MethodPost:
			task()
			w.WriteHeader(http.StatusAccepted)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
