package www

import (
	"log/slog"
	"net/http"

	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/slice"
)

type pricePoint struct {
	Hour  string  `json:"hour"`
	Price float64 `json:"price"`
}

// NewEnergyPriceHandler serves stored day-ahead prices. POST triggers
// an immediate fetch from the configured providers.
func NewEnergyPriceHandler(logger *slog.Logger, db *database.Database, task func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			from := hours.FromNow().Sub(intOrDefault(r.URL, "hours", 24))
			rows, err := db.GetEnergyPricesFrom(r.Context(), from)
			if err != nil {
				logger.Error("handling energy price request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			writeJSON(logger, w, slice.Map(rows, func(row database.EnergyPriceRow) pricePoint {
				return pricePoint{Hour: row.When.IsoString(), Price: row.Price}
			}))

		case http.MethodPost:
			task()
			w.WriteHeader(http.StatusAccepted)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
