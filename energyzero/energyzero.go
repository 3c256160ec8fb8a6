// Package energyzero fetches Dutch day-ahead electricity prices from
// the EnergyZero API, which backs several dynamic contract suppliers.
// Prices are returned excluding VAT in EUR/kWh.
package energyzero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/types"
)

const baseURL = "https://api.energyzero.nl/v1/energyprices"

type rawResponse struct {
	Prices []rawPrice `json:"Prices"`
}

type rawPrice struct {
	Price       float64   `json:"price"`
	ReadingDate time.Time `json:"readingDate"`
}

type EnergyZero struct{}

func New() EnergyZero {
	return EnergyZero{}
}

// GetEnergyPrices fetches today's and tomorrow's hourly prices.
// Tomorrow's prices are published around 15:00 CET; before that the
// result simply covers fewer hours.
func (e EnergyZero) GetEnergyPrices(ctx context.Context) ([]types.EnergyPrice, error) {
	now := time.Now().UTC()
	from := now.Truncate(24 * time.Hour)
	till := from.AddDate(0, 0, 2)

	q := url.Values{}
	q.Set("fromDate", from.Format(time.RFC3339))
	q.Set("tillDate", till.Format(time.RFC3339))
	q.Set("interval", "4") // hourly
	q.Set("usageType", "1")
	q.Set("inclBtw", "false")

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	prices := make([]types.EnergyPrice, 0, len(raw.Prices))
	for _, p := range raw.Prices {
		prices = append(prices, types.EnergyPrice{
			Hour:  hours.FromTime(p.ReadingDate),
			Price: p.Price,
		})
	}

	return prices, nil
}
