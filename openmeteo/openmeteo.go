// Package openmeteo fetches hourly weather forecasts from the
// Open-Meteo API. The planner needs two series: air temperature for
// the heat-pump model and global irradiance for the PV estimate.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angas/hems-go/types"
)

const baseURL = "https://api.open-meteo.com/v1/forecast"

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Time              []string  `json:"time"`
	Temperature       []float64 `json:"temperature_2m"`
	ShortwaveRadation []float64 `json:"shortwave_radiation"`
}

type OpenMeteo struct {
	latitude  float64
	longitude float64
}

func New(latitude, longitude float64) OpenMeteo {
	return OpenMeteo{latitude: latitude, longitude: longitude}
}

func (o OpenMeteo) GetForecast(ctx context.Context) ([]types.WeatherHour, error) {
	url := fmt.Sprintf(
		"%s?latitude=%0.4f&longitude=%0.4f&hourly=temperature_2m,shortwave_radiation&forecast_days=3&timezone=UTC",
		baseURL, o.latitude, o.longitude)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := http.Client{Timeout: 10 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error getting open-meteo forecast: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading open-meteo response body: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshaling open-meteo json: %w", err)
	}

	h := parsed.Hourly
	if len(h.Temperature) != len(h.Time) || len(h.ShortwaveRadation) != len(h.Time) {
		return nil, fmt.Errorf("open-meteo series length mismatch")
	}

	result := make([]types.WeatherHour, 0, len(h.Time))
	for i, ts := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			return nil, fmt.Errorf("error parsing open-meteo timestamp %q: %w", ts, err)
		}
		result = append(result, types.WeatherHour{
			Hour:        t.UTC(),
			Temperature: h.Temperature[i],
			Irradiance:  h.ShortwaveRadation[i],
		})
	}

	return result, nil
}
