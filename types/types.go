package types

import (
	"context"
	"time"

	"github.com/angas/hems-go/hours"
)

type EnergyPrice struct {
	Hour  hours.DateHour
	Price float64 // Day-ahead price in EUR per kWh excluding VAT
}

// EnergyPriceProvider fetches day-ahead prices. Providers are tried in
// order until one succeeds.
type EnergyPriceProvider interface {
	GetEnergyPrices(ctx context.Context) ([]EnergyPrice, error)
}

type WeatherHour struct {
	Hour time.Time
	// Air temperature at 2m (°C)
	Temperature float64
	// Global horizontal irradiance (W/m2)
	Irradiance float64
}

// WeatherProvider fetches the hourly weather forecast used for the
// heat-pump and PV estimates.
type WeatherProvider interface {
	GetForecast(ctx context.Context) ([]WeatherHour, error)
}
