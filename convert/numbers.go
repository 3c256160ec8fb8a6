package convert

import (
	"math"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(int(decimals))) / math.Pow10(int(decimals))
}

// WhM2ToKW converts an irradiance value in W/m2 on a panel area
// equivalent delivering peakKW at standard test conditions (1000 W/m2).
func WhM2ToKW(irradiance, peakKW float64) float64 {
	if irradiance <= 0 {
		return 0
	}
	return peakKW * irradiance / 1000.0
}
