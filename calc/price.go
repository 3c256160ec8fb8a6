// Package calc holds the consumer-facing electricity price formulas
// for Dutch dynamic contracts:
//
//	import price = (spot + procurement fee + energy tax) * (1 + VAT)
//	export price = spot + sell-back credit
//
// Under net metering the export side is priced like the import side.
package calc

// ImportPrice is the per-kWh price paid for grid import at a given
// spot price.
func ImportPrice(spot, procurementFee, energyTax, vat float64) float64 {
	return (spot + procurementFee + energyTax) * (1 + vat)
}

// ExportPrice is the per-kWh credit received for grid export at a
// given spot price.
func ExportPrice(spot, sellBackCredit float64) float64 {
	return spot + sellBackCredit
}

// Breakdown itemizes the cost of an import/export trajectory pair.
// All figures are in EUR; TotalImport and TotalExport carry the sums.
type Breakdown struct {
	SpotImport  float64 // spot price times import energy
	Procurement float64
	Tax         float64
	VAT         float64
	TotalImport float64

	SpotExport  float64
	SellBack    float64
	TotalExport float64
}

// Net is the total cost after export revenue.
func (b Breakdown) Net() float64 { return b.TotalImport - b.TotalExport }

// Cost itemizes the cost of realized import/export power trajectories
// (kW, one value per step of dt hours) against a spot price series and
// the scalar contract terms. It is computed from scratch so the result
// stays meaningful whatever the optimization objective was.
func Cost(dt float64, gridImport, gridExport, spot []float64, procurementFee, sellBackCredit, energyTax, vat float64, netMetering bool) Breakdown {
	var b Breakdown
	var impKWh, expKWh float64

	for t := range gridImport {
		impKWh += gridImport[t] * dt
		b.SpotImport += spot[t] * gridImport[t] * dt
	}
	b.Procurement = procurementFee * impKWh
	b.Tax = energyTax * impKWh
	b.VAT = vat * (b.SpotImport + b.Procurement + b.Tax)
	b.TotalImport = b.SpotImport + b.Procurement + b.Tax + b.VAT

	for t := range gridExport {
		expKWh += gridExport[t] * dt
		b.SpotExport += spot[t] * gridExport[t] * dt
	}
	if netMetering {
		// Export is credited with the full import price structure
		proc := procurementFee * expKWh
		tax := energyTax * expKWh
		b.SellBack = proc + tax + vat*(b.SpotExport+proc+tax)
		b.TotalExport = b.SpotExport + b.SellBack
	} else {
		b.SellBack = sellBackCredit * expKWh
		b.TotalExport = b.SpotExport + b.SellBack
	}

	return b
}
