package config

// SupplierPreset holds the per-kWh contract terms of a Dutch dynamic
// electricity supplier (Feb 2026 tariffs).
type SupplierPreset struct {
	ProcurementFee float64 // EUR/kWh markup on import
	SellBackCredit float64 // EUR/kWh credit on export
}

// Suppliers is static preset data; treat it as read-only.
var Suppliers = map[string]SupplierPreset{
	"Tibber":        {ProcurementFee: 0.0248, SellBackCredit: 0.0000},
	"Zonneplan":     {ProcurementFee: 0.0200, SellBackCredit: 0.0200},
	"Frank Energie": {ProcurementFee: 0.0182, SellBackCredit: 0.0182},
}
