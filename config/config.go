package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/angas/hems-go/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigDatabase struct {
	Path string
	// How many days forecast data should be stored before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days database backups should be kept
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 14
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 30
	}
	return *d.BackupRetentionDays
}

// PlannerSpec shapes the rolling-horizon optimization.
type PlannerSpec struct {
	Horizon   int     `mapstructure:"horizon"`    // number of steps in one solve
	StepHours float64 `mapstructure:"step_hours"` // duration of one step in hours
	Objective string  `mapstructure:"objective"`  // "cost", "self_consumption" or "self_reliance"
	RunAt     string  `mapstructure:"run_at"`     // cron expression for re-planning
	// Pass-throughs to the solver, zero means solver defaults
	SolverTolerance float64 `mapstructure:"solver_tolerance"`
	SolverMaxNodes  int     `mapstructure:"solver_max_nodes"`
}

func (p PlannerSpec) GetStepHours() float64 {
	if p.StepHours == 0 {
		return 1.0
	}
	return p.StepHours
}

type BatterySpec struct {
	Capacity         float64 `mapstructure:"capacity"`           // Maximum energy capacity in kWh
	MaxChargeRate    float64 `mapstructure:"max_charge_rate"`    // Maximum charging power in kW
	MaxDischargeRate float64 `mapstructure:"max_discharge_rate"` // Maximum discharging power in kW
	// Efficiencies in (0, 1], default 0.95
	ChargeEfficiency    *float64 `mapstructure:"charge_efficiency"`
	DischargeEfficiency *float64 `mapstructure:"discharge_efficiency"`
	// Initial and terminal state of charge in kWh, default half the capacity
	InitialCharge  *float64 `mapstructure:"initial_charge"`
	TerminalCharge *float64 `mapstructure:"terminal_charge"`
}

func (b BatterySpec) GetChargeEfficiency() float64 {
	if b.ChargeEfficiency == nil {
		return 0.95
	}
	return *b.ChargeEfficiency
}

func (b BatterySpec) GetDischargeEfficiency() float64 {
	if b.DischargeEfficiency == nil {
		return 0.95
	}
	return *b.DischargeEfficiency
}

func (b BatterySpec) GetInitialCharge() float64 {
	if b.InitialCharge == nil {
		return b.Capacity / 2
	}
	return *b.InitialCharge
}

func (b BatterySpec) GetTerminalCharge() float64 {
	if b.TerminalCharge == nil {
		return b.Capacity / 2
	}
	return *b.TerminalCharge
}

// TripSpec is one planned EV trip: the vehicle leaves at step Departure,
// returns at step Arrival and consumes Energy kWh while away.
type TripSpec struct {
	Departure int     `mapstructure:"departure"`
	Arrival   int     `mapstructure:"arrival"`
	Energy    float64 `mapstructure:"energy"`
}

type EVSpec struct {
	BatterySpec `mapstructure:",squash"`
	Trips       []TripSpec `mapstructure:"trips"`
}

type SolarSpec struct {
	// When true the planner may spill generation below its ceiling
	Curtailable bool `mapstructure:"curtailable"`
}

type HeatPumpSpec struct {
	HeatLoss        float64 `mapstructure:"heat_loss"`         // Building heat-loss coefficient in kW/°C
	ThermalCapacity float64 `mapstructure:"thermal_capacity"`  // Lumped thermal capacity in kWh/°C
	SetPoint        float64 `mapstructure:"set_point"`         // Indoor set-point in °C
	InitialIndoor   float64 `mapstructure:"initial_indoor"`    // Indoor temperature at the start of the horizon in °C
	SupplyTemp      float64 `mapstructure:"supply_temp"`       // Condenser outlet temperature in °C
	CarnotFactor    float64 `mapstructure:"carnot_factor"`     // Second-law efficiency scaling the Carnot COP
	COPMin          float64 `mapstructure:"cop_min"`           // COP clamp floor
	COPMax          float64 `mapstructure:"cop_max"`           // COP clamp ceiling
	MaxThermalPower float64 `mapstructure:"max_thermal_power"` // Maximum thermal output in kW
	InternalGains   float64 `mapstructure:"internal_gains"`    // Heat gain from occupants and appliances in kW
}

// EconomySpec is the consumer-facing electricity price model. When
// Supplier names a preset, Resolved fills the per-kWh supplier terms
// from that preset.
type EconomySpec struct {
	Supplier       string  `mapstructure:"supplier"`
	ProcurementFee float64 `mapstructure:"procurement_fee"`  // Supplier markup on import in EUR/kWh
	SellBackCredit float64 `mapstructure:"sell_back_credit"` // Credit added to spot on export in EUR/kWh
	EnergyTax      float64 `mapstructure:"energy_tax"`       // Energy tax on import in EUR/kWh
	VAT            float64 `mapstructure:"vat"`              // VAT fraction on import, e.g. 0.21
	NetMetering    bool    `mapstructure:"net_metering"`     // Export priced as import
}

func (e EconomySpec) Resolved() (EconomySpec, error) {
	if e.Supplier == "" {
		return e, nil
	}
	p, ok := Suppliers[e.Supplier]
	if !ok {
		return e, fmt.Errorf("unknown supplier preset %q", e.Supplier)
	}
	e.ProcurementFee = p.ProcurementFee
	e.SellBackCredit = p.SellBackCredit
	return e, nil
}

// ForecastSpec drives the forecast ingestion task: where the house is
// for the weather lookup and how its consumption and PV scale.
type ForecastSpec struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	RunAt     string  `mapstructure:"run_at"` // cron expression
	// Expected base load per hour of day in kW, 24 values
	BaseLoad []float64 `mapstructure:"base_load"`
	// PV array output at 1000 W/m2 irradiance in kW
	PVPeakPower float64 `mapstructure:"pv_peak_power"`
}

// GetBaseLoadAt returns the configured base load for an hour of day,
// falling back to a flat 0.4 kW household baseline.
func (f ForecastSpec) GetBaseLoadAt(hour int) float64 {
	if len(f.BaseLoad) != 24 {
		return 0.4
	}
	return f.BaseLoad[((hour%24)+24)%24]
}

type PricesSpec struct {
	RunAt string `mapstructure:"run_at"` // cron expression
}

type AppConfigLogging struct {
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
	// Min log level for the database log table, default: "WARN"
	DbLevel *string `mapstructure:"db_level"`
	// How log record attributes are stored: "TEXT" or "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Max number of rows kept in the log table
	DbMaxEntries *int `mapstructure:"db_max_entries"`
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	if l.DbLevel == nil {
		return slog.LevelWarn
	}
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	return logging.LogAttrFormat(strings.ToUpper(*l.DbAttrsFormat))
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

type AppConfig struct {
	Api      AppConfigApi
	Database AppConfigDatabase
	Planner  PlannerSpec
	Battery  *BatterySpec  `mapstructure:"battery_spec"`
	EV       *EVSpec       `mapstructure:"ev_spec"`
	Solar    *SolarSpec    `mapstructure:"solar_spec"`
	HeatPump *HeatPumpSpec `mapstructure:"heat_pump_spec"`
	Economy  EconomySpec   `mapstructure:"economy"`
	Forecast ForecastSpec  `mapstructure:"forecast"`
	Prices   PricesSpec    `mapstructure:"prices"`
	Logging  AppConfigLogging
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	// Edits to the file are picked up on the next planning run, the
	// compiled problem itself is not rebuilt.
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config file changed", slog.String("file", e.Name))
		if err := viper.Unmarshal(&c); err != nil {
			slog.Error("unable to reload config file", slog.Any("error", err))
		}
	})
	viper.WatchConfig()

	return &c, nil
}
