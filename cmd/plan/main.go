package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angas/hems-go/config"
	"github.com/angas/hems-go/database"
	"github.com/angas/hems-go/hours"
	"github.com/angas/hems-go/task"
	"github.com/lmittmann/tint"
)

// One-shot planning run against prices and forecasts already in the
// database. Useful for trying out battery or tariff settings without
// waiting for the scheduler.
func main() {
	configPath := flag.String("config", "", "path to config file")
	fromIso := flag.String("from", "", "first hour to plan for (ISO date-hour, default next full hour)")
	save := flag.Bool("save", false, "persist the plan to the database")
	flag.Parse()

	w := os.Stdout
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339Nano,
		}),
	))

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	db, err := database.New(context.Background(), cnfg.Database.Path)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	planner, err := task.NewPlanner(cnfg)
	if err != nil {
		panic(err)
	}

	startHour := hours.FromNow().Add(1)
	if *fromIso != "" {
		t := hours.FromIso(*fromIso)
		if t.IsZero() {
			panic(fmt.Sprintf("invalid -from value %q", *fromIso))
		}
		startHour = hours.FromTime(t)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := planner.Plan(ctx, db, startHour)
	if err != nil {
		panic(err)
	}

	fmt.Println(planner.Summary())
	fmt.Println()
	fmt.Printf("%-16s %4s %8s %8s %8s %8s %8s\n",
		"hour", "slot", "import", "export", "battery", "soc", "ev")
	for _, row := range res.Rows {
		fmt.Printf("%-16s %4d %8.3f %8.3f %8.3f %8.3f %8.3f\n",
			row.When.String(), row.Slot,
			row.GridImport, row.GridExport,
			row.BatteryPower, row.BatterySoC, row.EVPower)
	}

	if *save {
		if err := db.SavePlan(ctx, res.Rows); err != nil {
			panic(err)
		}
		fmt.Printf("\nsaved %d plan rows\n", len(res.Rows))
	}
}
