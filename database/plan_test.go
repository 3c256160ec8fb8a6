package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angas/hems-go/hours"
)

func openTestDb(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func planRow(dh hours.DateHour, slot int, imp float64) PlanRow {
	return PlanRow{
		When:       dh,
		Slot:       slot,
		GridImport: imp,
		BatterySoC: 5.0,
	}
}

func TestSavePlanRoundTrip(t *testing.T) {
	db := openTestDb(t)
	ctx := context.Background()
	h := hours.DateHour{Date: "2026-08-31", Hour: 10}

	rows := []PlanRow{
		planRow(h, 0, 1.5),
		planRow(h, 1, 0.5),
		planRow(h.Add(1), 0, 2.0),
		planRow(h.Add(1), 1, 0.0),
	}

	if err := db.SavePlan(ctx, rows); err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	got, err := db.GetPlanFrom(ctx, h)
	if err != nil {
		t.Fatalf("getting plan: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 plan rows, got %d", len(got))
	}
	if got[0].When != h || got[0].Slot != 0 || got[0].GridImport != 1.5 {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[3].When != h.Add(1) || got[3].Slot != 1 {
		t.Errorf("unexpected last row: %+v", got[3])
	}

	hourRows, err := db.GetPlanForHour(ctx, h.Add(1))
	if err != nil {
		t.Fatalf("getting plan for hour: %v", err)
	}
	if len(hourRows) != 2 {
		t.Fatalf("expected 2 slots for hour, got %d", len(hourRows))
	}
	if hourRows[0].GridImport != 2.0 {
		t.Errorf("expected grid import 2.0, got %f", hourRows[0].GridImport)
	}
}

func TestSavePlanSupersedesTail(t *testing.T) {
	db := openTestDb(t)
	ctx := context.Background()
	h := hours.DateHour{Date: "2026-08-31", Hour: 10}

	first := []PlanRow{
		planRow(h, 0, 1.0),
		planRow(h.Add(1), 0, 1.0),
		planRow(h.Add(2), 0, 1.0),
	}
	if err := db.SavePlan(ctx, first); err != nil {
		t.Fatalf("saving plan: %v", err)
	}

	// A re-plan one hour later replaces everything from its start hour
	// but leaves the already-executed hour alone.
	second := []PlanRow{
		planRow(h.Add(1), 0, 3.0),
		planRow(h.Add(2), 0, 3.0),
	}
	if err := db.SavePlan(ctx, second); err != nil {
		t.Fatalf("saving re-plan: %v", err)
	}

	got, err := db.GetPlanFrom(ctx, h)
	if err != nil {
		t.Fatalf("getting plan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 plan rows, got %d", len(got))
	}
	if got[0].GridImport != 1.0 {
		t.Errorf("executed hour should be untouched, got %f", got[0].GridImport)
	}
	if got[1].GridImport != 3.0 || got[2].GridImport != 3.0 {
		t.Errorf("re-plan should supersede tail, got %f and %f", got[1].GridImport, got[2].GridImport)
	}
}

func TestGetDetailedPlanJoinsInputs(t *testing.T) {
	db := openTestDb(t)
	ctx := context.Background()
	h := hours.DateHour{Date: "2026-08-31", Hour: 10}

	if err := db.SavePlan(ctx, []PlanRow{planRow(h, 0, 1.0), planRow(h.Add(1), 0, 1.0)}); err != nil {
		t.Fatalf("saving plan: %v", err)
	}
	if err := db.SaveEnergyPrices(ctx, []EnergyPriceRow{{When: h, Price: 0.25}}); err != nil {
		t.Fatalf("saving price: %v", err)
	}
	if err := db.SaveEnergyForecasts(ctx, []EnergyForecastRow{
		{When: h, Consumption: 0.4, Production: 1.2, Temperature: 17.5},
	}); err != nil {
		t.Fatalf("saving forecast: %v", err)
	}

	got, err := db.GetDetailedPlanFrom(ctx, h)
	if err != nil {
		t.Fatalf("getting detailed plan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 detailed rows, got %d", len(got))
	}

	first := got[0]
	if !first.EnergyPrice.IsValid() || first.EnergyPrice.Value() != 0.25 {
		t.Errorf("expected joined price 0.25, got %+v", first.EnergyPrice)
	}
	if !first.Temperature.IsValid() || first.Temperature.Value() != 17.5 {
		t.Errorf("expected joined temperature 17.5, got %+v", first.Temperature)
	}

	// The second hour has no price or forecast ingested.
	if got[1].EnergyPrice.IsValid() || got[1].ProductionEstimated.IsValid() {
		t.Errorf("expected null joins for second hour, got %+v", got[1])
	}
}
