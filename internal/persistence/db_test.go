package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "colony.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func samplePlanet() *colony.Planet {
	p := &colony.Planet{
		ID:             "p1",
		Name:           "New Terra",
		OwnerID:        "player-1",
		SectorID:       42,
		Type:           colony.TypeOceanic,
		Colonists:      1200,
		MaxColonists:   8000,
		Specialization: colony.SpecAgricultural,
		Allocations:    colony.Allocations{Fuel: 70, Organics: 14, Equipment: 15, Unused: 1},
		Production:     colony.ProductionRates{Fuel: 84, Organics: 31, Equipment: 13, Colonists: 10},
		Buildings:      colony.NewBuildings(),
		Defenses:       colony.Defenses{Turrets: 5, Shields: 3, Fighters: 12},
		CreatedAt:      time.Date(2102, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	p.Buildings[colony.BuildingFarm].Level = 2
	p.Buildings[colony.BuildingMine].Upgrade = &colony.Upgrade{
		TargetLevel:  1,
		CompletionAt: time.Date(2102, 3, 1, 13, 0, 0, 0, time.UTC),
	}
	return p
}

func TestSaveLoadPlanets(t *testing.T) {
	db := openTestDB(t)

	withSiege := samplePlanet()
	withSiege.ID = "p2"
	withSiege.Siege = &colony.Siege{
		AttackerID:     "raider",
		AttackPower:    500,
		Phase:          colony.PhaseBombardment,
		Outcome:        colony.OutcomePending,
		PhaseStartedAt: time.Date(2102, 3, 1, 12, 30, 0, 0, time.UTC),
		DefenseBoost:   15,
	}

	if err := db.SavePlanets([]*colony.Planet{samplePlanet(), withSiege}); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := db.LoadPlanets()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d planets, want 2", len(loaded))
	}

	byID := map[string]*colony.Planet{}
	for _, p := range loaded {
		byID[p.ID] = p
	}

	p := byID["p1"]
	if p == nil {
		t.Fatal("p1 missing")
	}
	if p.Name != "New Terra" || p.Type != colony.TypeOceanic || p.Specialization != colony.SpecAgricultural {
		t.Errorf("scalar fields: %+v", p)
	}
	if p.Allocations != (colony.Allocations{Fuel: 70, Organics: 14, Equipment: 15, Unused: 1}) {
		t.Errorf("allocations = %+v", p.Allocations)
	}
	if p.Buildings[colony.BuildingFarm].Level != 2 {
		t.Errorf("farm level = %d", p.Buildings[colony.BuildingFarm].Level)
	}
	up := p.Buildings[colony.BuildingMine].Upgrade
	if up == nil || up.TargetLevel != 1 || !up.CompletionAt.Equal(time.Date(2102, 3, 1, 13, 0, 0, 0, time.UTC)) {
		t.Errorf("mine upgrade = %+v", up)
	}
	if p.Siege != nil {
		t.Error("p1 grew a siege record")
	}
	if !p.CreatedAt.Equal(time.Date(2102, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", p.CreatedAt)
	}

	s := byID["p2"].Siege
	if s == nil {
		t.Fatal("p2 siege missing")
	}
	if s.Phase != colony.PhaseBombardment || s.AttackerID != "raider" || s.DefenseBoost != 15 {
		t.Errorf("siege = %+v", s)
	}
}

func TestSavePlanets_FullReplace(t *testing.T) {
	db := openTestDB(t)

	if err := db.SavePlanets([]*colony.Planet{samplePlanet()}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	other := samplePlanet()
	other.ID = "p9"
	if err := db.SavePlanets([]*colony.Planet{other}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := db.LoadPlanets()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "p9" {
		t.Errorf("loaded = %v, want only p9", loaded)
	}
}

func TestSaveColonyState_RoundTripsThroughStore(t *testing.T) {
	db := openTestDB(t)

	store := colony.NewStore()
	if err := store.Put(samplePlanet()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.SaveColonyState(store); err != nil {
		t.Fatalf("save state: %v", err)
	}

	loaded, err := db.LoadPlanets()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "p1" {
		t.Errorf("loaded = %v", loaded)
	}
}

func TestEventLog(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2102, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := events.Event{
			Type:        events.TypeUpgradeCompleted,
			PlanetID:    "p1",
			Description: "farm upgrade completed",
			At:          base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.SaveEvent(ev); err != nil {
			t.Fatalf("save event: %v", err)
		}
	}

	evs, err := db.RecentEvents(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	// Newest first.
	if !evs[0].At.After(evs[1].At) {
		t.Errorf("events out of order: %v then %v", evs[0].At, evs[1].At)
	}
	if evs[0].Type != events.TypeUpgradeCompleted || evs[0].PlanetID != "p1" {
		t.Errorf("event = %+v", evs[0])
	}
}
