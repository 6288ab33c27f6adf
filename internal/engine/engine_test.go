package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/economy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/entropy"
)

// fakeClock is a settable clock shared by engine tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2102, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testRig struct {
	eng    *Engine
	clock  *fakeClock
	ledger *economy.MemoryLedger
	rolls  *entropy.Fixed
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	clock := newFakeClock()
	ledger := economy.NewMemoryLedger()
	rolls := entropy.NewFixed(0.99) // actions fail unless a test scripts otherwise
	eng := New(Config{
		Balance: balance.Default(),
		Ledger:  ledger,
		Rolls:   rolls,
		Now:     clock.Now,
	})
	return &testRig{eng: eng, clock: clock, ledger: ledger, rolls: rolls}
}

// deploy creates a terran planet owned by "player-1" and returns its ID.
func (r *testRig) deploy(t *testing.T) colony.PlanetID {
	t.Helper()
	id, err := r.eng.DeployGenesis(context.Background(), 1, "New Terra", colony.TypeTerran, "player-1")
	if err != nil {
		t.Fatalf("deploy genesis: %v", err)
	}
	return id
}

func (r *testRig) planet(t *testing.T, id colony.PlanetID) *colony.Planet {
	t.Helper()
	p, err := r.eng.GetPlanet(context.Background(), id)
	if err != nil {
		t.Fatalf("get planet: %v", err)
	}
	return p
}

func TestDeployGenesis_Defaults(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	p := rig.planet(t, id)

	if p.Allocations != (colony.Allocations{Fuel: 25, Organics: 25, Equipment: 25, Unused: 25}) {
		t.Errorf("genesis allocations = %+v, want balanced preset", p.Allocations)
	}
	for _, bt := range colony.BuildingTypes() {
		if p.Buildings[bt].Level != 0 {
			t.Errorf("building %s starts at level %d, want 0", bt, p.Buildings[bt].Level)
		}
	}
	if p.OwnerID != "player-1" {
		t.Errorf("owner = %q", p.OwnerID)
	}
	if p.Colonists <= 0 || p.Colonists > p.MaxColonists {
		t.Errorf("colonists %d out of (0, %d]", p.Colonists, p.MaxColonists)
	}
	if p.Siege != nil {
		t.Error("new planet should have no siege record")
	}
}

func TestDeployGenesis_Validation(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if _, err := rig.eng.DeployGenesis(ctx, 1, "", colony.TypeTerran, "player-1"); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("empty name: got %v, want validation error", err)
	}
	if _, err := rig.eng.DeployGenesis(ctx, 1, "X", colony.TypeTerran, ""); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("empty owner: got %v, want validation error", err)
	}
}

func TestSetDefenses(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	if err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Turrets: 10, Shields: 5, Fighters: 20}); err != nil {
		t.Fatalf("set defenses: %v", err)
	}
	p := rig.planet(t, id)
	if p.Defenses != (colony.Defenses{Turrets: 10, Shields: 5, Fighters: 20}) {
		t.Errorf("defenses = %+v", p.Defenses)
	}

	err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Turrets: -1})
	if colony.KindOf(err) != colony.KindValidation {
		t.Errorf("negative turrets: got %v, want validation error", err)
	}
}

func TestSetSpecialization_RecomputesProduction(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	before := rig.planet(t, id).Production
	if err := rig.eng.SetSpecialization(ctx, id, colony.SpecAgricultural); err != nil {
		t.Fatalf("set specialization: %v", err)
	}
	after := rig.planet(t, id).Production

	if after.Organics <= before.Organics {
		t.Errorf("agricultural specialization should raise organics: %d -> %d", before.Organics, after.Organics)
	}
}
