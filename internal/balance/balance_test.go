package balance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Production.BaseRate != Default().Production.BaseRate {
		t.Errorf("base rate = %d, want default", b.Production.BaseRate)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	override := `
production:
  base_rate: 250
siege:
  attack_margin: 25
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Production.BaseRate != 250 {
		t.Errorf("base_rate = %d, want 250", b.Production.BaseRate)
	}
	if b.Siege.AttackMargin != 25 {
		t.Errorf("attack_margin = %d, want 25", b.Siege.AttackMargin)
	}
	// Untouched values keep their defaults.
	if b.Siege.CaptureThreshold != 50 {
		t.Errorf("capture_threshold = %d, want default 50", b.Siege.CaptureThreshold)
	}
	if b.Buildings.Factory.BaseCredits != 1000 {
		t.Errorf("factory base credits = %d, want default 1000", b.Buildings.Factory.BaseCredits)
	}
}

func TestLoad_RejectsInvalidTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "balance.yaml")
	if err := os.WriteFile(path, []byte("siege:\n  capture_threshold: 150\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("capture_threshold 150 accepted")
	}
}

func TestValidate(t *testing.T) {
	b := Default()
	if err := b.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	b = Default()
	b.Production.BaseRate = 0
	if err := b.Validate(); err == nil {
		t.Error("zero base_rate accepted")
	}

	b = Default()
	b.Siege.CasualtyFull = 1.5
	if err := b.Validate(); err == nil {
		t.Error("casualty factor above 1 accepted")
	}

	b = Default()
	b.Buildings.Mine.BaseMinutes = 0
	if err := b.Validate(); err == nil {
		t.Error("zero build time accepted")
	}
}

func TestDefault_CoversAllEnums(t *testing.T) {
	b := Default()

	for _, pt := range []colony.PlanetType{colony.TypeTerran, colony.TypeOceanic, colony.TypeMountainous, colony.TypeDesert, colony.TypeFrozen} {
		p := b.PlanetTypes.Profile(pt)
		if p.MaxColonists <= 0 {
			t.Errorf("%s: max colonists = %d", pt, p.MaxColonists)
		}
		if p.Multipliers.Fuel <= 0 || p.Multipliers.Organics <= 0 || p.Multipliers.Equipment <= 0 {
			t.Errorf("%s: non-positive multiplier %+v", pt, p.Multipliers)
		}
	}

	for _, bt := range colony.BuildingTypes() {
		c := b.Buildings.Cost(bt)
		if c.BaseCredits <= 0 || c.BaseMinutes <= 0 {
			t.Errorf("%s: cost profile %+v", bt, c)
		}
	}

	if b.Specializations.Multipliers(colony.SpecBalanced) != neutralTriple {
		t.Error("balanced specialization must be neutral")
	}
	if b.Specializations.Multipliers(colony.SpecNone) != neutralTriple {
		t.Error("no specialization must be neutral")
	}
}
