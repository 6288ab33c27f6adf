// Package balance holds the game-balance constants: production factors,
// specialization multipliers, building cost tables, and siege math.
// Values load from a YAML file over compiled-in defaults so operators can
// retune without a rebuild.
package balance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
)

// Triple is a per-resource multiplier set.
type Triple struct {
	Fuel      float64 `yaml:"fuel"`
	Organics  float64 `yaml:"organics"`
	Equipment float64 `yaml:"equipment"`
}

// Get returns the multiplier for one resource.
func (t Triple) Get(r colony.Resource) float64 {
	switch r {
	case colony.ResourceFuel:
		return t.Fuel
	case colony.ResourceOrganics:
		return t.Organics
	case colony.ResourceEquipment:
		return t.Equipment
	}
	return 0
}

// PlanetTypes carries base production multipliers and colonist caps per type.
type PlanetTypes struct {
	Terran      PlanetProfile `yaml:"terran"`
	Oceanic     PlanetProfile `yaml:"oceanic"`
	Mountainous PlanetProfile `yaml:"mountainous"`
	Desert      PlanetProfile `yaml:"desert"`
	Frozen      PlanetProfile `yaml:"frozen"`
}

// PlanetProfile is the fixed per-type production profile and colonist cap.
type PlanetProfile struct {
	Multipliers  Triple `yaml:"multipliers"`
	MaxColonists int    `yaml:"max_colonists"`
}

// Profile returns the profile for a planet type.
func (p PlanetTypes) Profile(t colony.PlanetType) PlanetProfile {
	switch t {
	case colony.TypeTerran:
		return p.Terran
	case colony.TypeOceanic:
		return p.Oceanic
	case colony.TypeMountainous:
		return p.Mountainous
	case colony.TypeDesert:
		return p.Desert
	case colony.TypeFrozen:
		return p.Frozen
	}
	return p.Terran
}

// Specializations maps each specialization to its production multipliers.
// None and balanced are implicitly 1.0 across the board.
type Specializations struct {
	Agricultural Triple `yaml:"agricultural"`
	Industrial   Triple `yaml:"industrial"`
	Military     Triple `yaml:"military"`
	Research     Triple `yaml:"research"`
}

var neutralTriple = Triple{Fuel: 1, Organics: 1, Equipment: 1}

// Multipliers returns the production multipliers for a specialization.
func (s Specializations) Multipliers(sp colony.Specialization) Triple {
	switch sp {
	case colony.SpecAgricultural:
		return s.Agricultural
	case colony.SpecIndustrial:
		return s.Industrial
	case colony.SpecMilitary:
		return s.Military
	case colony.SpecResearch:
		return s.Research
	}
	return neutralTriple
}

// Production holds the production formula constants.
type Production struct {
	BaseRate             int     `yaml:"base_rate"`               // per-hour base output per resource
	FuelFactor           float64 `yaml:"fuel_factor"`             // relative scarcity factors
	OrganicsFactor       float64 `yaml:"organics_factor"`
	EquipmentFactor      float64 `yaml:"equipment_factor"`
	BuildingBonusPerLvl  float64 `yaml:"building_bonus_per_level"` // mine/farm/factory
	ResearchBonusPerLvl  float64 `yaml:"research_bonus_per_level"` // flat efficiency, all resources
	ColonistBaseGrowth   int     `yaml:"colonist_base_growth"`     // per-hour before unused bonus
}

// Factor returns the scarcity factor for one resource.
func (p Production) Factor(r colony.Resource) float64 {
	switch r {
	case colony.ResourceFuel:
		return p.FuelFactor
	case colony.ResourceOrganics:
		return p.OrganicsFactor
	case colony.ResourceEquipment:
		return p.EquipmentFactor
	}
	return 0
}

// BuildingCost is the cost/duration profile for one building type.
type BuildingCost struct {
	BaseCredits int `yaml:"base_credits"` // doubles each level
	BaseMinutes int `yaml:"base_minutes"` // scales linearly with level+1
	Fuel        int `yaml:"fuel"`         // per-level resource weights
	Organics    int `yaml:"organics"`
	Equipment   int `yaml:"equipment"`
}

// Buildings carries cost profiles for the fixed building set.
type Buildings struct {
	Factory  BuildingCost `yaml:"factory"`
	Farm     BuildingCost `yaml:"farm"`
	Mine     BuildingCost `yaml:"mine"`
	Defense  BuildingCost `yaml:"defense"`
	Research BuildingCost `yaml:"research"`
}

// Cost returns the profile for a building type.
func (b Buildings) Cost(t colony.BuildingType) BuildingCost {
	switch t {
	case colony.BuildingFactory:
		return b.Factory
	case colony.BuildingFarm:
		return b.Farm
	case colony.BuildingMine:
		return b.Mine
	case colony.BuildingDefense:
		return b.Defense
	case colony.BuildingResearch:
		return b.Research
	}
	return b.Factory
}

// DefenseAction tunes one defender move.
type DefenseAction struct {
	SuccessChance float64 `yaml:"success_chance"`
	Boost         int     `yaml:"boost"`       // effectiveness points added on success
	ResetsPhase   bool    `yaml:"resets_phase"` // restarts the current phase timer
}

// Siege holds the siege state machine constants.
type Siege struct {
	OrbitalMinutes     int     `yaml:"orbital_minutes"`
	BombardmentMinutes int     `yaml:"bombardment_minutes"`
	InvasionMinutes    int     `yaml:"invasion_minutes"`
	AttackMargin       int     `yaml:"attack_margin"`       // attack power must beat effectiveness by this
	CaptureThreshold   int     `yaml:"capture_threshold"`   // effectiveness >= this resolves to success
	CasualtyFull       float64 `yaml:"casualty_full"`       // factor when captured
	CasualtyReduced    float64 `yaml:"casualty_reduced"`    // factor when defended
	TurretWeight       float64 `yaml:"turret_weight"`       // sqrt-curve weights
	ShieldWeight       float64 `yaml:"shield_weight"`
	FighterWeight      float64 `yaml:"fighter_weight"`
	DefenseLevelBonus  float64 `yaml:"defense_level_bonus"` // per defense-building level
	PowerScale         float64 `yaml:"power_scale"`         // attacker power normalization

	ScrambleFighters DefenseAction `yaml:"scramble_fighters"`
	EmergencyRepair  DefenseAction `yaml:"emergency_repair"`
}

// Action returns the tuning for one defense action type.
func (s Siege) Action(t colony.DefenseActionType) DefenseAction {
	switch t {
	case colony.ActionScrambleFighters:
		return s.ScrambleFighters
	case colony.ActionEmergencyRepair:
		return s.EmergencyRepair
	}
	return DefenseAction{}
}

// Balance is the complete game-balance table.
type Balance struct {
	Production      Production      `yaml:"production"`
	PlanetTypes     PlanetTypes     `yaml:"planet_types"`
	Specializations Specializations `yaml:"specializations"`
	Buildings       Buildings       `yaml:"buildings"`
	Siege           Siege           `yaml:"siege"`
}

// Default returns the compiled-in balance table.
func Default() *Balance {
	return &Balance{
		Production: Production{
			BaseRate:            100,
			FuelFactor:          1.5,
			OrganicsFactor:      2.0,
			EquipmentFactor:     1.0,
			BuildingBonusPerLvl: 0.5,
			ResearchBonusPerLvl: 0.1,
			ColonistBaseGrowth:  10,
		},
		PlanetTypes: PlanetTypes{
			Terran:      PlanetProfile{Multipliers: Triple{Fuel: 1.0, Organics: 1.2, Equipment: 1.0}, MaxColonists: 10000},
			Oceanic:     PlanetProfile{Multipliers: Triple{Fuel: 0.8, Organics: 1.5, Equipment: 0.7}, MaxColonists: 8000},
			Mountainous: PlanetProfile{Multipliers: Triple{Fuel: 1.4, Organics: 0.6, Equipment: 1.3}, MaxColonists: 6000},
			Desert:      PlanetProfile{Multipliers: Triple{Fuel: 1.6, Organics: 0.4, Equipment: 1.0}, MaxColonists: 5000},
			Frozen:      PlanetProfile{Multipliers: Triple{Fuel: 1.2, Organics: 0.3, Equipment: 1.1}, MaxColonists: 3000},
		},
		Specializations: Specializations{
			Agricultural: Triple{Fuel: 0.9, Organics: 1.5, Equipment: 0.9},
			Industrial:   Triple{Fuel: 1.1, Organics: 0.8, Equipment: 1.5},
			Military:     Triple{Fuel: 1.0, Organics: 0.9, Equipment: 1.2},
			Research:     Triple{Fuel: 1.0, Organics: 1.0, Equipment: 1.0},
		},
		Buildings: Buildings{
			Factory:  BuildingCost{BaseCredits: 1000, BaseMinutes: 30, Fuel: 50, Organics: 20, Equipment: 100},
			Farm:     BuildingCost{BaseCredits: 800, BaseMinutes: 20, Fuel: 30, Organics: 80, Equipment: 40},
			Mine:     BuildingCost{BaseCredits: 1200, BaseMinutes: 40, Fuel: 80, Organics: 20, Equipment: 60},
			Defense:  BuildingCost{BaseCredits: 1500, BaseMinutes: 45, Fuel: 60, Organics: 10, Equipment: 120},
			Research: BuildingCost{BaseCredits: 2000, BaseMinutes: 60, Fuel: 40, Organics: 40, Equipment: 80},
		},
		Siege: Siege{
			OrbitalMinutes:     10,
			BombardmentMinutes: 15,
			InvasionMinutes:    20,
			AttackMargin:       10,
			CaptureThreshold:   50,
			CasualtyFull:       0.5,
			CasualtyReduced:    0.2,
			TurretWeight:       4.0,
			ShieldWeight:       5.0,
			FighterWeight:      2.5,
			DefenseLevelBonus:  5.0,
			PowerScale:         0.05,
			ScrambleFighters:   DefenseAction{SuccessChance: 0.7, Boost: 15},
			EmergencyRepair:    DefenseAction{SuccessChance: 0.5, ResetsPhase: true},
		},
	}
}

// Load reads a YAML balance file layered over the defaults. A missing
// path returns the defaults unchanged.
func Load(path string) (*Balance, error) {
	b := Default()
	if path == "" {
		return b, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("read balance file: %w", err)
	}
	if err := yaml.Unmarshal(raw, b); err != nil {
		return nil, fmt.Errorf("balance yaml: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate rejects tables that would break simulation invariants.
func (b *Balance) Validate() error {
	if b.Production.BaseRate <= 0 {
		return fmt.Errorf("balance: base_rate must be positive")
	}
	if b.Siege.CaptureThreshold < 0 || b.Siege.CaptureThreshold > 100 {
		return fmt.Errorf("balance: capture_threshold must be in [0,100]")
	}
	if b.Siege.CasualtyFull < 0 || b.Siege.CasualtyFull > 1 ||
		b.Siege.CasualtyReduced < 0 || b.Siege.CasualtyReduced > 1 {
		return fmt.Errorf("balance: casualty factors must be in [0,1]")
	}
	for _, t := range colony.BuildingTypes() {
		c := b.Buildings.Cost(t)
		if c.BaseCredits <= 0 || c.BaseMinutes <= 0 {
			return fmt.Errorf("balance: %s cost profile must be positive", t)
		}
	}
	return nil
}
