// Package colony defines the planet aggregate and its canonical state:
// allocations, production, buildings, defenses, and siege records.
package colony

import (
	"fmt"
	"time"
)

// PlanetID is a unique identifier for a planet (UUID string).
type PlanetID = string

// PlayerID identifies a player account.
type PlayerID = string

// PlanetType determines base production multipliers and the colonist cap.
type PlanetType uint8

const (
	TypeTerran PlanetType = iota
	TypeOceanic
	TypeMountainous
	TypeDesert
	TypeFrozen
)

var planetTypeNames = [...]string{"terran", "oceanic", "mountainous", "desert", "frozen"}

func (t PlanetType) String() string {
	if int(t) < len(planetTypeNames) {
		return planetTypeNames[t]
	}
	return fmt.Sprintf("planet_type(%d)", uint8(t))
}

// ParsePlanetType converts a wire-format name into a PlanetType.
func ParsePlanetType(s string) (PlanetType, error) {
	for i, name := range planetTypeNames {
		if s == name {
			return PlanetType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown planet type %q", s)
}

// Resource is one of the three allocatable resource kinds.
type Resource uint8

const (
	ResourceFuel Resource = iota
	ResourceOrganics
	ResourceEquipment
)

var resourceNames = [...]string{"fuel", "organics", "equipment"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("resource(%d)", uint8(r))
}

// ParseResource converts a wire-format name into a Resource.
func ParseResource(s string) (Resource, error) {
	for i, name := range resourceNames {
		if s == name {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// Specialization is a colony-wide bonus profile.
type Specialization uint8

const (
	SpecNone Specialization = iota
	SpecBalanced
	SpecAgricultural
	SpecIndustrial
	SpecMilitary
	SpecResearch
)

var specializationNames = [...]string{"none", "balanced", "agricultural", "industrial", "military", "research"}

func (s Specialization) String() string {
	if int(s) < len(specializationNames) {
		return specializationNames[s]
	}
	return fmt.Sprintf("specialization(%d)", uint8(s))
}

// ParseSpecialization converts a wire-format name into a Specialization.
func ParseSpecialization(v string) (Specialization, error) {
	for i, name := range specializationNames {
		if v == name {
			return Specialization(i), nil
		}
	}
	return 0, fmt.Errorf("unknown specialization %q", v)
}

// BuildingType is one of the five fixed structures on every planet.
type BuildingType uint8

const (
	BuildingFactory BuildingType = iota
	BuildingFarm
	BuildingMine
	BuildingDefense
	BuildingResearch
)

// MaxBuildingLevel is the hard cap on every building.
const MaxBuildingLevel = 5

var buildingTypeNames = [...]string{"factory", "farm", "mine", "defense", "research"}

func (b BuildingType) String() string {
	if int(b) < len(buildingTypeNames) {
		return buildingTypeNames[b]
	}
	return fmt.Sprintf("building(%d)", uint8(b))
}

// ParseBuildingType converts a wire-format name into a BuildingType.
func ParseBuildingType(s string) (BuildingType, error) {
	for i, name := range buildingTypeNames {
		if s == name {
			return BuildingType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown building type %q", s)
}

// BuildingTypes returns all building types in declaration order.
func BuildingTypes() []BuildingType {
	return []BuildingType{BuildingFactory, BuildingFarm, BuildingMine, BuildingDefense, BuildingResearch}
}

// Allocations split colonist effort across resources. The four values
// always sum to exactly 100; Unused is the residual, never set directly.
type Allocations struct {
	Fuel      int `json:"fuel"`
	Organics  int `json:"organics"`
	Equipment int `json:"equipment"`
	Unused    int `json:"unused"`
}

// Total returns the sum of all four allocation values.
func (a Allocations) Total() int {
	return a.Fuel + a.Organics + a.Equipment + a.Unused
}

// Get returns the allocation for one allocatable resource.
func (a Allocations) Get(r Resource) int {
	switch r {
	case ResourceFuel:
		return a.Fuel
	case ResourceOrganics:
		return a.Organics
	case ResourceEquipment:
		return a.Equipment
	}
	return 0
}

// ProductionRates are derived per-hour outputs. Recomputed, never set directly.
type ProductionRates struct {
	Fuel      int `json:"fuel"`
	Organics  int `json:"organics"`
	Equipment int `json:"equipment"`
	Colonists int `json:"colonists"`
}

// Upgrade tracks a single in-flight building upgrade. Cost is already
// reserved by the time the record exists.
type Upgrade struct {
	TargetLevel  int       `json:"target_level"`
	CompletionAt time.Time `json:"completion_at"`
}

// Building is one structure slot: a level in [0,5] and at most one
// in-flight upgrade.
type Building struct {
	Level   int      `json:"level"`
	Upgrade *Upgrade `json:"upgrade,omitempty"`
}

// Upgrading reports whether an upgrade is in flight.
func (b *Building) Upgrading() bool {
	return b.Upgrade != nil
}

// Defenses are independently configurable defense counts.
type Defenses struct {
	Turrets  int `json:"turrets"`
	Shields  int `json:"shields"`
	Fighters int `json:"fighters"`
}

// SiegePhase is a stage in the siege lifecycle. Phases only ever move
// forward; a resolved siege never regresses.
type SiegePhase uint8

const (
	PhaseNone SiegePhase = iota
	PhaseOrbital
	PhaseBombardment
	PhaseInvasion
	PhaseResolved
)

var siegePhaseNames = [...]string{"none", "orbital", "bombardment", "invasion", "resolved"}

func (p SiegePhase) String() string {
	if int(p) < len(siegePhaseNames) {
		return siegePhaseNames[p]
	}
	return fmt.Sprintf("siege_phase(%d)", uint8(p))
}

// Next returns the phase that follows p, or PhaseResolved once terminal.
func (p SiegePhase) Next() SiegePhase {
	if p >= PhaseResolved {
		return PhaseResolved
	}
	return p + 1
}

// SiegeOutcome records how a resolved siege ended.
type SiegeOutcome uint8

const (
	OutcomePending SiegeOutcome = iota // siege still active
	OutcomeSuccess                     // defender held, ownership unchanged
	OutcomeCaptured                    // attacker took the planet
)

var siegeOutcomeNames = [...]string{"pending", "success", "captured"}

func (o SiegeOutcome) String() string {
	if int(o) < len(siegeOutcomeNames) {
		return siegeOutcomeNames[o]
	}
	return fmt.Sprintf("siege_outcome(%d)", uint8(o))
}

// Casualties are losses computed at siege resolution.
type Casualties struct {
	Colonists int `json:"colonists"`
	Fighters  int `json:"fighters"`
}

// Siege is the record of an active or resolved assault on a planet.
type Siege struct {
	AttackerID     PlayerID     `json:"attacker_id"`
	AttackPower    int          `json:"attack_power"`
	Phase          SiegePhase   `json:"phase"`
	Outcome        SiegeOutcome `json:"outcome"`
	PhaseStartedAt time.Time    `json:"phase_started_at"`
	DefenseBoost   int          `json:"defense_boost"` // temporary bonus from defense actions
	Casualties     Casualties   `json:"casualties"`
}

// Active reports whether the siege is still in progress.
func (s *Siege) Active() bool {
	return s != nil && s.Phase != PhaseResolved
}

// DefenseActionType is a discrete defender move during an active siege.
type DefenseActionType uint8

const (
	ActionScrambleFighters DefenseActionType = iota
	ActionEmergencyRepair
)

var defenseActionNames = [...]string{"scramble_fighters", "emergency_repair"}

func (a DefenseActionType) String() string {
	if int(a) < len(defenseActionNames) {
		return defenseActionNames[a]
	}
	return fmt.Sprintf("defense_action(%d)", uint8(a))
}

// ParseDefenseAction converts a wire-format name into a DefenseActionType.
func ParseDefenseAction(s string) (DefenseActionType, error) {
	for i, name := range defenseActionNames {
		if s == name {
			return DefenseActionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown defense action %q", s)
}

// Planet is the aggregate root. The Store owns every live instance;
// callers only ever see deep copies.
type Planet struct {
	ID       PlanetID `json:"id"`
	Name     string   `json:"name"`
	OwnerID  PlayerID `json:"owner_id"`
	SectorID uint64   `json:"sector_id"`

	Type           PlanetType     `json:"type"`
	Colonists      int            `json:"colonists"`
	MaxColonists   int            `json:"max_colonists"`
	Specialization Specialization `json:"specialization"`

	Allocations Allocations     `json:"allocations"`
	Production  ProductionRates `json:"production"`

	Buildings map[BuildingType]*Building `json:"buildings"`
	Defenses  Defenses                   `json:"defenses"`
	Siege     *Siege                     `json:"siege,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewBuildings returns the fixed building set, all at level 0.
func NewBuildings() map[BuildingType]*Building {
	m := make(map[BuildingType]*Building, len(buildingTypeNames))
	for _, t := range BuildingTypes() {
		m[t] = &Building{}
	}
	return m
}

// Clone returns a deep copy of the planet.
func (p *Planet) Clone() *Planet {
	cp := *p
	cp.Buildings = make(map[BuildingType]*Building, len(p.Buildings))
	for t, b := range p.Buildings {
		bc := *b
		if b.Upgrade != nil {
			up := *b.Upgrade
			bc.Upgrade = &up
		}
		cp.Buildings[t] = &bc
	}
	if p.Siege != nil {
		sg := *p.Siege
		cp.Siege = &sg
	}
	return &cp
}

// PendingWork reports whether the planet has timed work a tick sweep
// must advance: an in-flight upgrade or an unresolved siege.
func (p *Planet) PendingWork() bool {
	if p.Siege.Active() {
		return true
	}
	for _, b := range p.Buildings {
		if b.Upgrading() {
			return true
		}
	}
	return false
}
