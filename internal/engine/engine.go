// Package engine implements the colony simulation: allocation math,
// production, building upgrades, and the siege state machine. All planet
// mutations go through the colony store's per-planet locks.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/economy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/entropy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/galaxy"
)

// genesisColonistSeed is the baseline colonist count at deployment,
// scaled by sector habitability.
const genesisColonistSeed = 1000

// OwnershipRegistry mirrors planet ownership to the wider game on capture.
type OwnershipRegistry interface {
	TransferOwnership(ctx context.Context, planetID colony.PlanetID, newOwnerID colony.PlayerID) error
}

// LogRegistry is the default registry: it only records the transfer.
type LogRegistry struct{}

// TransferOwnership logs the ownership change.
func (LogRegistry) TransferOwnership(_ context.Context, planetID colony.PlanetID, newOwnerID colony.PlayerID) error {
	slog.Info("ownership transferred", "planet", planetID, "new_owner", newOwnerID)
	return nil
}

// Config wires the engine's collaborators.
type Config struct {
	Store    *colony.Store
	Balance  *balance.Balance
	Ledger   economy.Ledger
	Registry OwnershipRegistry
	Bus      *events.Bus
	Rolls    entropy.Source
	Galaxy   *galaxy.Directory
	Now      func() time.Time // defaults to time.Now
}

// Engine exposes the colony operations callable by the rest of the system.
type Engine struct {
	store    *colony.Store
	bal      *balance.Balance
	ledger   economy.Ledger
	registry OwnershipRegistry
	bus      *events.Bus
	rolls    entropy.Source
	galaxy   *galaxy.Directory
	now      func() time.Time
}

// New creates an engine, filling in defaults for optional collaborators.
func New(cfg Config) *Engine {
	e := &Engine{
		store:    cfg.Store,
		bal:      cfg.Balance,
		ledger:   cfg.Ledger,
		registry: cfg.Registry,
		bus:      cfg.Bus,
		rolls:    cfg.Rolls,
		galaxy:   cfg.Galaxy,
		now:      cfg.Now,
	}
	if e.store == nil {
		e.store = colony.NewStore()
	}
	if e.bal == nil {
		e.bal = balance.Default()
	}
	if e.ledger == nil {
		e.ledger = economy.NewMemoryLedger()
	}
	if e.registry == nil {
		e.registry = LogRegistry{}
	}
	if e.bus == nil {
		e.bus = events.NewBus()
	}
	if e.rolls == nil {
		e.rolls = entropy.New()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Store returns the underlying colony store.
func (e *Engine) Store() *colony.Store {
	return e.store
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *events.Bus {
	return e.bus
}

// Balance returns the active balance table.
func (e *Engine) Balance() *balance.Balance {
	return e.bal
}

// DeployGenesis creates a planet in the given sector with the balanced
// allocation preset and all buildings at level 0. The sector's
// habitability scales the starting colonist count.
func (e *Engine) DeployGenesis(_ context.Context, sectorID uint64, name string, ptype colony.PlanetType, ownerID colony.PlayerID) (colony.PlanetID, error) {
	const op = "deploy_genesis"
	if name == "" {
		return "", colony.NewError(colony.KindValidation, "", op, "planet name required")
	}
	if ownerID == "" {
		return "", colony.NewError(colony.KindValidation, "", op, "owner required")
	}

	profile := e.bal.PlanetTypes.Profile(ptype)

	habitability := 0.5
	if e.galaxy != nil {
		habitability = e.galaxy.Habitability(sectorID)
	}
	colonists := int(float64(genesisColonistSeed) * (0.5 + habitability))
	if colonists > profile.MaxColonists {
		colonists = profile.MaxColonists
	}

	p := &colony.Planet{
		ID:           uuid.NewString(),
		Name:         name,
		OwnerID:      ownerID,
		SectorID:     sectorID,
		Type:         ptype,
		Colonists:    colonists,
		MaxColonists: profile.MaxColonists,
		Allocations:  PresetTuple(PresetBalanced),
		Buildings:    colony.NewBuildings(),
		CreatedAt:    e.now(),
	}
	p.Production = ComputeProduction(e.bal, p)

	if err := e.store.Put(p); err != nil {
		return "", err
	}

	slog.Info("genesis deployment",
		"planet", p.ID,
		"name", name,
		"type", ptype.String(),
		"sector", sectorID,
		"owner", ownerID,
		"colonists", colonists,
	)
	e.bus.Publish(events.Event{
		Type:        events.TypeGenesisDeployed,
		PlanetID:    p.ID,
		Description: fmt.Sprintf("%s colonized (%s) in sector %d", name, ptype, sectorID),
		At:          e.now(),
	})
	return p.ID, nil
}

// GetPlanet returns a snapshot of the planet state.
func (e *Engine) GetPlanet(_ context.Context, planetID colony.PlanetID) (*colony.Planet, error) {
	return e.store.Get(planetID)
}

// GetSiegeStatus returns the planet's siege record, or nil when the
// planet has never been besieged.
func (e *Engine) GetSiegeStatus(_ context.Context, planetID colony.PlanetID) (*colony.Siege, error) {
	p, err := e.store.Get(planetID)
	if err != nil {
		return nil, err
	}
	return p.Siege, nil
}

// SetDefenses replaces the planet's defense configuration. Each count is
// independently configurable and must be non-negative.
func (e *Engine) SetDefenses(_ context.Context, planetID colony.PlanetID, d colony.Defenses) error {
	const op = "set_defenses"
	if d.Turrets < 0 || d.Shields < 0 || d.Fighters < 0 {
		return colony.NewError(colony.KindValidation, planetID, op, "defense counts must be non-negative")
	}

	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		p.Defenses = d
		return nil
	})
	if err != nil {
		return err
	}

	e.bus.Publish(events.Event{
		Type:        events.TypeDefensesChanged,
		PlanetID:    planetID,
		Description: fmt.Sprintf("defenses reconfigured: %d turrets, %d shields, %d fighters", d.Turrets, d.Shields, d.Fighters),
		At:          e.now(),
	})
	return nil
}

// SetSpecialization switches the colony-wide bonus profile and recomputes
// production.
func (e *Engine) SetSpecialization(_ context.Context, planetID colony.PlanetID, spec colony.Specialization) error {
	return e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		p.Specialization = spec
		p.Production = ComputeProduction(e.bal, p)
		return nil
	})
}
