// Allocation engine. The four allocation values always sum to exactly
// 100 after every call; over-allocation is resolved by scaling the other
// two resources proportionally to their share of their own sum, with the
// flooring remainder landing in unused.
package engine

import (
	"context"
	"fmt"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

// Preset is a named fixed allocation tuple.
type Preset uint8

const (
	PresetBalanced Preset = iota
	PresetFuelFocus
	PresetOrganicsFocus
	PresetEquipmentFocus
	PresetGrowthFocus
)

var presetNames = [...]string{"balanced", "fuel_focus", "organics_focus", "equipment_focus", "growth_focus"}

func (p Preset) String() string {
	if int(p) < len(presetNames) {
		return presetNames[p]
	}
	return fmt.Sprintf("preset(%d)", uint8(p))
}

// ParsePreset converts a wire-format name into a Preset.
func ParsePreset(s string) (Preset, error) {
	for i, name := range presetNames {
		if s == name {
			return Preset(i), nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q", s)
}

// PresetTuple returns the fixed four-tuple for a preset.
func PresetTuple(p Preset) colony.Allocations {
	switch p {
	case PresetFuelFocus:
		return colony.Allocations{Fuel: 60, Organics: 15, Equipment: 15, Unused: 10}
	case PresetOrganicsFocus:
		return colony.Allocations{Fuel: 15, Organics: 60, Equipment: 15, Unused: 10}
	case PresetEquipmentFocus:
		return colony.Allocations{Fuel: 15, Organics: 15, Equipment: 60, Unused: 10}
	case PresetGrowthFocus:
		return colony.Allocations{Fuel: 20, Organics: 20, Equipment: 20, Unused: 40}
	}
	return colony.Allocations{Fuel: 25, Organics: 25, Equipment: 25, Unused: 25}
}

// SetAllocation sets one resource's allocation percentage. Cannot fail
// once input validation passes: a consistent assignment always exists.
func (e *Engine) SetAllocation(_ context.Context, planetID colony.PlanetID, r colony.Resource, value int) error {
	const op = "set_allocation"
	if value < 0 || value > 100 {
		return colony.NewError(colony.KindValidation, planetID, op,
			fmt.Sprintf("allocation %d out of range [0,100]", value))
	}
	switch r {
	case colony.ResourceFuel, colony.ResourceOrganics, colony.ResourceEquipment:
	default:
		return colony.NewError(colony.KindValidation, planetID, op, "unknown resource")
	}

	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		p.Allocations = applyAllocation(p.Allocations, r, value)
		p.Production = ComputeProduction(e.bal, p)
		return nil
	})
	if err != nil {
		return err
	}

	e.bus.Publish(events.Event{
		Type:        events.TypeAllocationChanged,
		PlanetID:    planetID,
		Description: fmt.Sprintf("%s allocation set to %d%%", r, value),
		At:          e.now(),
	})
	return nil
}

// ApplyPreset atomically replaces the allocation tuple, bypassing the
// proportional-reduction logic, and recomputes production.
func (e *Engine) ApplyPreset(_ context.Context, planetID colony.PlanetID, preset Preset) error {
	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		p.Allocations = PresetTuple(preset)
		p.Production = ComputeProduction(e.bal, p)
		return nil
	})
	if err != nil {
		return err
	}

	e.bus.Publish(events.Event{
		Type:        events.TypeAllocationChanged,
		PlanetID:    planetID,
		Description: fmt.Sprintf("allocation preset %s applied", preset),
		At:          e.now(),
	})
	return nil
}

// applyAllocation sets resource r to value and rebalances the other two.
// When the three allocatable values would exceed 100, the other two are
// scaled down proportionally to their share of their own sum, floored;
// the flooring remainder lands in unused. Unused is always the residual.
func applyAllocation(a colony.Allocations, r colony.Resource, value int) colony.Allocations {
	otherA, otherB := otherResources(r)
	oa := a.Get(otherA)
	ob := a.Get(otherB)

	available := 100 - value
	if sum := oa + ob; sum > available {
		// Proportional reduction, floored. sum > 0 here because
		// sum > available >= 0.
		oa = oa * available / sum
		ob = ob * available / sum
	}

	out := colony.Allocations{}
	setAlloc(&out, r, value)
	setAlloc(&out, otherA, oa)
	setAlloc(&out, otherB, ob)
	out.Unused = 100 - value - oa - ob
	return out
}

func otherResources(r colony.Resource) (colony.Resource, colony.Resource) {
	switch r {
	case colony.ResourceFuel:
		return colony.ResourceOrganics, colony.ResourceEquipment
	case colony.ResourceOrganics:
		return colony.ResourceFuel, colony.ResourceEquipment
	default:
		return colony.ResourceFuel, colony.ResourceOrganics
	}
}

func setAlloc(a *colony.Allocations, r colony.Resource, value int) {
	switch r {
	case colony.ResourceFuel:
		a.Fuel = value
	case colony.ResourceOrganics:
		a.Organics = value
	case colony.ResourceEquipment:
		a.Equipment = value
	}
}
