// Production math. ComputeProduction is a pure function of allocations,
// specialization, building levels, and planet type: identical inputs
// always yield identical rates.
package engine

import (
	"math"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
)

// resourceBuilding maps each resource to the building that boosts it.
func resourceBuilding(r colony.Resource) colony.BuildingType {
	switch r {
	case colony.ResourceFuel:
		return colony.BuildingMine
	case colony.ResourceOrganics:
		return colony.BuildingFarm
	case colony.ResourceEquipment:
		return colony.BuildingFactory
	}
	return colony.BuildingFactory
}

// ComputeProduction derives per-hour production rates for a planet.
// Output values are floored and never negative.
func ComputeProduction(bal *balance.Balance, p *colony.Planet) colony.ProductionRates {
	prod := bal.Production
	typeMul := bal.PlanetTypes.Profile(p.Type).Multipliers
	specMul := bal.Specializations.Multipliers(p.Specialization)

	researchLevel := 0
	if b, ok := p.Buildings[colony.BuildingResearch]; ok {
		researchLevel = b.Level
	}
	research := 1.0 + prod.ResearchBonusPerLvl*float64(researchLevel)

	rates := colony.ProductionRates{}
	for _, r := range []colony.Resource{colony.ResourceFuel, colony.ResourceOrganics, colony.ResourceEquipment} {
		alloc := p.Allocations.Get(r)

		contribution := float64(prod.BaseRate) * (float64(alloc) / 100.0) * prod.Factor(r)
		contribution *= typeMul.Get(r)
		contribution *= specMul.Get(r)

		level := 0
		if b, ok := p.Buildings[resourceBuilding(r)]; ok {
			level = b.Level
		}
		contribution *= 1.0 + prod.BuildingBonusPerLvl*float64(level)
		contribution *= research

		value := int(math.Floor(contribution))
		if value < 0 {
			value = 0
		}

		switch r {
		case colony.ResourceFuel:
			rates.Fuel = value
		case colony.ResourceOrganics:
			rates.Organics = value
		case colony.ResourceEquipment:
			rates.Equipment = value
		}
	}

	// Colonist growth rides on the unused residual: every full 10 points
	// of unused allocation adds one percent to the base growth figure.
	bonus := p.Allocations.Unused / 10
	growth := prod.ColonistBaseGrowth * (100 + bonus) / 100
	if growth < 0 {
		growth = 0
	}
	rates.Colonists = growth

	return rates
}
