// Building upgrade scheduler. Cost reservation is one atomic ledger
// transaction; the upgrade slot is claimed under the planet lock so a
// completion and a new request can never both win the same slot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/economy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

// UpgradeCost computes the full cost of upgrading a building from its
// current level: credits double each level, resources scale linearly.
func (e *Engine) UpgradeCost(t colony.BuildingType, level int) economy.Cost {
	profile := e.bal.Buildings.Cost(t)
	scale := int64(level + 1)
	return economy.Cost{
		Credits:   int64(profile.BaseCredits) << uint(level),
		Fuel:      int64(profile.Fuel) * scale,
		Organics:  int64(profile.Organics) * scale,
		Equipment: int64(profile.Equipment) * scale,
	}
}

// UpgradeDuration returns how long the upgrade from the given level takes.
func (e *Engine) UpgradeDuration(t colony.BuildingType, level int) time.Duration {
	profile := e.bal.Buildings.Cost(t)
	return time.Duration(profile.BaseMinutes*(level+1)) * time.Minute
}

// RequestUpgrade reserves the upgrade cost and schedules the completion.
// Rejections leave the planet and the ledger untouched.
func (e *Engine) RequestUpgrade(ctx context.Context, planetID colony.PlanetID, t colony.BuildingType) error {
	const op = "request_upgrade"

	var cost economy.Cost
	var completion time.Time
	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		b, ok := p.Buildings[t]
		if !ok {
			return colony.NewError(colony.KindValidation, planetID, op, "unknown building type")
		}
		if b.Level >= colony.MaxBuildingLevel {
			return colony.NewError(colony.KindConflict, planetID, op,
				fmt.Sprintf("%s already at max level %d", t, colony.MaxBuildingLevel))
		}
		if b.Upgrading() {
			return colony.NewError(colony.KindConflict, planetID, op,
				fmt.Sprintf("%s upgrade already in flight", t))
		}

		// Atomic check-and-deduct against the shared player ledger.
		// The planet lock is held across the call so the slot claim and
		// the reservation commit or fail together.
		cost = e.UpgradeCost(t, b.Level)
		if err := e.ledger.TryDeduct(ctx, p.OwnerID, cost); err != nil {
			if errors.Is(err, economy.ErrInsufficientFunds) {
				return colony.WrapError(colony.KindResource, planetID, op, err)
			}
			return colony.WrapError(colony.KindInfrastructure, planetID, op, err)
		}

		completion = e.now().Add(e.UpgradeDuration(t, b.Level))
		b.Upgrade = &colony.Upgrade{
			TargetLevel:  b.Level + 1,
			CompletionAt: completion,
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.bus.Publish(events.Event{
		Type:        events.TypeUpgradeStarted,
		PlanetID:    planetID,
		Description: fmt.Sprintf("%s upgrade started, completes at %s", t, completion.Format(time.RFC3339)),
		At:          e.now(),
		Data:        map[string]any{"building": t.String(), "credits": cost.Credits},
	})
	return nil
}

// completeDueUpgrades finishes every upgrade whose timer has elapsed.
// Completion clears the upgrade slot before anything else can observe it,
// so a second sweep at the same timestamp is a no-op. Returns the
// building types completed.
func completeDueUpgrades(p *colony.Planet, e *Engine, now time.Time) []colony.BuildingType {
	var done []colony.BuildingType
	for _, t := range colony.BuildingTypes() {
		b := p.Buildings[t]
		if !b.Upgrading() || b.Upgrade.CompletionAt.After(now) {
			continue
		}
		b.Level = b.Upgrade.TargetLevel
		b.Upgrade = nil
		done = append(done, t)
	}
	if len(done) > 0 {
		p.Production = ComputeProduction(e.bal, p)
	}
	return done
}
