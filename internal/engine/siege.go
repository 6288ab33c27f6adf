// Siege state machine. Phases move forward only:
// NONE → ORBITAL → BOMBARDMENT → INVASION → RESOLVED(success|captured).
// Illegal transitions are rejected and logged, never coerced.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

// DefenseEffectiveness scores a planet's resistance in [0,100]. Each
// defense type contributes a weighted square-root term (diminishing
// returns) against the recorded attacker power; the defense building adds
// a flat per-level bonus and active-siege action boosts stack on top.
func DefenseEffectiveness(bal *balance.Balance, p *colony.Planet, attackPower int) int {
	sb := bal.Siege

	raw := sb.TurretWeight*math.Sqrt(float64(p.Defenses.Turrets)) +
		sb.ShieldWeight*math.Sqrt(float64(p.Defenses.Shields)) +
		sb.FighterWeight*math.Sqrt(float64(p.Defenses.Fighters))
	if b, ok := p.Buildings[colony.BuildingDefense]; ok {
		raw += sb.DefenseLevelBonus * float64(b.Level)
	}

	eff := 0
	if raw > 0 {
		denom := raw + sb.PowerScale*float64(attackPower)
		eff = int(math.Floor(100 * raw / denom))
	}
	if p.Siege != nil {
		eff += p.Siege.DefenseBoost
	}

	if eff < 0 {
		eff = 0
	}
	if eff > 100 {
		eff = 100
	}
	return eff
}

// phaseDuration returns how long a siege phase lasts before advancing.
func phaseDuration(bal *balance.Balance, phase colony.SiegePhase) time.Duration {
	switch phase {
	case colony.PhaseOrbital:
		return time.Duration(bal.Siege.OrbitalMinutes) * time.Minute
	case colony.PhaseBombardment:
		return time.Duration(bal.Siege.BombardmentMinutes) * time.Minute
	case colony.PhaseInvasion:
		return time.Duration(bal.Siege.InvasionMinutes) * time.Minute
	}
	return 0
}

// InitiateSiege opens a siege against a planet. Allowed only when no
// siege is active, and only when the attack power beats the planet's
// current defense effectiveness by the configured margin.
func (e *Engine) InitiateSiege(_ context.Context, planetID colony.PlanetID, attackerID colony.PlayerID, attackPower int) error {
	const op = "initiate_siege"
	if attackerID == "" {
		return colony.NewError(colony.KindValidation, planetID, op, "attacker required")
	}
	if attackPower <= 0 {
		return colony.NewError(colony.KindValidation, planetID, op, "attack power must be positive")
	}

	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		if p.OwnerID == attackerID {
			return colony.NewError(colony.KindValidation, planetID, op, "cannot besiege own planet")
		}
		if p.Siege.Active() {
			return colony.NewError(colony.KindConflict, planetID, op, "siege already in progress")
		}

		eff := DefenseEffectiveness(e.bal, p, attackPower)
		if attackPower <= eff+e.bal.Siege.AttackMargin {
			return colony.NewError(colony.KindConflict, planetID, op,
				fmt.Sprintf("attack power %d does not exceed defense effectiveness %d by margin %d",
					attackPower, eff, e.bal.Siege.AttackMargin))
		}

		p.Siege = &colony.Siege{
			AttackerID:     attackerID,
			AttackPower:    attackPower,
			Phase:          colony.PhaseOrbital,
			Outcome:        colony.OutcomePending,
			PhaseStartedAt: e.now(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("siege initiated", "planet", planetID, "attacker", attackerID, "power", attackPower)
	e.bus.Publish(events.Event{
		Type:        events.TypeSiegePhaseChanged,
		PlanetID:    planetID,
		Description: fmt.Sprintf("siege opened by %s, orbital phase", attackerID),
		At:          e.now(),
		Data:        map[string]any{"phase": colony.PhaseOrbital.String()},
	})
	return nil
}

// IssueDefenseAction lets the defender act during the orbital or
// bombardment phase. A successful roll either boosts effectiveness or
// resets the current phase timer, applied before the next phase check.
func (e *Engine) IssueDefenseAction(_ context.Context, planetID colony.PlanetID, action colony.DefenseActionType) (bool, error) {
	const op = "issue_defense_action"
	tuning := e.bal.Siege.Action(action)
	if tuning == (balance.DefenseAction{}) {
		return false, colony.NewError(colony.KindValidation, planetID, op, "unknown defense action")
	}

	success := false
	err := e.store.WithPlanet(planetID, func(p *colony.Planet) error {
		if p.Siege == nil {
			return colony.NewError(colony.KindConflict, planetID, op, "no active siege")
		}
		if p.Siege.Phase == colony.PhaseResolved {
			err := colony.NewError(colony.KindStateTransition, planetID, op, "siege already resolved")
			slog.Warn("rejected siege action", "planet", planetID, "action", action.String(), "error", err)
			return err
		}
		if p.Siege.Phase != colony.PhaseOrbital && p.Siege.Phase != colony.PhaseBombardment {
			return colony.NewError(colony.KindConflict, planetID, op,
				fmt.Sprintf("defense actions not allowed in %s phase", p.Siege.Phase))
		}
		if action == colony.ActionScrambleFighters && p.Defenses.Fighters < 1 {
			return colony.NewError(colony.KindValidation, planetID, op, "no fighters to scramble")
		}

		if e.rolls.Float() < tuning.SuccessChance {
			success = true
			if tuning.ResetsPhase {
				p.Siege.PhaseStartedAt = e.now()
			} else {
				p.Siege.DefenseBoost += tuning.Boost
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	e.bus.Publish(events.Event{
		Type:        events.TypeDefenseActionResolved,
		PlanetID:    planetID,
		Description: fmt.Sprintf("defense action %s %s", action, outcomeWord(success)),
		At:          e.now(),
		Data:        map[string]any{"action": action.String(), "success": success},
	})
	return success, nil
}

func outcomeWord(success bool) string {
	if success {
		return "succeeded"
	}
	return "failed"
}

// siegeChange describes what a sweep did to a siege, for notification
// after the planet lock is released.
type siegeChange struct {
	phase    colony.SiegePhase
	outcome  colony.SiegeOutcome
	attacker colony.PlayerID
	losses   colony.Casualties
}

// advanceSiege moves an expired phase forward, resolving at invasion
// expiry. Runs under the planet lock; returns nil when nothing was due.
func advanceSiege(p *colony.Planet, e *Engine, now time.Time) *siegeChange {
	if !p.Siege.Active() {
		return nil
	}

	elapsed := now.Sub(p.Siege.PhaseStartedAt)
	if elapsed < phaseDuration(e.bal, p.Siege.Phase) {
		return nil
	}

	if p.Siege.Phase == colony.PhaseInvasion {
		return resolveSiege(p, e)
	}

	// Action boosts are per-phase; they expire on advancement.
	p.Siege.Phase = p.Siege.Phase.Next()
	p.Siege.PhaseStartedAt = now
	p.Siege.DefenseBoost = 0
	return &siegeChange{phase: p.Siege.Phase, attacker: p.Siege.AttackerID}
}

// resolveSiege settles the siege at invasion expiry. The effectiveness
// snapshot used for the capture decision is the same one used for the
// casualty math.
func resolveSiege(p *colony.Planet, e *Engine) *siegeChange {
	sb := e.bal.Siege
	eff := DefenseEffectiveness(e.bal, p, p.Siege.AttackPower)

	factor := sb.CasualtyFull
	outcome := colony.OutcomeCaptured
	if eff >= sb.CaptureThreshold {
		factor = sb.CasualtyReduced
		outcome = colony.OutcomeSuccess
	}

	loss := 1.0 - float64(eff)/100.0
	casualties := colony.Casualties{
		Colonists: clampLoss(int(math.Floor(float64(p.Colonists)*loss*factor)), p.Colonists),
		Fighters:  clampLoss(int(math.Floor(float64(p.Defenses.Fighters)*loss*factor)), p.Defenses.Fighters),
	}

	p.Colonists -= casualties.Colonists
	p.Defenses.Fighters -= casualties.Fighters
	p.Siege.Phase = colony.PhaseResolved
	p.Siege.Outcome = outcome
	p.Siege.Casualties = casualties
	p.Siege.DefenseBoost = 0

	attacker := p.Siege.AttackerID
	if outcome == colony.OutcomeCaptured {
		p.OwnerID = attacker
	}
	return &siegeChange{
		phase:    colony.PhaseResolved,
		outcome:  outcome,
		attacker: attacker,
		losses:   casualties,
	}
}

func clampLoss(loss, pool int) int {
	if loss < 0 {
		return 0
	}
	if loss > pool {
		return pool
	}
	return loss
}

// notifySiegeChange publishes phase/resolution events and mirrors
// ownership transfers to the registry. Called after the planet lock is
// released; registry failures are logged, local state is already settled.
func (e *Engine) notifySiegeChange(ctx context.Context, planetID colony.PlanetID, ch *siegeChange) {
	if ch == nil {
		return
	}

	if ch.phase != colony.PhaseResolved {
		e.bus.Publish(events.Event{
			Type:        events.TypeSiegePhaseChanged,
			PlanetID:    planetID,
			Description: fmt.Sprintf("siege advanced to %s phase", ch.phase),
			At:          e.now(),
			Data:        map[string]any{"phase": ch.phase.String()},
		})
		return
	}

	slog.Info("siege resolved",
		"planet", planetID,
		"outcome", ch.outcome.String(),
		"colonist_losses", ch.losses.Colonists,
		"fighter_losses", ch.losses.Fighters,
	)
	e.bus.Publish(events.Event{
		Type:        events.TypeSiegeResolved,
		PlanetID:    planetID,
		Description: fmt.Sprintf("siege resolved: %s", ch.outcome),
		At:          e.now(),
		Data: map[string]any{
			"outcome":         ch.outcome.String(),
			"colonist_losses": ch.losses.Colonists,
			"fighter_losses":  ch.losses.Fighters,
		},
	})

	if ch.outcome == colony.OutcomeCaptured {
		if err := e.registry.TransferOwnership(ctx, planetID, ch.attacker); err != nil {
			slog.Error("ownership registry transfer failed", "planet", planetID, "error", err)
		}
	}
}
