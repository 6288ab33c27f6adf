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

// recordingRegistry captures ownership transfers for assertions.
type recordingRegistry struct {
	mu        sync.Mutex
	transfers map[colony.PlanetID]colony.PlayerID
}

func (r *recordingRegistry) TransferOwnership(_ context.Context, planetID colony.PlanetID, newOwnerID colony.PlayerID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transfers == nil {
		r.transfers = make(map[colony.PlanetID]colony.PlayerID)
	}
	r.transfers[planetID] = newOwnerID
	return nil
}

func (r *recordingRegistry) owner(id colony.PlanetID) (colony.PlayerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.transfers[id]
	return o, ok
}

// newSiegeRig builds a rig with scripted defense-action rolls and a
// recording ownership registry.
func newSiegeRig(t *testing.T, rolls *entropy.Fixed) (*testRig, *recordingRegistry) {
	t.Helper()
	clock := newFakeClock()
	ledger := economy.NewMemoryLedger()
	reg := &recordingRegistry{}
	eng := New(Config{
		Balance:  balance.Default(),
		Ledger:   ledger,
		Registry: reg,
		Rolls:    rolls,
		Now:      clock.Now,
	})
	return &testRig{eng: eng, clock: clock, ledger: ledger, rolls: rolls}, reg
}

func TestDefenseEffectiveness(t *testing.T) {
	bal := balance.Default()

	cases := []struct {
		name     string
		defenses colony.Defenses
		defLevel int
		boost    int
		power    int
		want     int
	}{
		{name: "undefended", power: 500, want: 0},
		// raw = 4*20 + 5*20 + 2.5*20 = 230; 100*230/(230+10) = 95.83 -> 95
		{name: "heavy defenses", defenses: colony.Defenses{Turrets: 400, Shields: 400, Fighters: 400}, power: 200, want: 95},
		// raw = 2.5*4 = 10; 100*10/(10+40) = 20
		{name: "token fighters", defenses: colony.Defenses{Fighters: 16}, power: 800, want: 20},
		// defense building contributes with no hardware: raw = 5*3 = 15; 100*15/(15+10) = 60
		{name: "building only", defLevel: 3, power: 200, want: 60},
		{name: "boost clamps at 100", defenses: colony.Defenses{Turrets: 400, Shields: 400, Fighters: 400}, boost: 50, power: 200, want: 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPlanet()
			p.Defenses = tc.defenses
			p.Buildings[colony.BuildingDefense].Level = tc.defLevel
			if tc.boost != 0 {
				p.Siege = &colony.Siege{Phase: colony.PhaseOrbital, DefenseBoost: tc.boost}
			}
			if got := DefenseEffectiveness(bal, p, tc.power); got != tc.want {
				t.Errorf("effectiveness = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestInitiateSiege_Validation(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	if err := rig.eng.InitiateSiege(ctx, id, "", 500); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("empty attacker: got %v, want validation error", err)
	}
	if err := rig.eng.InitiateSiege(ctx, id, "raider", 0); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("zero power: got %v, want validation error", err)
	}
	if err := rig.eng.InitiateSiege(ctx, id, "player-1", 500); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("own planet: got %v, want validation error", err)
	}

	if s, err := rig.eng.GetSiegeStatus(ctx, id); err != nil || s != nil {
		t.Errorf("rejected initiations left siege record %+v, err %v", s, err)
	}
}

func TestInitiateSiege_MarginReject(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	// Effectiveness 97 vs power 100 fails the +10 margin.
	if err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Turrets: 400, Shields: 400, Fighters: 400}); err != nil {
		t.Fatalf("set defenses: %v", err)
	}
	err := rig.eng.InitiateSiege(ctx, id, "raider", 100)
	if colony.KindOf(err) != colony.KindConflict {
		t.Fatalf("underpowered attack: got %v, want conflict error", err)
	}
}

func TestInitiateSiege_ConflictWhenActive(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	if err := rig.eng.InitiateSiege(ctx, id, "raider", 500); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	err := rig.eng.InitiateSiege(ctx, id, "second-raider", 900)
	if colony.KindOf(err) != colony.KindConflict {
		t.Errorf("second siege: got %v, want conflict error", err)
	}
	s, _ := rig.eng.GetSiegeStatus(ctx, id)
	if s == nil || s.AttackerID != "raider" {
		t.Errorf("original siege displaced: %+v", s)
	}
}

func TestSiege_PhaseProgressionAndDefendedResolution(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()
	coord := NewCoordinator(rig.eng, time.Second, 2)

	if err := rig.eng.InitiateSiege(ctx, id, "raider", 200); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	// Reinforce after the siege opens: effectiveness climbs to 95.
	if err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Turrets: 400, Shields: 400, Fighters: 400}); err != nil {
		t.Fatalf("set defenses: %v", err)
	}

	wantPhases := []colony.SiegePhase{colony.PhaseBombardment, colony.PhaseInvasion, colony.PhaseResolved}
	durations := []time.Duration{10 * time.Minute, 15 * time.Minute, 20 * time.Minute}
	for i, d := range durations {
		// Just short of the boundary: no movement.
		rig.clock.Advance(d - time.Minute)
		coord.Sweep(ctx, rig.clock.Now())
		if s, _ := rig.eng.GetSiegeStatus(ctx, id); s.Phase == wantPhases[i] {
			t.Fatalf("phase advanced %v early", time.Minute)
		}

		rig.clock.Advance(time.Minute)
		stats := coord.Sweep(ctx, rig.clock.Now())
		if stats.SiegeMoves != 1 {
			t.Fatalf("step %d: siege moves = %d, want 1", i, stats.SiegeMoves)
		}
		s, _ := rig.eng.GetSiegeStatus(ctx, id)
		if s.Phase != wantPhases[i] {
			t.Fatalf("step %d: phase = %s, want %s", i, s.Phase, wantPhases[i])
		}
	}

	p := rig.planet(t, id)
	s := p.Siege
	if s.Outcome != colony.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success", s.Outcome)
	}
	// loss = floor(pool * (1 - 95/100) * 0.2): 1% of each pool.
	if s.Casualties.Colonists != 10 || s.Casualties.Fighters != 4 {
		t.Errorf("casualties = %+v, want {Colonists:10 Fighters:4}", s.Casualties)
	}
	if p.Colonists != 990 || p.Defenses.Fighters != 396 {
		t.Errorf("pools after resolution: colonists=%d fighters=%d", p.Colonists, p.Defenses.Fighters)
	}
	if p.OwnerID != "player-1" {
		t.Errorf("defended siege must not transfer ownership, owner = %s", p.OwnerID)
	}
}

func TestSiege_CaptureTransfersOwnership(t *testing.T) {
	rig, reg := newSiegeRig(t, entropy.NewFixed(0.99))
	id := rig.deploy(t)
	ctx := context.Background()
	coord := NewCoordinator(rig.eng, time.Second, 2)

	// Effectiveness 20: resolution falls below the capture threshold.
	if err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Fighters: 16}); err != nil {
		t.Fatalf("set defenses: %v", err)
	}
	if err := rig.eng.InitiateSiege(ctx, id, "raider", 800); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	for _, d := range []time.Duration{10 * time.Minute, 15 * time.Minute, 20 * time.Minute} {
		rig.clock.Advance(d)
		coord.Sweep(ctx, rig.clock.Now())
	}

	p := rig.planet(t, id)
	s := p.Siege
	if s.Phase != colony.PhaseResolved || s.Outcome != colony.OutcomeCaptured {
		t.Fatalf("siege = %+v, want resolved/captured", s)
	}
	if p.OwnerID != "raider" {
		t.Errorf("owner = %s, want raider", p.OwnerID)
	}
	if got, ok := reg.owner(id); !ok || got != "raider" {
		t.Errorf("registry transfer = %q (%v), want raider", got, ok)
	}
	// loss = floor(pool * (1 - 20/100) * 0.5): 40% of each pool.
	if s.Casualties.Colonists != 400 || s.Casualties.Fighters != 6 {
		t.Errorf("casualties = %+v, want {Colonists:400 Fighters:6}", s.Casualties)
	}
	if p.Colonists != 600 || p.Defenses.Fighters != 10 {
		t.Errorf("pools after capture: colonists=%d fighters=%d", p.Colonists, p.Defenses.Fighters)
	}
}

func TestIssueDefenseAction_PhaseRules(t *testing.T) {
	rig := newTestRig(t)
	id := rig.deploy(t)
	ctx := context.Background()

	if _, err := rig.eng.IssueDefenseAction(ctx, id, colony.ActionEmergencyRepair); colony.KindOf(err) != colony.KindConflict {
		t.Errorf("no siege: got %v, want conflict error", err)
	}

	if err := rig.eng.InitiateSiege(ctx, id, "raider", 500); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := rig.eng.IssueDefenseAction(ctx, id, colony.ActionScrambleFighters); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("scramble with no fighters: got %v, want validation error", err)
	}
	if _, err := rig.eng.IssueDefenseAction(ctx, id, colony.DefenseActionType(9)); colony.KindOf(err) != colony.KindValidation {
		t.Errorf("unknown action: got %v, want validation error", err)
	}

	// Resolved sieges reject actions as illegal transitions.
	coord := NewCoordinator(rig.eng, time.Second, 2)
	for _, d := range []time.Duration{10 * time.Minute, 15 * time.Minute, 20 * time.Minute} {
		rig.clock.Advance(d)
		coord.Sweep(ctx, rig.clock.Now())
	}
	if _, err := rig.eng.IssueDefenseAction(ctx, id, colony.ActionEmergencyRepair); colony.KindOf(err) != colony.KindStateTransition {
		t.Errorf("resolved siege: got %v, want state-transition error", err)
	}
}

func TestIssueDefenseAction_ScrambleBoostsAndExpires(t *testing.T) {
	// First roll succeeds the scramble, later rolls fail.
	rig, _ := newSiegeRig(t, entropy.NewFixed(0.1, 0.99))
	id := rig.deploy(t)
	ctx := context.Background()

	if err := rig.eng.SetDefenses(ctx, id, colony.Defenses{Fighters: 4}); err != nil {
		t.Fatalf("set defenses: %v", err)
	}
	if err := rig.eng.InitiateSiege(ctx, id, "raider", 200); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	ok, err := rig.eng.IssueDefenseAction(ctx, id, colony.ActionScrambleFighters)
	if err != nil || !ok {
		t.Fatalf("scramble: ok=%v err=%v, want success", ok, err)
	}
	s, _ := rig.eng.GetSiegeStatus(ctx, id)
	if s.DefenseBoost != 15 {
		t.Fatalf("boost = %d, want 15", s.DefenseBoost)
	}

	ok, err = rig.eng.IssueDefenseAction(ctx, id, colony.ActionScrambleFighters)
	if err != nil || ok {
		t.Fatalf("second scramble: ok=%v err=%v, want failed roll", ok, err)
	}
	s, _ = rig.eng.GetSiegeStatus(ctx, id)
	if s.DefenseBoost != 15 {
		t.Fatalf("failed roll changed boost to %d", s.DefenseBoost)
	}

	// Boosts are per-phase: advancing to bombardment clears them.
	coord := NewCoordinator(rig.eng, time.Second, 2)
	rig.clock.Advance(10 * time.Minute)
	coord.Sweep(ctx, rig.clock.Now())
	s, _ = rig.eng.GetSiegeStatus(ctx, id)
	if s.Phase != colony.PhaseBombardment || s.DefenseBoost != 0 {
		t.Errorf("after advance: phase=%s boost=%d, want bombardment/0", s.Phase, s.DefenseBoost)
	}
}

func TestIssueDefenseAction_RepairResetsPhaseTimer(t *testing.T) {
	rig, _ := newSiegeRig(t, entropy.NewFixed(0.1))
	id := rig.deploy(t)
	ctx := context.Background()
	coord := NewCoordinator(rig.eng, time.Second, 2)

	if err := rig.eng.InitiateSiege(ctx, id, "raider", 500); err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// Eight minutes in, a successful repair restarts the orbital clock.
	rig.clock.Advance(8 * time.Minute)
	ok, err := rig.eng.IssueDefenseAction(ctx, id, colony.ActionEmergencyRepair)
	if err != nil || !ok {
		t.Fatalf("repair: ok=%v err=%v, want success", ok, err)
	}

	// Eight more minutes: past the original boundary but not the reset one.
	rig.clock.Advance(8 * time.Minute)
	coord.Sweep(ctx, rig.clock.Now())
	if s, _ := rig.eng.GetSiegeStatus(ctx, id); s.Phase != colony.PhaseOrbital {
		t.Fatalf("phase = %s, want orbital until reset timer expires", s.Phase)
	}

	rig.clock.Advance(2 * time.Minute)
	coord.Sweep(ctx, rig.clock.Now())
	if s, _ := rig.eng.GetSiegeStatus(ctx, id); s.Phase != colony.PhaseBombardment {
		t.Errorf("phase = %s, want bombardment after full reset duration", s.Phase)
	}
}
