// Tick coordinator. A single clock sweeps every planet with pending
// timed work once per interval through a worker pool. A planet whose
// lock is held by an in-flight player action is skipped and retried on
// the next sweep; one planet's failure never stops the sweep.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/events"
)

// Coordinator drives all time-based state forward.
type Coordinator struct {
	engine   *Engine
	interval time.Duration
	workers  int

	// Colonist growth applies once per growthEvery of simulated time.
	growthEvery time.Duration
	lastGrowth  time.Time

	sweeps  uint64
	stop    chan struct{}
	stopped chan struct{}
}

// SweepStats summarizes one sweep.
type SweepStats struct {
	Pending    int
	Skipped    int
	Errors     int
	Upgrades   int
	SiegeMoves int
}

// NewCoordinator creates a coordinator. Defaults: 5s interval, 4 workers,
// hourly colonist growth.
func NewCoordinator(e *Engine, interval time.Duration, workers int) *Coordinator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if workers < 1 {
		workers = 4
	}
	return &Coordinator{
		engine:      e,
		interval:    interval,
		workers:     workers,
		growthEvery: time.Hour,
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Run sweeps on the fixed cadence until Stop is called. Blocks.
func (c *Coordinator) Run(ctx context.Context) {
	slog.Info("tick coordinator started", "interval", c.interval, "workers", c.workers)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.stopped)

	for {
		select {
		case <-c.stop:
			slog.Info("tick coordinator stopped", "sweeps", c.sweeps)
			return
		case <-ctx.Done():
			slog.Info("tick coordinator context done", "sweeps", c.sweeps)
			return
		case <-ticker.C:
			c.Sweep(ctx, c.engine.now())
		}
	}
}

// Stop halts the loop and waits for the current sweep to finish.
func (c *Coordinator) Stop() {
	close(c.stop)
	<-c.stopped
}

// Sweep advances upgrades and siege phases for every planet with pending
// work, exactly once for the given timestamp. Safe to call again with
// the same timestamp: completions clear their flags first.
func (c *Coordinator) Sweep(ctx context.Context, now time.Time) SweepStats {
	c.sweeps++
	stats := SweepStats{}

	ids := c.engine.store.Pending()
	stats.Pending = len(ids)

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan colony.PlanetID)

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				locked, done, moved, err := c.sweepPlanet(ctx, id, now)
				mu.Lock()
				if !locked {
					stats.Skipped++
				}
				if err != nil {
					stats.Errors++
				}
				stats.Upgrades += done
				if moved {
					stats.SiegeMoves++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		work <- id
	}
	close(work)
	wg.Wait()

	c.maybeGrow(now)

	if stats.Upgrades > 0 || stats.SiegeMoves > 0 || stats.Errors > 0 {
		slog.Info("sweep",
			"pending", stats.Pending,
			"skipped", stats.Skipped,
			"upgrades_completed", stats.Upgrades,
			"siege_moves", stats.SiegeMoves,
			"errors", stats.Errors,
		)
	}
	return stats
}

// sweepPlanet advances one planet. Returns whether the lock was acquired,
// how many upgrades completed, and whether a siege phase moved.
func (c *Coordinator) sweepPlanet(ctx context.Context, id colony.PlanetID, now time.Time) (locked bool, upgrades int, siegeMoved bool, err error) {
	e := c.engine
	var completed []colony.BuildingType
	var change *siegeChange

	locked, err = e.store.TryWithPlanet(id, func(p *colony.Planet) error {
		completed = completeDueUpgrades(p, e, now)
		change = advanceSiege(p, e, now)
		return nil
	})
	if !locked {
		return false, 0, false, nil
	}
	if err != nil {
		slog.Error("sweep failed for planet", "planet", id, "error", err)
		return true, 0, false, err
	}

	for _, t := range completed {
		e.bus.Publish(events.Event{
			Type:        events.TypeUpgradeCompleted,
			PlanetID:    id,
			Description: t.String() + " upgrade completed",
			At:          now,
			Data:        map[string]any{"building": t.String()},
		})
	}
	e.notifySiegeChange(ctx, id, change)

	return true, len(completed), change != nil, nil
}

// maybeGrow applies hourly colonist growth across all planets, capped at
// each planet's colonist ceiling.
func (c *Coordinator) maybeGrow(now time.Time) {
	if c.lastGrowth.IsZero() {
		c.lastGrowth = now
		return
	}
	if now.Sub(c.lastGrowth) < c.growthEvery {
		return
	}
	c.lastGrowth = now

	total := 0
	for _, id := range c.engine.store.IDs() {
		err := c.engine.store.WithPlanet(id, func(p *colony.Planet) error {
			grown := p.Colonists + p.Production.Colonists
			if grown > p.MaxColonists {
				grown = p.MaxColonists
			}
			total += grown - p.Colonists
			p.Colonists = grown
			return nil
		})
		if err != nil {
			slog.Error("colonist growth failed", "planet", id, "error", err)
		}
	}
	slog.Info("colonist growth applied",
		"planets", c.engine.store.Count(),
		"new_colonists", humanize.Comma(int64(total)),
	)
}
