// Command colonyd runs the authoritative colony simulation server:
// the tick coordinator, the HTTP API, and the persistence layer.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/api"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/economy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/engine"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/galaxy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Sectorwars colony engine starting")

	dbPath := envOr("COLONYD_DB", "data/colony.db")
	balancePath := envOr("COLONYD_BALANCE", "configs/balance.yaml")
	apiPort := envInt("COLONYD_PORT", 8080)
	tickInterval := time.Duration(envInt("COLONYD_TICK_SECONDS", 5)) * time.Second
	workers := envInt("COLONYD_WORKERS", 4)
	adminKey := os.Getenv("COLONYD_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("COLONYD_ADMIN_KEY not set, mutating endpoints disabled")
	}

	// ── Balance table ─────────────────────────────────────────────────
	bal, err := balance.Load(balancePath)
	if err != nil {
		slog.Error("failed to load balance table", "path", balancePath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(dbPath), 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	ledger, err := economy.NewSQLLedger(db.Conn())
	if err != nil {
		slog.Error("failed to prepare ledger", "error", err)
		os.Exit(1)
	}

	// ── Galaxy directory (deterministic from seed) ────────────────────
	dir := galaxy.Generate(galaxy.DefaultGenConfig())
	slog.Info("sector directory ready", "sectors", dir.Count())

	// ── Colony state ──────────────────────────────────────────────────
	store := colony.NewStore()
	planets, err := db.LoadPlanets()
	if err != nil {
		slog.Error("failed to load planets", "error", err)
		os.Exit(1)
	}
	for _, p := range planets {
		if err := store.Put(p); err != nil {
			slog.Error("failed to register planet", "planet", p.ID, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("colony state restored", "planets", store.Count())

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.New(engine.Config{
		Store:   store,
		Balance: bal,
		Ledger:  ledger,
		Galaxy:  dir,
	})

	// Event log subscriber (fire-and-forget, never awaited).
	logCh, cancelLog := eng.Bus().Subscribe(256)
	go db.RecordEvents(logCh)
	defer cancelLog()

	// ── Tick coordinator ──────────────────────────────────────────────
	coord := engine.NewCoordinator(eng, tickInterval, workers)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	// Periodic state save.
	saveTicker := time.NewTicker(time.Minute)
	defer saveTicker.Stop()
	go func() {
		for range saveTicker.C {
			if err := db.SaveColonyState(store); err != nil {
				slog.Error("periodic save failed", "error", err)
			}
		}
	}()

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		Engine:   eng,
		DB:       db,
		Galaxy:   dir,
		Port:     apiPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	coord.Stop()
	if err := db.SaveColonyState(store); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("colony engine stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
