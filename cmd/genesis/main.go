// Command genesis seeds a colony database: it deploys planets across
// sectors and credits starting ledgers, then exits. Run it once before
// first starting colonyd, or again to add colonies.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/Interstitch/Sectorwars2102-sub006/internal/balance"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/colony"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/economy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/engine"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/galaxy"
	"github.com/Interstitch/Sectorwars2102-sub006/internal/persistence"
)

var planetNames = []string{
	"New Terra", "Meridian", "Kessler's Rock", "Halcyon", "Vantage",
	"Redoubt", "Caldera", "Windfall", "Lastlight", "Providence",
	"Ironhold", "Deepwell", "Farhaven", "Concordia", "Outpost Nine",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	dbPath := flag.String("db", "data/colony.db", "colony database path")
	balancePath := flag.String("balance", "configs/balance.yaml", "balance table path")
	count := flag.Int("count", 5, "planets to deploy")
	owner := flag.String("owner", "", "owning player id (required)")
	credits := flag.Int64("credits", 50000, "starting credits for the owner")
	seed := flag.Int64("seed", 42, "deployment seed")
	flag.Parse()

	if *owner == "" {
		fmt.Fprintln(os.Stderr, "usage: genesis -owner <player-id> [-count N] [-db path]")
		os.Exit(2)
	}

	bal, err := balance.Load(*balancePath)
	if err != nil {
		slog.Error("failed to load balance table", "error", err)
		os.Exit(1)
	}

	os.MkdirAll(filepath.Dir(*dbPath), 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger, err := economy.NewSQLLedger(db.Conn())
	if err != nil {
		slog.Error("failed to prepare ledger", "error", err)
		os.Exit(1)
	}

	dir := galaxy.Generate(galaxy.DefaultGenConfig())

	store := colony.NewStore()
	existing, err := db.LoadPlanets()
	if err != nil {
		slog.Error("failed to load planets", "error", err)
		os.Exit(1)
	}
	for _, p := range existing {
		if err := store.Put(p); err != nil {
			slog.Error("failed to register planet", "planet", p.ID, "error", err)
			os.Exit(1)
		}
	}

	eng := engine.New(engine.Config{Store: store, Balance: bal, Ledger: ledger, Galaxy: dir})
	ctx := context.Background()

	if err := ledger.Credit(ctx, *owner, economy.Cost{
		Credits: *credits, Fuel: 5000, Organics: 5000, Equipment: 5000,
	}); err != nil {
		slog.Error("failed to credit owner", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	types := []colony.PlanetType{
		colony.TypeTerran, colony.TypeOceanic, colony.TypeMountainous,
		colony.TypeDesert, colony.TypeFrozen,
	}

	for i := 0; i < *count; i++ {
		name := planetNames[rng.Intn(len(planetNames))]
		if store.Count() > 0 {
			name = fmt.Sprintf("%s %s", name, romanNumeral(i+1))
		}
		sectorID := uint64(rng.Intn(dir.Count())) + 1
		ptype := types[rng.Intn(len(types))]

		id, err := eng.DeployGenesis(ctx, sectorID, name, ptype, *owner)
		if err != nil {
			slog.Error("genesis deployment failed", "name", name, "error", err)
			os.Exit(1)
		}
		slog.Info("deployed", "planet", id, "name", name, "type", ptype.String(), "sector", sectorID)
	}

	if err := db.SaveColonyState(store); err != nil {
		slog.Error("save failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Deployed %d planets for %s. Total: %d.\n", *count, *owner, store.Count())
}

func romanNumeral(n int) string {
	values := []int{10, 9, 5, 4, 1}
	symbols := []string{"X", "IX", "V", "IV", "I"}
	var b strings.Builder
	for i, v := range values {
		for n >= v {
			b.WriteString(symbols[i])
			n -= v
		}
	}
	return b.String()
}
