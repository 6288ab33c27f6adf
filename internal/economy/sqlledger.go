// SQL-backed ledger. The balance check and deduction run inside one
// database transaction so concurrent upgrade requests across a player's
// planets can never overspend.
package economy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SQLLedger stores holdings in the colony database.
type SQLLedger struct {
	db *sqlx.DB
}

// NewSQLLedger prepares the ledger table on the given connection.
func NewSQLLedger(db *sqlx.DB) (*SQLLedger, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS player_ledger (
		player_id TEXT PRIMARY KEY,
		credits INTEGER NOT NULL DEFAULT 0,
		fuel INTEGER NOT NULL DEFAULT 0,
		organics INTEGER NOT NULL DEFAULT 0,
		equipment INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &SQLLedger{db: db}, nil
}

type ledgerRow struct {
	PlayerID  string `db:"player_id"`
	Credits   int64  `db:"credits"`
	Fuel      int64  `db:"fuel"`
	Organics  int64  `db:"organics"`
	Equipment int64  `db:"equipment"`
}

func (r ledgerRow) cost() Cost {
	return Cost{Credits: r.Credits, Fuel: r.Fuel, Organics: r.Organics, Equipment: r.Equipment}
}

// TryDeduct atomically checks and removes the full cost in one transaction.
func (l *SQLLedger) TryDeduct(ctx context.Context, playerID string, cost Cost) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback()

	var row ledgerRow
	err = tx.GetContext(ctx, &row,
		"SELECT player_id, credits, fuel, organics, equipment FROM player_ledger WHERE player_id = ?",
		playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("player %s: %w", playerID, ErrInsufficientFunds)
	}
	if err != nil {
		return fmt.Errorf("ledger read: %w", err)
	}

	h := row.cost()
	if !h.Covers(cost) {
		return fmt.Errorf("player %s: %w", playerID, ErrInsufficientFunds)
	}

	next := h.Sub(cost)
	_, err = tx.ExecContext(ctx,
		"UPDATE player_ledger SET credits = ?, fuel = ?, organics = ?, equipment = ? WHERE player_id = ?",
		next.Credits, next.Fuel, next.Organics, next.Equipment, playerID)
	if err != nil {
		return fmt.Errorf("ledger deduct: %w", err)
	}
	return tx.Commit()
}

// Credit adds to the player's holdings, creating the row on first use.
func (l *SQLLedger) Credit(ctx context.Context, playerID string, amount Cost) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO player_ledger (player_id, credits, fuel, organics, equipment)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			credits = credits + excluded.credits,
			fuel = fuel + excluded.fuel,
			organics = organics + excluded.organics,
			equipment = equipment + excluded.equipment`,
		playerID, amount.Credits, amount.Fuel, amount.Organics, amount.Equipment)
	if err != nil {
		return fmt.Errorf("ledger credit: %w", err)
	}
	return nil
}

// Balance returns the player's current holdings. Unknown players hold zero.
func (l *SQLLedger) Balance(ctx context.Context, playerID string) (Cost, error) {
	var row ledgerRow
	err := l.db.GetContext(ctx, &row,
		"SELECT player_id, credits, fuel, organics, equipment FROM player_ledger WHERE player_id = ?",
		playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Cost{}, nil
	}
	if err != nil {
		return Cost{}, fmt.Errorf("ledger read: %w", err)
	}
	return row.cost(), nil
}
