package database

import (
	"database/sql"
	"fmt"
	"time"

	"leapsdash/internal/models"
)

const tradeColumns = `id, position_id, action, trade_date, strike, premium,
	       expiry, notes, is_deleted, created_at`

// CreateTrade appends a trade to a position's ledger
func (db *DB) CreateTrade(t *models.Trade) error {
	if !models.IsValidAction(t.Action) {
		return fmt.Errorf("invalid trade action: %s", t.Action)
	}

	query := `
		INSERT INTO trades (
			position_id, action, trade_date, strike, premium, expiry, notes, is_deleted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		RETURNING id
	`
	now := time.Now()
	err := db.conn.QueryRow(query,
		t.PositionID, t.Action, t.TradeDate, t.Strike, t.Premium, t.Expiry, t.Notes, now,
	).Scan(&t.ID)

	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// GetTradesForPosition returns a position's ledger, newest first, with
// soft-deleted rows excluded. Ties on trade_date break by id so replays
// of the same ledger always come back in the same order.
func (db *DB) GetTradesForPosition(positionID int) ([]models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE position_id = $1 AND is_deleted = false
		ORDER BY trade_date DESC, id DESC
	`
	return db.queryTrades(query, positionID)
}

// GetRecentTrades returns the newest non-deleted trades across all positions
func (db *DB) GetRecentTrades(limit int) ([]models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE is_deleted = false
		ORDER BY trade_date DESC, id DESC
		LIMIT $1
	`
	return db.queryTrades(query, limit)
}

// GetAllTrades returns every non-deleted trade, oldest first; used by the
// CSV export
func (db *DB) GetAllTrades() ([]models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE is_deleted = false
		ORDER BY trade_date ASC, id ASC
	`
	return db.queryTrades(query)
}

func (db *DB) queryTrades(query string, args ...interface{}) ([]models.Trade, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// ExportRow is a ledger row joined with its position name for CSV export
type ExportRow struct {
	TradeDate    time.Time
	PositionName string
	Symbol       string
	Action       string
	Strike       string
	Premium      string
	Expiry       *time.Time
	Notes        string
}

// GetTradeExport returns every non-deleted trade joined with its position,
// oldest first
func (db *DB) GetTradeExport() ([]ExportRow, error) {
	query := `
		SELECT t.trade_date, p.position_name, p.symbol, t.action,
		       t.strike, t.premium, t.expiry, t.notes
		FROM trades t
		JOIN positions p ON p.id = t.position_id
		WHERE t.is_deleted = false
		ORDER BY t.trade_date ASC, t.id ASC
	`
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trade export: %w", err)
	}
	defer rows.Close()

	var result []ExportRow
	for rows.Next() {
		var row ExportRow
		var expiry sql.NullTime
		var notes sql.NullString

		err := rows.Scan(&row.TradeDate, &row.PositionName, &row.Symbol,
			&row.Action, &row.Strike, &row.Premium, &expiry, &notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}

		if expiry.Valid {
			row.Expiry = &expiry.Time
		}
		if notes.Valid {
			row.Notes = notes.String
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

// SoftDeleteTrade flags a trade as deleted; the row stays for audit
func (db *DB) SoftDeleteTrade(id int) error {
	query := `UPDATE trades SET is_deleted = true WHERE id = $1 AND is_deleted = false`
	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("trade %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanTrade(row rowScanner) (models.Trade, error) {
	var t models.Trade
	var expiry sql.NullTime
	var notes sql.NullString

	err := row.Scan(
		&t.ID, &t.PositionID, &t.Action, &t.TradeDate, &t.Strike, &t.Premium,
		&expiry, &notes, &t.IsDeleted, &t.CreatedAt,
	)
	if err != nil {
		return models.Trade{}, err
	}

	if expiry.Valid {
		t.Expiry = &expiry.Time
	}
	if notes.Valid {
		t.Notes = notes.String
	}
	return t, nil
}
