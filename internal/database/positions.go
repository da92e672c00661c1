package database

import (
	"database/sql"
	"fmt"
	"time"

	"leapsdash/internal/models"
)

const positionColumns = `id, position_name, symbol, leaps_strike, leaps_expiry,
	       leaps_cost_basis, current_value, current_delta, account_name,
	       status, created_at, updated_at`

// CreatePosition inserts a new LEAPS position
func (db *DB) CreatePosition(p *models.Position) error {
	query := `
		INSERT INTO positions (
			position_name, symbol, leaps_strike, leaps_expiry, leaps_cost_basis,
			current_value, current_delta, account_name, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	if p.Status == "" {
		p.Status = models.PositionActive
	}
	now := time.Now()
	err := db.conn.QueryRow(query,
		p.PositionName, p.Symbol, p.LeapsStrike, p.LeapsExpiry, p.LeapsCostBasis,
		p.CurrentValue, p.CurrentDelta, p.AccountName, p.Status, now, now,
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetPositionByID retrieves a position by its ID
func (db *DB) GetPositionByID(id int) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1`

	p, err := scanPosition(db.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("position %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// GetActivePositions retrieves all open positions, newest first
func (db *DB) GetActivePositions() ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE status = $1 ORDER BY created_at DESC`
	return db.queryPositions(query, models.PositionActive)
}

// GetAllPositions retrieves every position regardless of status
func (db *DB) GetAllPositions() ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY created_at DESC`
	return db.queryPositions(query)
}

func (db *DB) queryPositions(query string, args ...interface{}) ([]*models.Position, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// UpdatePosition updates an existing position's mutable fields
func (db *DB) UpdatePosition(p *models.Position) error {
	query := `
		UPDATE positions SET
			position_name = $2, symbol = $3, leaps_strike = $4, leaps_expiry = $5,
			leaps_cost_basis = $6, current_value = $7, current_delta = $8,
			account_name = $9, updated_at = $10
		WHERE id = $1
	`
	p.UpdatedAt = time.Now()
	result, err := db.conn.Exec(query,
		p.ID, p.PositionName, p.Symbol, p.LeapsStrike, p.LeapsExpiry,
		p.LeapsCostBasis, p.CurrentValue, p.CurrentDelta,
		p.AccountName, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("position %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// ClosePosition flips a position to closed without touching its ledger
func (db *DB) ClosePosition(id int) error {
	query := `UPDATE positions SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := db.conn.Exec(query, id, models.PositionClosed, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("position %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePosition removes a position and, via ON DELETE CASCADE, its trades
func (db *DB) DeletePosition(id int) error {
	query := `DELETE FROM positions WHERE id = $1`
	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("position %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var accountName sql.NullString

	err := row.Scan(
		&p.ID, &p.PositionName, &p.Symbol, &p.LeapsStrike, &p.LeapsExpiry,
		&p.LeapsCostBasis, &p.CurrentValue, &p.CurrentDelta, &accountName,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if accountName.Valid {
		p.AccountName = accountName.String
	}
	return &p, nil
}
