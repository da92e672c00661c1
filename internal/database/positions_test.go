package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leapsdash/internal/models"
)

func positionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "position_name", "symbol", "leaps_strike", "leaps_expiry",
		"leaps_cost_basis", "current_value", "current_delta", "account_name",
		"status", "created_at", "updated_at",
	})
}

func TestCreatePosition(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO positions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	pos := &models.Position{
		PositionName:   "SPY Jan27 550C",
		Symbol:         "SPY",
		LeapsStrike:    decimal.NewFromInt(550),
		LeapsExpiry:    time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC),
		LeapsCostBasis: decimal.NewFromInt(8200),
	}
	err := db.CreatePosition(pos)
	require.NoError(t, err)
	assert.Equal(t, 3, pos.ID)
	assert.Equal(t, models.PositionActive, pos.Status, "status defaults to active")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionByID(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(positionRows().AddRow(
			3, "SPY Jan27 550C", "SPY", "550", time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC),
			"8200", "9500", 82.0, "IRA", models.PositionActive, now, now,
		))

	pos, err := db.GetPositionByID(3)
	require.NoError(t, err)
	assert.Equal(t, "SPY Jan27 550C", pos.PositionName)
	assert.True(t, pos.LeapsStrike.Equal(decimal.NewFromInt(550)))
	assert.Equal(t, 82.0, pos.CurrentDelta)
	assert.Equal(t, "IRA", pos.AccountName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(99).
		WillReturnRows(positionRows())

	_, err := db.GetPositionByID(99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActivePositions(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM positions WHERE status").
		WithArgs(models.PositionActive).
		WillReturnRows(positionRows().
			AddRow(2, "QQQ Jun27 480C", "QQQ", "480", now.AddDate(1, 0, 0),
				"7100", "7900", 78.0, nil, models.PositionActive, now, now).
			AddRow(1, "SPY Jan27 550C", "SPY", "550", now.AddDate(0, 10, 0),
				"8200", "9500", 82.0, "IRA", models.PositionActive, now, now))

	positions, err := db.GetActivePositions()
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "QQQ", positions[0].Symbol)
	assert.Empty(t, positions[0].AccountName, "null account name reads as empty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePosition(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE positions SET status").
		WithArgs(3, models.PositionClosed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.ClosePosition(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosePosition_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("UPDATE positions SET status").
		WithArgs(99, models.PositionClosed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.ClosePosition(99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePosition(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("DELETE FROM positions").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.DeletePosition(3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
