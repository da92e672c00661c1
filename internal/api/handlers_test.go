package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leapsdash/internal/analytics"
	"leapsdash/internal/database"
	"leapsdash/internal/marketdata"
	"leapsdash/internal/models"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// No provider and no cache: market data comes from the simulator only,
	// which keeps these tests fully offline.
	market := marketdata.NewService(nil, nil, marketdata.NewSimulator(580, 1), "SPY", time.Minute)

	return NewHandler(database.NewFromConn(conn), nil, market, 10, analytics.IndicatorOptions{}), mock
}

func serve(handler *Handler, method, target string, body string) *httptest.ResponseRecorder {
	router := SetupRoutes(handler)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func positionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "position_name", "symbol", "leaps_strike", "leaps_expiry",
		"leaps_cost_basis", "current_value", "current_delta", "account_name",
		"status", "created_at", "updated_at",
	})
}

func tradeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "position_id", "action", "trade_date", "strike", "premium",
		"expiry", "notes", "is_deleted", "created_at",
	})
}

func addPositionRow(rows *sqlmock.Rows, id int, delta float64, expiry time.Time) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "SPY Jan27 550C", "SPY", "550", expiry,
		"8200", "9500", delta, "IRA", models.PositionActive, now, now)
}

func TestGetPosition_Detail(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	callExpiry := time.Now().AddDate(0, 0, 11)
	mock.ExpectQuery("SELECT (.+) FROM trades").
		WithArgs(3).
		WillReturnRows(tradeRows().AddRow(
			7, 3, models.ActionSell, time.Now().AddDate(0, 0, -3),
			"590", "4.50", callExpiry, nil, false, time.Now()))

	rec := serve(handler, http.MethodGet, "/api/v1/positions/3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))

	assert.NotNil(t, detail["position"])
	assert.NotNil(t, detail["health"])
	assert.NotNil(t, detail["risk"])
	assert.True(t, detail["simulated"].(bool), "no provider configured, quote is simulated")

	shortCall, ok := detail["short_call"].(map[string]interface{})
	require.True(t, ok, "open sell with no close reconciles as the active short call")
	assert.Equal(t, float64(7), shortCall["trade_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPosition_LedgerErrorDegrades(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	mock.ExpectQuery("SELECT (.+) FROM trades").
		WithArgs(3).
		WillReturnError(assert.AnError)

	rec := serve(handler, http.MethodGet, "/api/v1/positions/3", "")
	require.Equal(t, http.StatusOK, rec.Code, "ledger failure degrades the section, not the request")

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "ledger unavailable", detail["ledger_error"])
	assert.Nil(t, detail["short_call"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPosition_NotFound(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(99).
		WillReturnRows(positionRows())

	rec := serve(handler, http.MethodGet, "/api/v1/positions/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePosition_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"bad strike", `{"position_name":"x","symbol":"SPY","leaps_strike":"abc","leaps_expiry":"2027-01-15","leaps_cost_basis":"8200"}`},
		{"bad expiry", `{"position_name":"x","symbol":"SPY","leaps_strike":"550","leaps_expiry":"Jan 2027","leaps_cost_basis":"8200"}`},
		{"delta out of range", `{"position_name":"x","symbol":"SPY","leaps_strike":"550","leaps_expiry":"2027-01-15","leaps_cost_basis":"8200","current_delta":140}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPost, "/api/v1/positions", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreatePosition(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery("INSERT INTO positions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	body := `{"position_name":"SPY Jan27 550C","symbol":"spy","leaps_strike":"550","leaps_expiry":"2027-01-15","leaps_cost_basis":"8200","current_delta":82}`
	rec := serve(handler, http.MethodPost, "/api/v1/positions", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 5, created.ID)
	assert.Equal(t, "SPY", created.Symbol, "symbol is upper-cased")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogTrade_InvalidAction(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := `{"action":"short_put","trade_date":"2026-03-02"}`
	rec := serve(handler, http.MethodPost, "/api/v1/positions/3/trades", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid action")
}

func TestLogTrade(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	mock.ExpectQuery("INSERT INTO trades").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	body := `{"action":"sell","trade_date":"2026-03-02","strike":"590","premium":"4.50","expiry":"2026-03-13"}`
	rec := serve(handler, http.MethodPost, "/api/v1/positions/3/trades", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var trade models.Trade
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trade))
	assert.Equal(t, 11, trade.ID)
	assert.Equal(t, models.ActionSell, trade.Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTrade_NotFound(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectExec("UPDATE trades SET is_deleted = true").
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := serve(handler, http.MethodDelete, "/api/v1/trades/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRollLeaps_BlockedAtExtremeRisk(t *testing.T) {
	handler, mock := newTestHandler(t)

	// Thin delta makes position risk extreme regardless of runway.
	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(addPositionRow(positionRows(), 3, 50.0, expiry))

	body := `{"new_strike":"560","new_expiry":"2028-01-21","roll_cost":"900"}`
	rec := serve(handler, http.MethodPost, "/api/v1/positions/3/roll", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "roll blocked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollLeaps(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions").
		WithArgs(3).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	mock.ExpectExec("UPDATE positions SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("INSERT INTO trades").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))

	body := `{"new_strike":"560","new_expiry":"2028-01-21","roll_cost":"900"}`
	rec := serve(handler, http.MethodPost, "/api/v1/positions/3/roll", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	position := resp["position"].(map[string]interface{})
	assert.Equal(t, "560", position["leaps_strike"])
	// 8200 basis plus 900 roll cost
	assert.Equal(t, "9100", position["leaps_cost_basis"])

	trade := resp["trade"].(map[string]interface{})
	assert.Equal(t, models.ActionRollLeaps, trade["action"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecommendation(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := serve(handler, http.MethodGet, "/api/v1/recommendation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "SPY", resp["symbol"])
	assert.True(t, resp["simulated"].(bool))
	assert.NotEmpty(t, resp["trading_rules"])

	recommendation := resp["recommendation"].(map[string]interface{})
	assert.NotEmpty(t, recommendation["market_condition"])
	assert.Greater(t, recommendation["suggested_strike"].(float64), 0.0)
}

func TestGetRecommendation_PriceOverride(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := serve(handler, http.MethodGet, "/api/v1/recommendation?price=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(handler, http.MethodGet, "/api/v1/recommendation?price=612.50", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 612.50, resp["price"])
}

func TestGetPortfolioSummary(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions WHERE status").
		WithArgs(models.PositionActive).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	mock.ExpectQuery("SELECT (.+) FROM trades").
		WithArgs(3).
		WillReturnRows(tradeRows().AddRow(
			7, 3, models.ActionSell, time.Now(), "590", "4.50", nil, nil, false, time.Now()))

	rec := serve(handler, http.MethodGet, "/api/v1/portfolio/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	perf := resp["performance"].(map[string]interface{})
	assert.Equal(t, "4.5", perf["total_premium_collected"])
	assert.Nil(t, resp["risk"], "no balance supplied, no risk section")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolioSummary_WithBalance(t *testing.T) {
	handler, mock := newTestHandler(t)

	expiry := time.Now().AddDate(0, 10, 0)
	mock.ExpectQuery("SELECT (.+) FROM positions WHERE status").
		WithArgs(models.PositionActive).
		WillReturnRows(addPositionRow(positionRows(), 3, 82.0, expiry))

	mock.ExpectQuery("SELECT (.+) FROM trades").
		WithArgs(3).
		WillReturnRows(tradeRows())

	rec := serve(handler, http.MethodGet, "/api/v1/portfolio/summary?balance=20000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// 8200 deployed of 20000
	assert.InDelta(t, 41.0, resp["deployment_pct"].(float64), 1e-9)
	assert.NotNil(t, resp["risk"])
	assert.NotEmpty(t, resp["market_condition"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPortfolioSummary_ZeroBalanceGuard(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM positions WHERE status").
		WithArgs(models.PositionActive).
		WillReturnRows(positionRows())

	rec := serve(handler, http.MethodGet, "/api/v1/portfolio/summary?balance=0", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "balance must be positive", resp["deployment_error"])
	assert.Nil(t, resp["risk"])
}
