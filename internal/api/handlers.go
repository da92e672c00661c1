package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"leapsdash/internal/analytics"
	"leapsdash/internal/database"
	"leapsdash/internal/kafka"
	"leapsdash/internal/marketdata"
	"leapsdash/internal/metrics"
	"leapsdash/internal/models"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db         *database.DB
	producer   *kafka.Producer
	market     *marketdata.Service
	scanWindow int
	indicators analytics.IndicatorOptions
}

// NewHandler creates a new Handler. Zero values in opts fall back to the
// standard indicator periods.
func NewHandler(db *database.DB, producer *kafka.Producer, market *marketdata.Service, scanWindow int, opts analytics.IndicatorOptions) *Handler {
	if scanWindow <= 0 {
		scanWindow = analytics.DefaultSellScanWindow
	}
	return &Handler{
		db:         db,
		producer:   producer,
		market:     market,
		scanWindow: scanWindow,
		indicators: opts,
	}
}

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

type positionRequest struct {
	PositionName   string  `json:"position_name"`
	Symbol         string  `json:"symbol"`
	LeapsStrike    string  `json:"leaps_strike"`
	LeapsExpiry    string  `json:"leaps_expiry"`
	LeapsCostBasis string  `json:"leaps_cost_basis"`
	CurrentValue   string  `json:"current_value"`
	CurrentDelta   float64 `json:"current_delta"`
	AccountName    string  `json:"account_name"`
}

func (req *positionRequest) toModel() (*models.Position, error) {
	if req.PositionName == "" || req.Symbol == "" {
		return nil, errBadRequest("position_name and symbol are required")
	}

	strike, err := decimal.NewFromString(req.LeapsStrike)
	if err != nil {
		return nil, errBadRequest("invalid leaps_strike")
	}
	costBasis, err := decimal.NewFromString(req.LeapsCostBasis)
	if err != nil {
		return nil, errBadRequest("invalid leaps_cost_basis")
	}
	expiry, err := time.Parse("2006-01-02", req.LeapsExpiry)
	if err != nil {
		return nil, errBadRequest("invalid leaps_expiry, expected YYYY-MM-DD")
	}
	if req.CurrentDelta < 0 || req.CurrentDelta > 100 {
		return nil, errBadRequest("current_delta must be between 0 and 100")
	}

	currentValue := decimal.Zero
	if req.CurrentValue != "" {
		currentValue, err = decimal.NewFromString(req.CurrentValue)
		if err != nil {
			return nil, errBadRequest("invalid current_value")
		}
	}

	return &models.Position{
		PositionName:   req.PositionName,
		Symbol:         strings.ToUpper(req.Symbol),
		LeapsStrike:    strike,
		LeapsExpiry:    expiry,
		LeapsCostBasis: costBasis,
		CurrentValue:   currentValue,
		CurrentDelta:   req.CurrentDelta,
		AccountName:    req.AccountName,
	}, nil
}

// CreatePosition handles POST /positions
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	position, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.db.CreatePosition(position); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.publishPosition(r.Context(), "POSITION_CREATED", position)
	respondJSON(w, http.StatusCreated, position)
}

// GetPositions handles GET /positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	var positions []*models.Position
	var err error

	if r.URL.Query().Get("all") == "true" {
		positions, err = h.db.GetAllPositions()
	} else {
		positions, err = h.db.GetActivePositions()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	active := 0
	for _, p := range positions {
		if p.Status == models.PositionActive {
			active++
		}
	}
	metrics.ActivePositions.Set(float64(active))

	respondJSON(w, http.StatusOK, positions)
}

// positionDetail is the dashboard view of one position: the position, its
// reconciled open short call and the derived analytics.
type positionDetail struct {
	Position     *models.Position               `json:"position"`
	ShortCall    *shortCallView                 `json:"short_call,omitempty"`
	Health       analytics.HealthScore          `json:"health"`
	Risk         analytics.PositionRisk         `json:"risk"`
	Performance  analytics.PositionPerformance  `json:"performance"`
	NetPnL       decimal.Decimal                `json:"net_pnl"`
	CurrentPrice float64                        `json:"current_price"`
	Cushion      float64                        `json:"cushion"`
	Simulated    bool                           `json:"simulated"`
	LedgerError  string                         `json:"ledger_error,omitempty"`
}

type shortCallView struct {
	models.ShortCallLeg
	DaysToExpiry   int             `json:"days_to_expiry"`
	EstimatedValue float64         `json:"estimated_value"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
	Icon           string          `json:"icon"`
}

// GetPosition handles GET /positions/{id}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	position, err := h.db.GetPositionByID(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	quote, simulated := h.market.Quote(r.Context())
	now := time.Now()

	detail := positionDetail{
		Position:     position,
		Health:       analytics.ScoreHealth(*position, quote.Price, now),
		Risk:         analytics.AssessPositionRisk(position.CurrentDelta/100, analytics.DaysToExpiry(position.LeapsExpiry, now)),
		CurrentPrice: quote.Price,
		Cushion:      analytics.Cushion(quote.Price, position.LeapsStrike),
		Simulated:    simulated,
	}

	// A broken ledger degrades the trade-derived sections, not the request.
	trades, err := h.db.GetTradesForPosition(id)
	if err != nil {
		log.Printf("Failed to load ledger for position %d: %v", id, err)
		detail.LedgerError = "ledger unavailable"
		respondJSON(w, http.StatusOK, detail)
		return
	}

	detail.Performance = analytics.AggregatePerformance(trades, now)
	detail.NetPnL = analytics.NetPnL(detail.Performance, position.CurrentValue, position.LeapsCostBasis)

	leg, found := analytics.ReconcileShortCall(trades, h.scanWindow)
	if found {
		metrics.Reconciliations.WithLabelValues("open").Inc()
		view := &shortCallView{ShortCallLeg: leg, Icon: analytics.ActionIcon(models.ActionSell)}
		if leg.Expiry != nil {
			view.DaysToExpiry = analytics.DaysToExpiry(*leg.Expiry, now)
		}
		strike, _ := leg.Strike.Float64()
		view.EstimatedValue = analytics.EstimateShortCallValue(quote.Price, strike, view.DaysToExpiry)
		view.UnrealizedPnL = analytics.ShortCallUnrealizedPnL(leg.PremiumCollected, view.EstimatedValue)
		detail.ShortCall = view
	} else {
		metrics.Reconciliations.WithLabelValues("none").Inc()
	}

	respondJSON(w, http.StatusOK, detail)
}

// UpdatePosition handles PUT /positions/{id}
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	position, err := req.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	position.ID = id

	if err := h.db.UpdatePosition(position); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.publishPosition(r.Context(), "POSITION_UPDATED", position)
	respondJSON(w, http.StatusOK, position)
}

// ClosePosition handles POST /positions/{id}/close
func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.db.ClosePosition(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	position, err := h.db.GetPositionByID(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.publishPosition(r.Context(), "POSITION_CLOSED", position)
	respondJSON(w, http.StatusOK, position)
}

// DeletePosition handles DELETE /positions/{id}. This is the admin hard
// delete; closing a position is the normal path.
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	position, err := h.db.GetPositionByID(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := h.db.DeletePosition(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.publishPosition(r.Context(), "POSITION_DELETED", position)
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Trades
// ---------------------------------------------------------------------------

type tradeRequest struct {
	Action    string `json:"action"`
	TradeDate string `json:"trade_date"`
	Strike    string `json:"strike"`
	Premium   string `json:"premium"`
	Expiry    string `json:"expiry"`
	Notes     string `json:"notes"`
}

// LogTrade handles POST /positions/{id}/trades
func (h *Handler) LogTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !models.IsValidAction(req.Action) {
		http.Error(w, "invalid action: "+req.Action, http.StatusBadRequest)
		return
	}

	tradeDate, err := time.Parse("2006-01-02", req.TradeDate)
	if err != nil {
		http.Error(w, "invalid trade_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	strike := decimal.Zero
	if req.Strike != "" {
		strike, err = decimal.NewFromString(req.Strike)
		if err != nil {
			http.Error(w, "invalid strike", http.StatusBadRequest)
			return
		}
	}

	premium := decimal.Zero
	if req.Premium != "" {
		premium, err = decimal.NewFromString(req.Premium)
		if err != nil {
			http.Error(w, "invalid premium", http.StatusBadRequest)
			return
		}
	}

	// Verify the position exists before appending to its ledger
	if _, err := h.db.GetPositionByID(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	trade := &models.Trade{
		PositionID: id,
		Action:     req.Action,
		TradeDate:  tradeDate,
		Strike:     strike,
		Premium:    premium,
		Notes:      req.Notes,
	}

	if req.Expiry != "" {
		expiry, err := time.Parse("2006-01-02", req.Expiry)
		if err != nil {
			http.Error(w, "invalid expiry, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		trade.Expiry = &expiry
	}

	if err := h.db.CreateTrade(trade); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.TradesLogged.WithLabelValues(trade.Action).Inc()
	if h.producer != nil {
		if err := h.producer.PublishTradeLogged(r.Context(), trade); err != nil {
			log.Printf("Failed to publish trade event: %v", err)
		}
	}

	respondJSON(w, http.StatusCreated, trade)
}

// GetTradesForPosition handles GET /positions/{id}/trades
func (h *Handler) GetTradesForPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trades, err := h.db.GetTradesForPosition(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// GetRecentTrades handles GET /trades
func (h *Handler) GetRecentTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := h.db.GetRecentTrades(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, trades)
}

// DeleteTrade handles DELETE /trades/{id}. The row is soft-deleted; every
// read and every analytics pass excludes it from then on.
func (h *Handler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.db.SoftDeleteTrade(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Roll
// ---------------------------------------------------------------------------

type rollRequest struct {
	NewStrike string `json:"new_strike"`
	NewExpiry string `json:"new_expiry"`
	RollCost  string `json:"roll_cost"`
	Notes     string `json:"notes"`
}

// RollLeaps handles POST /positions/{id}/roll. The roll moves the LEAPS to
// a new strike and expiry, adds the roll cost to the basis and logs a
// roll_leaps trade. Extreme position risk blocks the roll.
func (h *Handler) RollLeaps(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req rollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	newStrike, err := decimal.NewFromString(req.NewStrike)
	if err != nil {
		http.Error(w, "invalid new_strike", http.StatusBadRequest)
		return
	}
	newExpiry, err := time.Parse("2006-01-02", req.NewExpiry)
	if err != nil {
		http.Error(w, "invalid new_expiry, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	rollCost := decimal.Zero
	if req.RollCost != "" {
		rollCost, err = decimal.NewFromString(req.RollCost)
		if err != nil {
			http.Error(w, "invalid roll_cost", http.StatusBadRequest)
			return
		}
	}

	position, err := h.db.GetPositionByID(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	now := time.Now()
	risk := analytics.AssessPositionRisk(position.CurrentDelta/100, analytics.DaysToExpiry(position.LeapsExpiry, now))
	if !analytics.CanRoll(risk) {
		metrics.RollsBlocked.Inc()
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error": "roll blocked: position risk is extreme",
			"risk":  risk,
		})
		return
	}

	position.LeapsStrike = newStrike
	position.LeapsExpiry = newExpiry
	position.LeapsCostBasis = position.LeapsCostBasis.Add(rollCost)

	if err := h.db.UpdatePosition(position); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	trade := &models.Trade{
		PositionID: id,
		Action:     models.ActionRollLeaps,
		TradeDate:  now,
		Strike:     newStrike,
		Premium:    rollCost,
		Expiry:     &newExpiry,
		Notes:      req.Notes,
	}
	if err := h.db.CreateTrade(trade); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.TradesLogged.WithLabelValues(trade.Action).Inc()
	h.publishPosition(r.Context(), "POSITION_ROLLED", position)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"position": position,
		"trade":    trade,
	})
}

// ---------------------------------------------------------------------------
// Recommendation
// ---------------------------------------------------------------------------

// GetRecommendation handles GET /recommendation
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	quote, simulated := h.market.Quote(r.Context())
	indicators, historySimulated := h.market.Indicators(r.Context(), h.indicators)

	// An explicit price overrides the quote; the classifier still uses the
	// quote's daily change.
	price := quote.Price
	if raw := r.URL.Query().Get("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p <= 0 {
			http.Error(w, "invalid price", http.StatusBadRequest)
			return
		}
		price = p
	}

	recommendation := analytics.Classify(indicators, quote.DailyChangePct, price)
	rules := analytics.TradingRules(recommendation, indicators, quote.DailyChangePct)
	metrics.Recommendations.WithLabelValues(recommendation.MarketCondition).Inc()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":           h.market.Symbol(),
		"price":            price,
		"daily_change_pct": quote.DailyChangePct,
		"indicators":       indicators,
		"recommendation":   recommendation,
		"trading_rules":    rules,
		"simulated":        simulated || historySimulated,
	})
}

// ---------------------------------------------------------------------------
// Portfolio summary
// ---------------------------------------------------------------------------

// GetPortfolioSummary handles GET /portfolio/summary
func (h *Handler) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	positions, err := h.db.GetActivePositions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	perfByID := make(map[int]analytics.PositionPerformance, len(positions))
	positionList := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		trades, err := h.db.GetTradesForPosition(p.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		perfByID[p.ID] = analytics.AggregatePerformance(trades, now)
		positionList = append(positionList, *p)
	}

	total := analytics.AggregatePortfolio(positionList, perfByID)

	response := map[string]interface{}{
		"performance": total,
	}

	// Deployment and portfolio risk only make sense against a positive
	// account balance supplied by the caller.
	if raw := r.URL.Query().Get("balance"); raw != "" {
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			http.Error(w, "invalid balance", http.StatusBadRequest)
			return
		}

		deployed := decimal.Zero
		for _, p := range positionList {
			deployed = deployed.Add(p.LeapsCostBasis)
		}

		if pct, ok := analytics.Deployment(deployed, balance); ok {
			quote, _ := h.market.Quote(r.Context())
			indicators, _ := h.market.Indicators(r.Context(), h.indicators)
			recommendation := analytics.Classify(indicators, quote.DailyChangePct, quote.Price)

			response["deployment_pct"] = pct
			response["market_condition"] = recommendation.MarketCondition
			response["risk"] = analytics.AssessPortfolioRisk(pct, recommendation.MarketCondition)
		} else {
			response["deployment_error"] = "balance must be positive"
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	// Check database
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// Check Kafka producer
	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (h *Handler) publishPosition(ctx context.Context, eventType string, position *models.Position) {
	if h.producer == nil {
		return
	}
	if err := h.producer.PublishPositionUpdated(ctx, eventType, position); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, errBadRequest("invalid id")
	}
	return id, nil
}

type requestError string

func (e requestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return requestError(msg) }

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
