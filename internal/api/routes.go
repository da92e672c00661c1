package api

import (
	"github.com/gorilla/mux"

	"leapsdash/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Position routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/positions", handler.GetPositions).Methods("GET")
	api.HandleFunc("/positions", handler.CreatePosition).Methods("POST")
	api.HandleFunc("/positions/{id}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id}", handler.UpdatePosition).Methods("PUT")
	api.HandleFunc("/positions/{id}", handler.DeletePosition).Methods("DELETE")
	api.HandleFunc("/positions/{id}/close", handler.ClosePosition).Methods("POST")
	api.HandleFunc("/positions/{id}/roll", handler.RollLeaps).Methods("POST")

	// Trade routes
	api.HandleFunc("/positions/{id}/trades", handler.LogTrade).Methods("POST")
	api.HandleFunc("/positions/{id}/trades", handler.GetTradesForPosition).Methods("GET")
	api.HandleFunc("/trades", handler.GetRecentTrades).Methods("GET")
	api.HandleFunc("/trades/export", handler.ExportTrades).Methods("GET")
	api.HandleFunc("/trades/{id}", handler.DeleteTrade).Methods("DELETE")

	// Analytics routes
	api.HandleFunc("/recommendation", handler.GetRecommendation).Methods("GET")
	api.HandleFunc("/portfolio/summary", handler.GetPortfolioSummary).Methods("GET")

	return r
}
