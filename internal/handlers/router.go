// Package handlers exposes the admin HTTP API: login, inventory,
// orders, analytics, customer control and the pairing QR.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jezakh/patanabot/internal/analytics"
	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/middleware"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/store"
)

// PairingSource serves the current WhatsApp pairing QR, if any.
type PairingSource interface {
	PairingQR() ([]byte, error)
}

// Router wraps the mux router and the stores it serves
type Router struct {
	*mux.Router
	cfg       *config.Config
	db        *database.DB
	shop      *shop.Store
	customers *store.CustomerStore
	orders    *store.OrderStore
	analytics *analytics.Service
	pairing   PairingSource
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(cfg *config.Config, db *database.DB, shopStore *shop.Store, customers *store.CustomerStore, orders *store.OrderStore, a *analytics.Service, pairing PairingSource) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		cfg:       cfg,
		db:        db,
		shop:      shopStore,
		customers: customers,
		orders:    orders,
		analytics: a,
		pairing:   pairing,
	}

	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(cfg.JWTSecret))
	api.HandleFunc("/inventory", r.getInventory).Methods("GET")
	api.HandleFunc("/inventory", r.importInventory).Methods("POST")
	api.HandleFunc("/orders", r.listOrders).Methods("GET")
	api.HandleFunc("/analytics/summary", r.getSummary).Methods("GET")
	api.HandleFunc("/analytics/products", r.getTopProducts).Methods("GET")
	api.HandleFunc("/analytics/missed", r.getTopMissed).Methods("GET")
	api.HandleFunc("/analytics/segments", r.getSegments).Methods("GET")
	api.HandleFunc("/customers/{phone}", r.getCustomer).Methods("GET")
	api.HandleFunc("/customers/{phone}/pause", r.pauseCustomer).Methods("POST")
	api.HandleFunc("/customers/{phone}/resume", r.resumeCustomer).Methods("POST")
	api.HandleFunc("/pairing/qr", r.getPairingQR).Methods("GET")

	return r
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
