package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/shop"
)

func (r *Router) getInventory(w http.ResponseWriter, req *http.Request) {
	p, err := r.shop.Get()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// importInventory accepts rows in the same shape as the ONGEZA: chat
// command. The whole batch is applied or rejected.
func (r *Router) importInventory(w http.ResponseWriter, req *http.Request) {
	var rows []shop.ImportRow
	if err := json.NewDecoder(req.Body).Decode(&rows); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := r.shop.ImportRows(rows)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (r *Router) listOrders(w http.ResponseWriter, req *http.Request) {
	limit := 50
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	orders, err := r.orders.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (r *Router) getSummary(w http.ResponseWriter, req *http.Request) {
	var err error
	var out interface{}
	if req.URL.Query().Get("period") == "week" {
		out, err = r.analytics.WeeklySummary()
	} else {
		out, err = r.analytics.DailySummary()
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (r *Router) getTopProducts(w http.ResponseWriter, req *http.Request) {
	rows, err := r.analytics.TopProducts(queryInt(req, "days", 7), queryInt(req, "limit", 10))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) getTopMissed(w http.ResponseWriter, req *http.Request) {
	rows, err := r.analytics.TopMissed(queryInt(req, "days", 7), queryInt(req, "limit", 10))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) getSegments(w http.ResponseWriter, req *http.Request) {
	rows, err := r.analytics.Segments()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (r *Router) getCustomer(w http.ResponseWriter, req *http.Request) {
	phone := config.NormalizePhone(mux.Vars(req)["phone"])
	c, err := r.customers.Get(phone)
	if err != nil {
		respondError(w, http.StatusNotFound, "Customer not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"phone":       c.Phone,
		"rating":      c.Rating,
		"label":       models.RatingLabel(c.Rating),
		"escalations": c.Escalations,
		"bot_paused":  c.BotPaused,
		"created_at":  c.CreatedAt,
	})
}

func (r *Router) pauseCustomer(w http.ResponseWriter, req *http.Request) {
	phone := config.NormalizePhone(mux.Vars(req)["phone"])
	if err := r.customers.Pause(phone); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (r *Router) resumeCustomer(w http.ResponseWriter, req *http.Request) {
	phone := config.NormalizePhone(mux.Vars(req)["phone"])
	if err := r.customers.Resume(phone); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (r *Router) getPairingQR(w http.ResponseWriter, req *http.Request) {
	if r.pairing == nil {
		respondError(w, http.StatusNotFound, "Pairing not available")
		return
	}
	png, err := r.pairing.PairingQR()
	if err != nil {
		respondError(w, http.StatusNotFound, "No pairing QR available")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func queryInt(req *http.Request, key string, def int) int {
	if v := req.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
