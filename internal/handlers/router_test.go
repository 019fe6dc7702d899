package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jezakh/patanabot/internal/analytics"
	"github.com/jezakh/patanabot/internal/config"
	"github.com/jezakh/patanabot/internal/database"
	"github.com/jezakh/patanabot/internal/models"
	"github.com/jezakh/patanabot/internal/shop"
	"github.com/jezakh/patanabot/internal/store"
	"github.com/jezakh/patanabot/internal/utils"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	dir := t.TempDir()

	db, err := database.Connect(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	shopStore, err := shop.NewStore(filepath.Join(dir, "shop_profile.json"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(shopStore.Close)

	cfg := &config.Config{JWTSecret: "test-secret"}
	return NewRouter(cfg, db, shopStore,
		store.NewCustomerStore(db, 15), store.NewOrderStore(db), analytics.New(db), nil)
}

func seedAdmin(t *testing.T, r *Router, email, password string) {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.db.Create(&models.AdminUser{Email: email, PasswordHash: hash, Role: "owner"}).Error; err != nil {
		t.Fatal(err)
	}
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, r, "owner@test.local", "siri-sana")

	body, _ := json.Marshal(LoginRequest{Email: "owner@test.local", Password: "siri-sana"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("No token in response: %s", rec.Body.String())
	}

	// Wrong password is rejected.
	body, _ = json.Marshal(LoginRequest{Email: "owner@test.local", Password: "mbaya"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Bad password status = %d, want 401", rec.Code)
	}

	// The token opens the protected API.
	req := httptest.NewRequest("GET", "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Authorized inventory status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/inventory", "/api/orders", "/api/analytics/summary"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, rec.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer hapana.kitu.hapa")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Garbage token = %d, want 401", rec.Code)
	}
}

func TestPairingQRUnavailable(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, r, "owner@test.local", "siri-sana")

	body, _ := json.Marshal(LoginRequest{Email: "owner@test.local", Password: "siri-sana"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body)))
	var resp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)

	req := httptest.NewRequest("GET", "/api/pairing/qr", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Pairing without a source = %d, want 404", rec.Code)
	}
}
