package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/brunovmr/acai-delivery/internal/adapter/storage"
	"github.com/brunovmr/acai-delivery/internal/core/cache"
	"github.com/brunovmr/acai-delivery/internal/core/domain"
	"github.com/brunovmr/acai-delivery/internal/core/service"
)

const adminToken = "test-admin-token"

// Stub ConnectionMonitor
type stubMonitor struct {
	mu        sync.Mutex
	connected bool
}

func (m *stubMonitor) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ConnectionState{Connected: m.connected}
}

func (m *stubMonitor) ReportFailure(err error) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

func (m *stubMonitor) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

type env struct {
	server  *httptest.Server
	store   *storage.MemoryStore
	monitor *stubMonitor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := storage.NewMemoryStore()
	monitor := &stubMonitor{connected: true}
	c := cache.New()

	availability := service.NewAvailabilityService(c, store, monitor, store, time.Second)
	orders := service.NewOrderService(store, store, monitor, 500, time.Second)

	digest := sha256.Sum256([]byte(adminToken))
	h := NewHTTPHandler(availability, orders, monitor)
	router := NewRouter(h, hex.EncodeToString(digest[:]), rate.NewLimiter(rate.Inf, 1))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{server: srv, store: store, monitor: monitor}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func TestGetAvailability_EmptyAndOnline(t *testing.T) {
	e := newEnv(t)

	resp, payload := e.do(t, http.MethodGet, "/api/availability/products", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var offline bool
	json.Unmarshal(payload["offline"], &offline)
	if offline {
		t.Error("expected offline=false")
	}
	var m map[string]bool
	if err := json.Unmarshal(payload["productsAvailability"], &m); err != nil {
		t.Fatalf("missing productsAvailability: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestGetAvailability_UnknownKind(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/availability/toppings", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateAvailability_RequiresToken(t *testing.T) {
	e := newEnv(t)
	body := map[string]interface{}{"productsAvailability": map[string]bool{"p1": true}}

	resp, _ := e.do(t, http.MethodPut, "/api/availability/products", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodPut, "/api/availability/products", "wrong-token", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
}

func TestUpdateAvailability_RoundTrip(t *testing.T) {
	e := newEnv(t)

	resp, payload := e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{"p1": true, "p2": false},
		"actor":                "carla",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var count int
	json.Unmarshal(payload["count"], &count)
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}

	_, payload = e.do(t, http.MethodGet, "/api/availability/products", "", nil)
	var m map[string]bool
	json.Unmarshal(payload["productsAvailability"], &m)
	if !m["p1"] || m["p2"] {
		t.Errorf("unexpected map after update: %v", m)
	}
	if _, ok := payload["lastUpdated"]; !ok {
		t.Error("expected lastUpdated after a write")
	}

	entries := e.store.AuditEntries()
	if len(entries) != 1 || entries[0].Actor != "carla" {
		t.Errorf("expected one audit entry by carla, got %+v", entries)
	}
}

func TestUpdateAvailability_RejectsNonBooleanValues(t *testing.T) {
	e := newEnv(t)

	resp, payload := e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]interface{}{"p1": "yes"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var code string
	json.Unmarshal(payload["code"], &code)
	if code != "invalid_input" {
		t.Errorf("expected code invalid_input, got %s", code)
	}
}

func TestUpdateAvailability_RejectsMissingField(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodPut, "/api/availability/flavors", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{"p1": true},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 when flavorsAvailability is missing, got %d", resp.StatusCode)
	}
}

func TestUpdateAvailability_RejectsEmptyPatch(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty patch, got %d", resp.StatusCode)
	}
}

func TestUpdateAvailability_OfflineFailsClosed(t *testing.T) {
	e := newEnv(t)
	e.monitor.setConnected(false)

	resp, payload := e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{"x": true},
	})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var offline bool
	json.Unmarshal(payload["offline"], &offline)
	if !offline {
		t.Error("expected offline=true in error payload")
	}

	// reads still succeed, flagged offline
	resp, payload = e.do(t, http.MethodGet, "/api/availability/products", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 read while offline, got %d", resp.StatusCode)
	}
	json.Unmarshal(payload["offline"], &offline)
	if !offline {
		t.Error("expected offline=true on degraded read")
	}
	var m map[string]bool
	json.Unmarshal(payload["productsAvailability"], &m)
	if _, ok := m["x"]; ok {
		t.Error("refused write leaked into the read path")
	}
}

func TestResetAvailability(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{"p1": true},
	})

	resp, _ := e.do(t, http.MethodPost, "/api/availability/reset", adminToken, map[string]interface{}{"actor": "carla"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, payload := e.do(t, http.MethodGet, "/api/availability/products", "", nil)
	var m map[string]bool
	json.Unmarshal(payload["productsAvailability"], &m)
	if len(m) != 0 {
		t.Errorf("expected empty map after reset, got %v", m)
	}
}

func TestAdminRateLimit(t *testing.T) {
	store := storage.NewMemoryStore()
	monitor := &stubMonitor{connected: true}
	c := cache.New()
	availability := service.NewAvailabilityService(c, store, monitor, store, time.Second)
	orders := service.NewOrderService(store, store, monitor, 500, time.Second)

	digest := sha256.Sum256([]byte(adminToken))
	h := NewHTTPHandler(availability, orders, monitor)
	// one request, then dry
	router := NewRouter(h, hex.EncodeToString(digest[:]), rate.NewLimiter(0, 1))
	srv := httptest.NewServer(router)
	defer srv.Close()
	e := &env{server: srv, store: store, monitor: monitor}

	body := map[string]interface{}{"productsAvailability": map[string]bool{"p1": true}}
	resp, _ := e.do(t, http.MethodPut, "/api/availability/products", adminToken, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPut, "/api/availability/products", adminToken, body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
}

func TestHealth_ReportsStateAndSizes(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPut, "/api/availability/products", adminToken, map[string]interface{}{
		"productsAvailability": map[string]bool{"p1": true, "p2": false},
	})
	e.monitor.setConnected(false)

	resp, payload := e.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var connected bool
	json.Unmarshal(payload["connected"], &connected)
	if connected {
		t.Error("expected connected=false")
	}
	var productCount int
	json.Unmarshal(payload["productCount"], &productCount)
	if productCount != 2 {
		t.Errorf("expected productCount 2, got %d", productCount)
	}
}

func TestPlaceOrder_Flow(t *testing.T) {
	e := newEnv(t)
	body := map[string]interface{}{
		"request_id": "req-1",
		"customer":   "Joana",
		"items": []map[string]interface{}{
			{"product_id": "acai-bowl", "flavor_key": "acai_medium", "quantity": 2, "unit_price": 1800},
		},
	}

	resp, payload := e.do(t, http.MethodPost, "/api/orders", "", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var order domain.Order
	if err := json.Unmarshal(payload["order"], &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.TotalAmount != 4100 || order.Pix.Payload == "" {
		t.Errorf("unexpected order: %+v", order)
	}

	// duplicate request id
	resp, _ = e.do(t, http.MethodPost, "/api/orders", "", body)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", resp.StatusCode)
	}

	// confirm payment
	resp, payload = e.do(t, http.MethodPost, "/api/orders/"+order.ID+"/confirm", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 confirm, got %d", resp.StatusCode)
	}
	json.Unmarshal(payload["order"], &order)
	if !order.Paid || order.Status != domain.OrderStatusConfirmed {
		t.Errorf("expected paid confirmed order, got %+v", order)
	}
}

func TestPlaceOrder_Invalid(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/api/orders", "", map[string]interface{}{
		"request_id": "req-1",
		"customer":   "Joana",
		"items":      []map[string]interface{}{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty items, got %d", resp.StatusCode)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/orders/missing", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
