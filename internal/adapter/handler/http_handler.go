package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
	"github.com/brunovmr/acai-delivery/internal/core/service"
)

// HTTPHandler translates the HTTP surface to service calls. It owns no
// business rules beyond schema checks at the boundary: patches must be a
// JSON object of string to bool before the service ever sees them.
type HTTPHandler struct {
	availability *service.AvailabilityService
	orders       *service.OrderService
	monitor      service.ConnectionMonitor
}

func NewHTTPHandler(availability *service.AvailabilityService, orders *service.OrderService, monitor service.ConnectionMonitor) *HTTPHandler {
	return &HTTPHandler{availability: availability, orders: orders, monitor: monitor}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Offline bool   `json:"offline,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code, Offline: status == http.StatusServiceUnavailable})
}

// writeServiceError maps service sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "backing store is unreachable, write refused")
	case errors.Is(err, service.ErrStorePersist):
		writeError(w, http.StatusBadGateway, "store_persist_failed", "backing store rejected the write")
	case errors.Is(err, service.ErrDuplicateOrder):
		writeError(w, http.StatusConflict, "duplicate_order", "an order with this request id already exists")
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "no such order")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func kindFromPath(r *http.Request) (domain.Kind, bool) {
	kind := domain.Kind(r.PathValue("kind"))
	return kind, kind.Valid()
}

func (h *HTTPHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_kind", "kind must be products or flavors")
		return
	}

	data, lastUpdated, degraded := h.availability.GetAvailability(kind)
	resp := map[string]interface{}{
		"success":                     true,
		string(kind) + "Availability": data,
		"offline":                     degraded,
	}
	if !lastUpdated.IsZero() {
		resp["lastUpdated"] = lastUpdated.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_kind", "kind must be products or flavors")
		return
	}

	var body map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	raw, ok := body[string(kind)+"Availability"]
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", string(kind)+"Availability field is required")
		return
	}
	// Strict schema check at the boundary: the patch must be an object of
	// string to bool, nothing else.
	var patch map[string]bool
	if err := json.Unmarshal(raw, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "availability patch must map item keys to booleans")
		return
	}

	actor := "admin"
	if rawActor, ok := body["actor"]; ok {
		if err := json.Unmarshal(rawActor, &actor); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "actor must be a string")
			return
		}
	}

	count, err := h.availability.UpdateAvailability(r.Context(), kind, domain.AvailabilityMap(patch), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "count": count})
}

func (h *HTTPHandler) ResetAvailability(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor string `json:"actor"`
	}
	// body is optional for reset
	json.NewDecoder(r.Body).Decode(&body)
	if body.Actor == "" {
		body.Actor = "admin"
	}

	if err := h.availability.ResetAll(r.Context(), body.Actor); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type placeOrderRequest struct {
	RequestID string             `json:"request_id"`
	Customer  string             `json:"customer"`
	Items     []domain.OrderItem `json:"items"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		RequestID: req.RequestID,
		Customer:  req.Customer,
		Items:     req.Items,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "order": order})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

func (h *HTTPHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.ConfirmPayment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "order": order})
}

// HealthCheck reports connectivity and cached map sizes. It must answer
// immediately at boot, before the store has ever connected.
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.monitor.State()
	sizes := h.availability.MapSizes()
	resp := map[string]interface{}{
		"status":       "ok",
		"connected":    state.Connected,
		"retryCount":   state.RetryCount,
		"productCount": sizes[domain.KindProducts],
		"flavorCount":  sizes[domain.KindFlavors],
	}
	if state.LastError != "" {
		resp["lastError"] = state.LastError
	}
	writeJSON(w, http.StatusOK, resp)
}
