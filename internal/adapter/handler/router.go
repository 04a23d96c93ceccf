package handler

import (
	"net/http"

	"golang.org/x/time/rate"
)

// NewRouter registers HTTP routes and wraps them in the middleware stack.
// Admin writes sit behind the token gate and rate limiter; reads and the
// health check stay open so the platform can probe the port immediately.
func NewRouter(h *HTTPHandler, adminTokenDigest string, adminLimiter *rate.Limiter) http.Handler {
	admin := AdminGate(adminTokenDigest, adminLimiter)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/availability/{kind}", h.GetAvailability)
	mux.Handle("PUT /api/availability/{kind}", admin(http.HandlerFunc(h.UpdateAvailability)))
	mux.Handle("POST /api/availability/reset", admin(http.HandlerFunc(h.ResetAvailability)))

	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/confirm", h.ConfirmPayment)

	mux.HandleFunc("GET /health", h.HealthCheck)

	return WithRequestID(WithLogging(mux))
}
