package handler

import (
	"net/http"
	"time"
)

// HealthChecker reports whether the storage backend is usable.
type HealthChecker interface {
	Healthy() bool
}

type HealthHandler struct {
	storage HealthChecker
	now     func() time.Time
}

func NewHealthHandler(storage HealthChecker) *HealthHandler {
	return &HealthHandler{storage: storage, now: time.Now}
}

// Health answers 200 while storage is healthy and 503 otherwise.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, storage, code := "ok", "ok", http.StatusOK
	if h.storage != nil && !h.storage.Healthy() {
		status, storage, code = "degraded", "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":    status,
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
		"storage":   storage,
	})
}
