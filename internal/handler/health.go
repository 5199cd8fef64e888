package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/coinage-io/coinage/internal/domain"
)

type HealthHandler struct {
	db         *sql.DB
	currencies *domain.Currencies
}

func NewHealthHandler(db *sql.DB, currencies *domain.Currencies) *HealthHandler {
	return &HealthHandler{db: db, currencies: currencies}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	httpStatus := http.StatusOK

	if err := h.db.PingContext(r.Context()); err != nil {
		slog.Warn("readiness check failed: database unreachable", "error", err)
		dbStatus = "down"
		httpStatus = http.StatusServiceUnavailable
	}

	currencyStatus := "ok"
	if len(h.currencies.All()) == 0 {
		currencyStatus = "empty"
		httpStatus = http.StatusServiceUnavailable
	}

	overallStatus := "ok"
	if httpStatus != http.StatusOK {
		overallStatus = "down"
	}

	RespondJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]string{
			"database":   dbStatus,
			"currencies": currencyStatus,
		},
	})
}
