package main

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// stateSource vrací aktuální stav zařízení (Agent.Snapshot).
type stateSource interface {
	Snapshot() State
}

// StatusHandler je lokální HTTP API agenta: healthcheck a stav zařízení.
type StatusHandler struct {
	state  stateSource
	logger *slog.Logger
}

func NewStatusHandler(state stateSource, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{state: state, logger: logger}
}

// Router vrací router se všemi cestami.
func (h *StatusHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/state", h.handleState).Methods(http.MethodGet)
	return r
}

// handleHealth: GET /health
func (h *StatusHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleState: GET /api/state
func (h *StatusHandler) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.state.Snapshot()); err != nil {
		h.logger.Error("Chyba při zápisu JSON odpovědi", "error", err)
	}
}

// startStatusServer spustí status API. Blokuje, volá se v goroutině.
func startStatusServer(srv *http.Server, logger *slog.Logger) {
	logger.Info("Status server běží", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Status server spadl", "error", err)
	}
}
