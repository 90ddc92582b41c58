package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/utils"
)

// catalogStateReporter reports the cache lifecycle state for the health body.
type catalogStateReporter interface {
	State() (types.State, error)
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db      *sql.DB
	catalog catalogStateReporter
}

func NewHealthchecker(db *sql.DB, catalog catalogStateReporter) healthchecker {
	return &healthcheckerImpl{db: db, catalog: catalog}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		slog.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	state, err := h.catalog.State()
	if err != nil {
		slog.Error("failed to read catalog state", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read catalog state")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"catalog": string(state),
	})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, catalog catalogStateReporter) {
	healthchecker := NewHealthchecker(db, catalog)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
