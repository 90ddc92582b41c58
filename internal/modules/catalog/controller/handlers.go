package controller

import (
	"log/slog"
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/utils"
)

func (c *catalogControllerImpl) handleSearch(w http.ResponseWriter, r *http.Request) {
	stops, err := c.manager.Search(r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("stop search failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to search stops")
		return
	}
	if stops == nil {
		stops = []types.BusStop{}
	}
	utils.WriteJSON(w, http.StatusOK, stops)
}

func (c *catalogControllerImpl) handleGetStop(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing stop code")
		return
	}
	stop, found, err := c.manager.GetStop(code)
	if err != nil {
		slog.Error("get stop failed", "code", code, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stop")
		return
	}
	if !found {
		utils.WriteError(w, http.StatusNotFound, "unknown stop code")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stop)
}

func (c *catalogControllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := c.manager.Refresh(r.Context()); err != nil {
		// The previously cached catalog stays authoritative on failure.
		slog.Warn("catalog refresh failed", "error", err)
		utils.WriteError(w, http.StatusBadGateway, "catalog refresh failed")
		return
	}
	state, err := c.manager.State()
	if err != nil {
		slog.Error("catalog state check failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to read catalog state")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}
