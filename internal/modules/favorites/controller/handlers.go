package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"

	cattypes "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/utils"
)

func (c *favoritesControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	codes, err := c.repository.LoadFavorites()
	if err != nil {
		slog.Error("load favorites failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load favorites")
		return
	}

	stops := make([]cattypes.BusStop, 0, len(codes))
	for _, code := range codes {
		stop, found, err := c.stops.GetStop(code)
		if err != nil {
			slog.Error("resolve favorite failed", "code", code, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to load favorites")
			return
		}
		if !found {
			// Stop dropped from the catalog; keep the favorite row but hide it.
			slog.Debug("favorite not in catalog, skipping", "code", code)
			continue
		}
		stops = append(stops, stop)
	}
	utils.WriteJSON(w, http.StatusOK, stops)
}

func (c *favoritesControllerImpl) handleToggle(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing stop code")
		return
	}
	favorited, err := c.repository.ToggleFavorite(code)
	if err != nil {
		slog.Error("toggle favorite failed", "code", code, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to toggle favorite")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"favorited": favorited})
}

func (c *favoritesControllerImpl) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Codes []string `json:"codes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Codes) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "codes required")
		return
	}
	if err := c.repository.Reorder(body.Codes); err != nil {
		slog.Error("reorder favorites failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to reorder favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *favoritesControllerImpl) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := c.repository.ClearAllFavorites(); err != nil {
		slog.Error("clear favorites failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to clear favorites")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
