package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/utils"
)

func (c *arrivalsControllerImpl) handleGetArrivals(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing stop code")
		return
	}
	snapshot, err := c.service.GetArrivals(r.Context(), code)
	if err != nil {
		slog.Warn("arrival lookup failed", "code", code, "error", err)
		utils.WriteError(w, http.StatusBadGateway, "failed to fetch arrivals")
		return
	}
	utils.WriteJSON(w, http.StatusOK, snapshot)
}

func (c *arrivalsControllerImpl) handleGetWatch(w http.ResponseWriter, r *http.Request) {
	sess, ok := c.scheduler.Session()
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "no active watch")
		return
	}
	utils.WriteJSON(w, http.StatusOK, sess)
}

func (c *arrivalsControllerImpl) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StopCode   string `json:"stopCode"`
		IntervalMS int64  `json:"intervalMs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.StopCode == "" {
		utils.WriteError(w, http.StatusBadRequest, "stopCode required")
		return
	}
	if err := c.scheduler.Start(body.StopCode, time.Duration(body.IntervalMS)*time.Millisecond); err != nil {
		slog.Error("start watch failed", "stopCode", body.StopCode, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to start watch")
		return
	}
	// Interval may have been clamped; report what the watch actually runs at.
	sess, _ := c.scheduler.Session()
	utils.WriteJSON(w, http.StatusCreated, sess)
}

func (c *arrivalsControllerImpl) handlePauseWatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.scheduler.Session(); !ok {
		utils.WriteError(w, http.StatusNotFound, "no active watch")
		return
	}
	c.scheduler.Pause()
	sess, _ := c.scheduler.Session()
	utils.WriteJSON(w, http.StatusOK, sess)
}

func (c *arrivalsControllerImpl) handleResumeWatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := c.scheduler.Session(); !ok {
		utils.WriteError(w, http.StatusNotFound, "no active watch")
		return
	}
	c.scheduler.Resume()
	sess, _ := c.scheduler.Session()
	utils.WriteJSON(w, http.StatusOK, sess)
}

func (c *arrivalsControllerImpl) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	c.scheduler.Stop()
	w.WriteHeader(http.StatusNoContent)
}
