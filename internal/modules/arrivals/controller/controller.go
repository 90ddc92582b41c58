package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/types"
)

// ArrivalsService answers one-off arrival queries.
type ArrivalsService interface {
	GetArrivals(ctx context.Context, busStopCode string) (types.StopArrivals, error)
}

// WatchScheduler is the slice of the auto-refresh scheduler the HTTP layer
// drives.
type WatchScheduler interface {
	Start(busStopCode string, interval time.Duration) error
	Pause()
	Resume()
	Stop()
	Session() (types.WatchSession, bool)
}

type ArrivalsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type arrivalsControllerImpl struct {
	service   ArrivalsService
	scheduler WatchScheduler
}

func NewArrivalsController(service ArrivalsService, scheduler WatchScheduler) ArrivalsController {
	return &arrivalsControllerImpl{service: service, scheduler: scheduler}
}

func (c *arrivalsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/arrivals/{code}", c.handleGetArrivals)
	mux.HandleFunc("GET /api/watch", c.handleGetWatch)
	mux.HandleFunc("POST /api/watch", c.handleStartWatch)
	mux.HandleFunc("POST /api/watch/pause", c.handlePauseWatch)
	mux.HandleFunc("POST /api/watch/resume", c.handleResumeWatch)
	mux.HandleFunc("DELETE /api/watch", c.handleStopWatch)
}
