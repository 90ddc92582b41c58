package controller

import (
	"net/http"

	cattypes "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

// FavoritesRepository is the slice of the repository the HTTP layer needs.
type FavoritesRepository interface {
	LoadFavorites() ([]string, error)
	ToggleFavorite(busStopCode string) (bool, error)
	Reorder(busStopCodes []string) error
	ClearAllFavorites() error
}

// StopResolver looks favorite codes up in the catalog so stale entries for
// stops that no longer exist are filtered from listings rather than surfaced.
type StopResolver interface {
	GetStop(code string) (cattypes.BusStop, bool, error)
}

type FavoritesController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type favoritesControllerImpl struct {
	repository FavoritesRepository
	stops      StopResolver
}

func NewFavoritesController(repository FavoritesRepository, stops StopResolver) FavoritesController {
	return &favoritesControllerImpl{repository: repository, stops: stops}
}

func (c *favoritesControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/favorites", c.handleList)
	mux.HandleFunc("POST /api/favorites/{code}/toggle", c.handleToggle)
	mux.HandleFunc("PUT /api/favorites/order", c.handleReorder)
	mux.HandleFunc("DELETE /api/favorites", c.handleClear)
}
