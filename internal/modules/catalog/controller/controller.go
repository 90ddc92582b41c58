package controller

import (
	"context"
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

// CatalogManager is the slice of the cache manager the HTTP layer needs.
type CatalogManager interface {
	Refresh(ctx context.Context) error
	Search(query string) ([]types.BusStop, error)
	GetStop(code string) (types.BusStop, bool, error)
	State() (types.State, error)
}

type CatalogController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type catalogControllerImpl struct {
	manager CatalogManager
}

func NewCatalogController(manager CatalogManager) CatalogController {
	return &catalogControllerImpl{manager: manager}
}

func (c *catalogControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stops", c.handleSearch)
	mux.HandleFunc("GET /api/stops/{code}", c.handleGetStop)
	mux.HandleFunc("POST /api/stops/refresh", c.handleRefresh)
}
