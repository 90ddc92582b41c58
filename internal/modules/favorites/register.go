package favorites

import (
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/favorites/controller"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/favorites/repository"
)

func RegisterFeature(mux *http.ServeMux, repo repository.FavoritesRepository, stops controller.StopResolver) {
	favoritesController := controller.NewFavoritesController(repo, stops)
	favoritesController.RegisterRoutes(mux)
}
