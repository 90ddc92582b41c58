package catalog

import (
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/controller"
)

func RegisterFeature(mux *http.ServeMux, manager *Manager) {
	catalogController := controller.NewCatalogController(manager)
	catalogController.RegisterRoutes(mux)
}
