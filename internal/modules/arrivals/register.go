package arrivals

import (
	"net/http"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/controller"
)

func RegisterFeature(mux *http.ServeMux, service controller.ArrivalsService, scheduler *Scheduler) {
	arrivalsController := controller.NewArrivalsController(service, scheduler)
	arrivalsController.RegisterRoutes(mux)
}
