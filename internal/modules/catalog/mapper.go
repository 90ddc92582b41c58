package catalog

import (
	"encoding/json"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/datamall"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

type busStopDTO struct {
	BusStopCode string  `json:"BusStopCode"`
	RoadName    string  `json:"RoadName"`
	Description string  `json:"Description"`
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
}

// mapBusStops converts one raw catalog document into models. Upstream
// occasionally returns partial records, so mapping never fails: a missing or
// non-array value maps to nothing, entries without a BusStopCode are dropped,
// and missing fields keep their zero values.
func mapBusStops(doc datamall.BusStopsDocument) []types.BusStop {
	entries := doc.Entries()
	if len(entries) == 0 {
		return nil
	}
	out := make([]types.BusStop, 0, len(entries))
	for _, raw := range entries {
		var dto busStopDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			continue
		}
		if dto.BusStopCode == "" {
			continue
		}
		out = append(out, types.BusStop{
			Code:        dto.BusStopCode,
			RoadName:    dto.RoadName,
			Description: dto.Description,
			Latitude:    dto.Latitude,
			Longitude:   dto.Longitude,
		})
	}
	return out
}
