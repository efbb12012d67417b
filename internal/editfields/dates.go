package editfields

import "github.com/temirov/layeraudit/internal/gis"

// EditDates carries the resolved data and schema edit timestamps in epoch milliseconds; zero means unknown.
type EditDates struct {
	DataUpdated   int64
	SchemaUpdated int64
}

// ExtractEditDates prefers layer edit tracking over service edit tracking. The schema date
// additionally falls back to lastSchemaEditDate on the layer and then the service.
func ExtractEditDates(layerProperties gis.LayerProperties, serviceProperties gis.ServiceProperties) EditDates {
	var resolvedDates EditDates
	for _, editingInfo := range []*gis.EditingInfo{layerProperties.EditingInfo, serviceProperties.EditingInfo} {
		if editingInfo == nil {
			continue
		}
		if resolvedDates.DataUpdated == 0 {
			resolvedDates.DataUpdated = editingInfo.DataLastEditDate
		}
		if resolvedDates.SchemaUpdated == 0 {
			resolvedDates.SchemaUpdated = editingInfo.SchemaLastEditDate
		}
	}
	if resolvedDates.SchemaUpdated == 0 {
		resolvedDates.SchemaUpdated = firstNonZero(layerProperties.LastSchemaEditDate, serviceProperties.LastSchemaEditDate)
	}
	return resolvedDates
}

func firstNonZero(values ...int64) int64 {
	for _, value := range values {
		if value != 0 {
			return value
		}
	}
	return 0
}
