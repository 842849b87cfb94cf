package geo

import (
	"context"
	"encoding/json"
)

// Facts are the geospatial metrics computed by the analysis sidecar for a
// region. The sidecar degrades to a structured fallback payload on partial
// failure, so callers only ever see transport-level errors.
type Facts struct {
	AnalysisRegion             string          `json:"analysis_region"`
	FloodExtentKM2             float64         `json:"flood_extent_km2"`
	AffectedPopulationEstimate int             `json:"affected_population_estimate"`
	DamagedBuildingsCount      int             `json:"damaged_buildings_count"`
	CriticalRoadSegmentsGeoJSON json.RawMessage `json:"critical_road_segments_geojson"`
	WeatherImpact              string          `json:"weather_impact"`
	AOIGeoJSONLayer            json.RawMessage `json:"aoi_geojson_layer"`
}

// Client is an interface for communicating with the geospatial sidecar.
type Client interface {
	// FetchAOI returns the administrative boundary for a named region as
	// GeoJSON.
	FetchAOI(ctx context.Context, regionName string) (json.RawMessage, error)
	// FetchStats runs the post-event geospatial analysis for a region.
	FetchStats(ctx context.Context, regionName string) (*Facts, error)
}
