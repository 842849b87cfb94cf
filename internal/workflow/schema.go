package workflow

import "google.golang.org/genai"

// The response schemas handed to the model cover only the model-derived
// fields. request_id, analysis_model and timestamp are injected by the stage
// after parsing, never generated.

func damageReportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"flood_km2": {
				Type:        genai.TypeNumber,
				Description: "Flooded area in square kilometers, copied verbatim from flood_extent_km2.",
			},
			"affected_population": {
				Type:        genai.TypeInteger,
				Description: "Copied verbatim from affected_population_estimate.",
			},
			"damaged_buildings_count": {
				Type:        genai.TypeInteger,
				Description: "Copied verbatim from the supplied facts.",
			},
			"infrastructure_damage_summary": {
				Type:        genai.TypeString,
				Description: "Narrative summary of the primary damage.",
			},
			"road_cuts": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"latitude":  {Type: genai.TypeNumber},
						"longitude": {Type: genai.TypeNumber},
						"severity_score": {
							Type:        genai.TypeInteger,
							Description: "1 (minor) to 5 (impassable).",
						},
						"description": {Type: genai.TypeString},
					},
					Required: []string{"latitude", "longitude", "severity_score", "description"},
				},
			},
		},
		Required: []string{
			"flood_km2", "affected_population", "damaged_buildings_count",
			"infrastructure_damage_summary", "road_cuts",
		},
	}
}

func logisticsPlanSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"plan_summary": {
				Type:        genai.TypeString,
				Description: "Narrative summary of the relief plan.",
			},
			"key_challenges": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"priority_zones": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"zone_name": {Type: genai.TypeString},
						"latitude":  {Type: genai.TypeNumber},
						"longitude": {Type: genai.TypeNumber},
						"estimated_affected_population": {Type: genai.TypeInteger},
						"allocated_resources": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"resource_name": {
										Type:        genai.TypeString,
										Description: "Exact resource name from the inventory.",
									},
									"quantity": {Type: genai.TypeInteger},
								},
								Required: []string{"resource_name", "quantity"},
							},
						},
					},
					Required: []string{
						"zone_name", "latitude", "longitude",
						"estimated_affected_population", "allocated_resources",
					},
				},
			},
		},
		Required: []string{"plan_summary", "key_challenges", "priority_zones"},
	}
}
