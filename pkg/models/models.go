// Package models defines the workflow records shared by the pipeline stages.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document collections, keyed by request ID.
const (
	CollectionRescueRequests = "RescueRequests"
	CollectionDamageReports  = "DamageReports"
	CollectionLogisticsPlans = "LogisticsPlans"
	CollectionInventory      = "Inventory"
)

// MaxInputLength bounds the user-supplied region and event names. This is an
// abuse-resistance guardrail, not a business rule.
const MaxInputLength = 100

// ValidationError indicates a payload or record that failed shape validation.
// It is never retried automatically.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Detail
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// Trigger is the payload handed from one stage to the next over the bus.
type Trigger struct {
	RequestID string `json:"request_id"`
}

// RescueRequest is the root record created by the intake stage.
type RescueRequest struct {
	RequestID  string `json:"request_id"`
	RegionName string `json:"region_name"`
	EventName  string `json:"event_name"`
	Timestamp  string `json:"timestamp"`
	// AOIGeoJSON is the area-of-interest boundary, stored as an opaque
	// serialized blob understood only by the geospatial collaborator.
	AOIGeoJSON string `json:"aoi_geojson"`
}

// Validate checks the record for required fields.
func (r *RescueRequest) Validate() error {
	switch {
	case r.RequestID == "":
		return Validationf("rescue request missing request_id")
	case r.RegionName == "":
		return Validationf("rescue request missing region_name")
	case r.EventName == "":
		return Validationf("rescue request missing event_name")
	case r.AOIGeoJSON == "":
		return Validationf("rescue request missing aoi_geojson")
	}
	return nil
}

// RoadCut is a single point-incident on the road network.
type RoadCut struct {
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	SeverityScore int     `json:"severity_score"`
	Description   string  `json:"description"`
}

// DamageReport is produced by the analysis stage.
type DamageReport struct {
	RequestID                   string    `json:"request_id"`
	FloodKM2                    float64   `json:"flood_km2"`
	AffectedPopulation          int       `json:"affected_population"`
	DamagedBuildingsCount       int       `json:"damaged_buildings_count"`
	InfrastructureDamageSummary string    `json:"infrastructure_damage_summary"`
	RoadCuts                    []RoadCut `json:"road_cuts"`
	AnalysisModel               string    `json:"analysis_model"`
	Timestamp                   string    `json:"timestamp"`
}

// Validate checks the record for required fields and sane ranges.
func (r *DamageReport) Validate() error {
	switch {
	case r.RequestID == "":
		return Validationf("damage report missing request_id")
	case r.InfrastructureDamageSummary == "":
		return Validationf("damage report missing infrastructure_damage_summary")
	case r.FloodKM2 < 0:
		return Validationf("damage report flood_km2 is negative")
	case r.AffectedPopulation < 0:
		return Validationf("damage report affected_population is negative")
	case r.DamagedBuildingsCount < 0:
		return Validationf("damage report damaged_buildings_count is negative")
	}
	for i, rc := range r.RoadCuts {
		if rc.Description == "" {
			return Validationf("damage report road_cuts[%d] missing description", i)
		}
		if rc.SeverityScore < 1 || rc.SeverityScore > 5 {
			return Validationf("damage report road_cuts[%d] severity_score %d out of range", i, rc.SeverityScore)
		}
	}
	return nil
}

// ResourceAllocation assigns a quantity of one named resource to a zone.
type ResourceAllocation struct {
	ResourceName string `json:"resource_name"`
	Quantity     int    `json:"quantity"`
}

// PriorityZone is a relief zone with its resource allocation.
type PriorityZone struct {
	ZoneName                    string               `json:"zone_name"`
	Latitude                    float64              `json:"latitude"`
	Longitude                   float64              `json:"longitude"`
	EstimatedAffectedPopulation int                  `json:"estimated_affected_population"`
	AllocatedResources          []ResourceAllocation `json:"allocated_resources"`
}

// LogisticsPlan is the terminal record produced by the planning stage.
type LogisticsPlan struct {
	RequestID     string         `json:"request_id"`
	PlanSummary   string         `json:"plan_summary"`
	KeyChallenges []string       `json:"key_challenges"`
	PriorityZones []PriorityZone `json:"priority_zones"`
	AnalysisModel string         `json:"analysis_model"`
	Timestamp     string         `json:"timestamp"`
}

// Validate checks the record for required fields.
func (p *LogisticsPlan) Validate() error {
	switch {
	case p.RequestID == "":
		return Validationf("logistics plan missing request_id")
	case p.PlanSummary == "":
		return Validationf("logistics plan missing plan_summary")
	case len(p.PriorityZones) == 0:
		return Validationf("logistics plan has no priority_zones")
	}
	for i, z := range p.PriorityZones {
		if z.ZoneName == "" {
			return Validationf("logistics plan priority_zones[%d] missing zone_name", i)
		}
		if z.EstimatedAffectedPopulation < 0 {
			return Validationf("logistics plan priority_zones[%d] estimated_affected_population is negative", i)
		}
		for j, a := range z.AllocatedResources {
			if a.ResourceName == "" {
				return Validationf("logistics plan priority_zones[%d] allocation %d missing resource_name", i, j)
			}
			if a.Quantity < 0 {
				return Validationf("logistics plan priority_zones[%d] allocates negative %q", i, a.ResourceName)
			}
		}
	}
	return nil
}

// DecodeStrict unmarshals JSON into v, rejecting unknown fields and type
// mismatches. Model output goes through this before anything is stored.
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return Validationf("decode: %v", err)
	}
	return nil
}
