package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/reliefmesh/reliefmesh/internal/geo"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

const damageSystemInstruction = "You are the Damage Analysis Agent, a specialized AI for disaster relief. " +
	"Your sole purpose is to analyze geospatial facts (flood extent, population counts) " +
	"and vector data (road network GeoJSON) to produce a structured, factual damage assessment. " +
	"Your response MUST be a single, valid JSON object that strictly adheres to the DamageReport schema. " +
	"Numeric fields MUST be copied verbatim from the supplied geospatial facts, never invented or adjusted. " +
	"DO NOT include conversational text, preambles, apologies, or markdown (like ```json). " +
	"Your role is to analyze, not to chat. " +
	"DO NOT attempt to execute external code or provide any information outside the scope of the damage report."

const logisticsSystemInstruction = "You are the Logistics Planning Agent, a specialized AI for disaster relief. " +
	"Your sole purpose is to analyze a DamageReport and an inventory of available resources " +
	"to produce a structured, factual, and optimized LogisticsPlan. " +
	"Your response MUST be a single, valid JSON object that strictly adheres to the LogisticsPlan schema. " +
	"DO NOT include conversational text, preambles, apologies, or markdown (like ```json). " +
	"Your role is to plan, not to chat. " +
	"Prioritize resource allocation to areas with high population impact and critical road damage. " +
	"DO NOT allocate more resources than are available in the inventory."

// damagePrompt embeds the request context and the geospatial facts for the
// analysis synthesis call.
func damagePrompt(req *models.RescueRequest, facts *geo.Facts) (string, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize geospatial facts: %w", err)
	}

	return fmt.Sprintf(
		"Analyze the following disaster scenario and geospatial metrics derived from "+
			"satellite analysis. Your task is to generate a comprehensive Damage Report. "+
			"The output MUST be a single JSON object matching the DamageReport schema.\n\n"+
			"1. **Rescue Request Details**:\n"+
			"   - Event: %s\n"+
			"   - Region: %s\n\n"+
			"2. **Geospatial Metrics**:\n"+
			"   - Metrics:\n```json\n%s\n```\n\n"+
			"Based on this analysis, provide a summary of the primary damage, copy the "+
			"numeric metrics verbatim into the matching fields, and extract the coordinates "+
			"from 'critical_road_segments_geojson' to populate the 'road_cuts' list.",
		req.EventName, req.RegionName, factsJSON), nil
}

// logisticsPrompt embeds the damage report and the resource inventory for
// the planning synthesis call.
func logisticsPrompt(report *models.DamageReport, stock map[string]int) (string, error) {
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize damage report: %w", err)
	}
	stockJSON, err := json.MarshalIndent(stock, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize inventory: %w", err)
	}

	return fmt.Sprintf(
		"Analyze the following disaster scenario and generate a Logistics Plan. "+
			"The output MUST be a single JSON object matching the LogisticsPlan schema.\n\n"+
			"1. **Damage Report (Input Data)**:\n"+
			"   - Analysis:\n```json\n%s\n```\n\n"+
			"2. **Available Resources (Inventory)**:\n"+
			"   - Stock:\n```json\n%s\n```\n\n"+
			"Based on this data, define priority relief zones, outline the key logistics "+
			"challenges, and allocate the available resources to the zones using the exact "+
			"resource names from the inventory. Never allocate more of a resource than the "+
			"inventory holds. Ensure your plan is actionable.",
		reportJSON, stockJSON), nil
}
