package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

func seedReport(s *memStore) {
	s.seed("DamageReports", "R1", &models.DamageReport{
		RequestID:                   "R1",
		FloodKM2:                    45.1,
		AffectedPopulation:          18250,
		DamagedBuildingsCount:       1240,
		InfrastructureDamageSummary: "Widespread flooding across the central sector.",
		RoadCuts: []models.RoadCut{
			{Latitude: 10.31, Longitude: 123.95, SeverityScore: 5, Description: "Bridge washed out."},
		},
		AnalysisModel: "test-model",
		Timestamp:     "2026-08-30T12:00:00Z",
	})
}

func testStock() map[string]int {
	return map[string]int{
		"Tents (family size)":       150,
		"Water Filters (units)":     200,
		"Ready-to-Eat Meals (kits)": 5000,
	}
}

const validPlanJSON = `{
	"plan_summary": "Deploy shelter and water assets to the two worst-hit zones.",
	"key_challenges": ["Severed road access to the southern sector."],
	"priority_zones": [
		{"zone_name": "Cebu City North", "latitude": 10.35, "longitude": 123.91,
		 "estimated_affected_population": 12000,
		 "allocated_resources": [
			{"resource_name": "Tents (family size)", "quantity": 100},
			{"resource_name": "Water Filters (units)", "quantity": 150}
		 ]},
		{"zone_name": "Sudlon Uplands", "latitude": 10.25, "longitude": 123.83,
		 "estimated_affected_population": 6250,
		 "allocated_resources": [
			{"resource_name": "Tents (family size)", "quantity": 50}
		 ]}
	]
}`

func newTestPlanning(s *memStore, synth *fakeSynth, inv *fakeInventory) *Planning {
	p := NewPlanning(s, synth, inv, testCollections, logging.NewNop())
	p.now = fixedNow
	return p
}

func TestPlanningRun(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores terminal plan", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		synth := &fakeSynth{output: validPlanJSON}

		err := newTestPlanning(s, synth, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.NoError(t, err)

		raw := s.docs[key("LogisticsPlans", "R1")]
		require.NotNil(t, raw)
		var plan models.LogisticsPlan
		require.NoError(t, json.Unmarshal(raw, &plan))

		assert.Equal(t, "R1", plan.RequestID)
		assert.Equal(t, "test-model", plan.AnalysisModel)
		assert.Equal(t, "2026-08-30T12:00:00Z", plan.Timestamp)
		require.Len(t, plan.PriorityZones, 2)

		// The prompt embeds the report and the inventory.
		assert.Contains(t, synth.lastReq.Prompt, "Widespread flooding")
		assert.Contains(t, synth.lastReq.Prompt, "Tents (family size)")
	})

	t.Run("absent report fails the stage", func(t *testing.T) {
		s := newMemStore()
		err := newTestPlanning(s, &fakeSynth{output: validPlanJSON}, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.Error(t, err)
		assert.Nil(t, s.docs[key("LogisticsPlans", "R1")])
		// Single read attempt, no retry loop.
		assert.Equal(t, 1, s.getCount[key("DamageReports", "R1")])
	})

	t.Run("malformed report fails the stage", func(t *testing.T) {
		s := newMemStore()
		s.seed("DamageReports", "R1", map[string]any{"request_id": "R1"})
		err := newTestPlanning(s, &fakeSynth{output: validPlanJSON}, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.Error(t, err)
	})

	t.Run("plan exceeding inventory is rejected before store", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		// 100 + 50 tents fit; shrink stock so the total no longer does.
		stock := testStock()
		stock["Tents (family size)"] = 120

		err := newTestPlanning(s, &fakeSynth{output: validPlanJSON}, &fakeInventory{stock: stock}).Run(ctx, "R1")
		require.Error(t, err)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Nil(t, s.docs[key("LogisticsPlans", "R1")])
	})

	t.Run("plan allocating an unknown resource is rejected", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		synth := &fakeSynth{output: `{
			"plan_summary": "x", "key_challenges": [],
			"priority_zones": [{"zone_name": "Z", "latitude": 0, "longitude": 0,
				"estimated_affected_population": 1,
				"allocated_resources": [{"resource_name": "Helicopters", "quantity": 1}]}]
		}`}

		err := newTestPlanning(s, synth, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.Error(t, err)
		assert.Nil(t, s.docs[key("LogisticsPlans", "R1")])
	})

	t.Run("model output without zones is rejected", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		synth := &fakeSynth{output: `{"plan_summary": "x", "key_challenges": [], "priority_zones": []}`}

		err := newTestPlanning(s, synth, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.Error(t, err)
	})

	t.Run("synthesis failure fails the stage", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		err := newTestPlanning(s, &fakeSynth{err: errBoom}, &fakeInventory{stock: testStock()}).Run(ctx, "R1")
		require.Error(t, err)
	})

	t.Run("inventory failure fails the stage", func(t *testing.T) {
		s := newMemStore()
		seedReport(s)
		err := newTestPlanning(s, &fakeSynth{output: validPlanJSON}, &fakeInventory{err: errBoom}).Run(ctx, "R1")
		require.Error(t, err)
	})
}
