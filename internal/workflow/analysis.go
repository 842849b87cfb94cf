package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/reliefmesh/reliefmesh/internal/bus"
	"github.com/reliefmesh/reliefmesh/internal/geo"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/internal/store"
	"github.com/reliefmesh/reliefmesh/internal/synthesis"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// Analysis is the second pipeline stage. Triggered by a bus message, it
// reads the RescueRequest, runs the geospatial analysis, synthesizes the
// DamageReport and hands off to planning.
type Analysis struct {
	store         store.DocumentStore
	bus           bus.Publisher
	geo           geo.Client
	synth         synthesis.Synthesizer
	collections   Collections
	planningTopic string
	backoff       BackoffFactory
	logger        *logging.Logger

	now func() time.Time
}

// NewAnalysis creates a new Analysis stage.
func NewAnalysis(s store.DocumentStore, b bus.Publisher, g geo.Client, synth synthesis.Synthesizer, collections Collections, planningTopic string, backoff BackoffFactory, logger *logging.Logger) *Analysis {
	return &Analysis{
		store:         s,
		bus:           b,
		geo:           g,
		synth:         synth,
		collections:   collections,
		planningTopic: planningTopic,
		backoff:       backoff,
		logger:        logger.Named("analysis"),
		now:           time.Now,
	}
}

// Run executes the analysis stage for one request identifier.
//
// The RescueRequest read retries with backoff: intake's write may not yet be
// visible to this reader. A publish failure after the report is stored IS
// fatal — the expensive analysis work is done and there is no monitoring
// path for a silently dropped hand-off; a redelivered trigger recomputes and
// overwrites, which is safe.
func (s *Analysis) Run(ctx context.Context, requestID string) (err error) {
	defer func() { recordStage(ctx, "analysis", err) }()

	raw, attempts, err := fetchDocument(ctx, s.store, s.collections.Requests, requestID, s.backoff)
	if attempts > 1 {
		readRetries.Add(ctx, int64(attempts-1))
	}
	if err != nil {
		return err
	}

	var request models.RescueRequest
	if err = models.DecodeStrict(raw, &request); err != nil {
		return fmt.Errorf("rescue request %s is malformed: %w", requestID, err)
	}
	if err = request.Validate(); err != nil {
		return fmt.Errorf("rescue request %s: %w", requestID, err)
	}

	facts, err := s.geo.FetchStats(ctx, request.RegionName)
	if err != nil {
		return fmt.Errorf("geospatial analysis failed for %s: %w", requestID, err)
	}
	s.logger.Info("geospatial facts computed",
		"request_id", requestID,
		"flood_extent_km2", facts.FloodExtentKM2,
		"affected_population", facts.AffectedPopulationEstimate)

	prompt, err := damagePrompt(&request, facts)
	if err != nil {
		return err
	}

	out, err := s.synth.Generate(ctx, synthesis.Request{
		SystemInstruction: damageSystemInstruction,
		Prompt:            prompt,
		Schema:            damageReportSchema(),
	})
	if err != nil {
		return fmt.Errorf("damage report synthesis failed for %s: %w", requestID, err)
	}

	var report models.DamageReport
	if err = models.DecodeStrict([]byte(out), &report); err != nil {
		// Raw text is diagnostic only; it must never reach the store.
		s.logger.Error("model output rejected", "request_id", requestID, "error", err, "raw", out)
		return fmt.Errorf("damage report for %s failed shape validation: %w", requestID, err)
	}

	report.RequestID = requestID
	report.AnalysisModel = s.synth.ModelID()
	report.Timestamp = timestamp(s.now)

	if err = report.Validate(); err != nil {
		s.logger.Error("model output rejected", "request_id", requestID, "error", err, "raw", out)
		return fmt.Errorf("damage report for %s failed shape validation: %w", requestID, err)
	}

	if err = s.store.Put(ctx, s.collections.Reports, requestID, &report); err != nil {
		return fmt.Errorf("failed to store damage report: %w", err)
	}
	s.logger.Info("damage report stored", "collection", s.collections.Reports, "request_id", requestID)

	if _, err = s.bus.Publish(ctx, s.planningTopic, models.Trigger{RequestID: requestID}); err != nil {
		return fmt.Errorf("failed to publish planning trigger for %s: %w", requestID, err)
	}
	s.logger.Info("planning stage triggered", "topic", s.planningTopic, "request_id", requestID)
	return nil
}
