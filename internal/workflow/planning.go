package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/reliefmesh/reliefmesh/internal/inventory"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/internal/store"
	"github.com/reliefmesh/reliefmesh/internal/synthesis"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// Planning is the terminal pipeline stage. Triggered by a bus message, it
// reads the DamageReport, synthesizes the LogisticsPlan against the current
// inventory and stores it. Nothing is triggered afterwards.
type Planning struct {
	store       store.DocumentStore
	synth       synthesis.Synthesizer
	inventory   inventory.Provider
	collections Collections
	logger      *logging.Logger

	now func() time.Time
}

// NewPlanning creates a new Planning stage.
func NewPlanning(s store.DocumentStore, synth synthesis.Synthesizer, inv inventory.Provider, collections Collections, logger *logging.Logger) *Planning {
	return &Planning{
		store:       s,
		synth:       synth,
		inventory:   inv,
		collections: collections,
		logger:      logger.Named("planning"),
		now:         time.Now,
	}
}

// Run executes the planning stage for one request identifier.
//
// A single read attempt suffices here: the analysis stage publishes only
// after its own store write returned, and read-after-write by the same
// causal chain is assumed visible.
func (s *Planning) Run(ctx context.Context, requestID string) (err error) {
	defer func() { recordStage(ctx, "planning", err) }()

	raw, err := s.store.Get(ctx, s.collections.Reports, requestID)
	if err != nil {
		return fmt.Errorf("failed to read damage report %s: %w", requestID, err)
	}
	if raw == nil {
		return fmt.Errorf("damage report %s not found, cannot start planning", requestID)
	}

	var report models.DamageReport
	if err = models.DecodeStrict(raw, &report); err != nil {
		return fmt.Errorf("damage report %s is malformed: %w", requestID, err)
	}
	if err = report.Validate(); err != nil {
		return fmt.Errorf("damage report %s: %w", requestID, err)
	}

	stock, err := s.inventory.Available(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch inventory: %w", err)
	}

	prompt, err := logisticsPrompt(&report, stock)
	if err != nil {
		return err
	}

	out, err := s.synth.Generate(ctx, synthesis.Request{
		SystemInstruction: logisticsSystemInstruction,
		Prompt:            prompt,
		Schema:            logisticsPlanSchema(),
	})
	if err != nil {
		return fmt.Errorf("logistics plan synthesis failed for %s: %w", requestID, err)
	}

	var plan models.LogisticsPlan
	if err = models.DecodeStrict([]byte(out), &plan); err != nil {
		s.logger.Error("model output rejected", "request_id", requestID, "error", err, "raw", out)
		return fmt.Errorf("logistics plan for %s failed shape validation: %w", requestID, err)
	}

	plan.RequestID = requestID
	plan.AnalysisModel = s.synth.ModelID()
	plan.Timestamp = timestamp(s.now)

	if err = plan.Validate(); err != nil {
		s.logger.Error("model output rejected", "request_id", requestID, "error", err, "raw", out)
		return fmt.Errorf("logistics plan for %s failed shape validation: %w", requestID, err)
	}
	if err = checkAllocations(&plan, stock); err != nil {
		s.logger.Error("model output rejected", "request_id", requestID, "error", err, "raw", out)
		return fmt.Errorf("logistics plan for %s: %w", requestID, err)
	}

	if err = s.store.Put(ctx, s.collections.Plans, requestID, &plan); err != nil {
		return fmt.Errorf("failed to store logistics plan: %w", err)
	}
	s.logger.Info("logistics plan stored, workflow complete",
		"collection", s.collections.Plans, "request_id", requestID)
	return nil
}

// checkAllocations rejects a plan whose total allocation of any resource
// exceeds the supplied inventory, or that allocates a resource the inventory
// does not carry. A plan that ignores the inventory is not actionable.
func checkAllocations(plan *models.LogisticsPlan, stock map[string]int) error {
	totals := make(map[string]int)
	for _, zone := range plan.PriorityZones {
		for _, a := range zone.AllocatedResources {
			totals[a.ResourceName] += a.Quantity
		}
	}
	for name, total := range totals {
		available, ok := stock[name]
		if !ok {
			return models.Validationf("allocates unknown resource %q", name)
		}
		if total > available {
			return models.Validationf("allocates %d of %q but only %d available", total, name, available)
		}
	}
	return nil
}
