package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reliefmesh/reliefmesh/internal/bus"
	"github.com/reliefmesh/reliefmesh/internal/geo"
	"github.com/reliefmesh/reliefmesh/internal/logging"
	"github.com/reliefmesh/reliefmesh/internal/store"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// Intake is the first pipeline stage. It mints the request identifier,
// resolves the area of interest, stores the RescueRequest and hands off to
// the analysis stage over the bus.
type Intake struct {
	store         store.DocumentStore
	bus           bus.Publisher
	geo           geo.Client
	collections   Collections
	analysisTopic string
	logger        *logging.Logger

	now   func() time.Time
	newID func() string
}

// NewIntake creates a new Intake stage.
func NewIntake(s store.DocumentStore, b bus.Publisher, g geo.Client, collections Collections, analysisTopic string, logger *logging.Logger) *Intake {
	return &Intake{
		store:         s,
		bus:           b,
		geo:           g,
		collections:   collections,
		analysisTopic: analysisTopic,
		logger:        logger.Named("intake"),
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// ValidateInput checks the user-supplied region and event names against the
// length guardrail.
func ValidateInput(regionName, eventName string) error {
	if regionName == "" || eventName == "" {
		return models.Validationf("missing 'region_name' or 'event_name'")
	}
	if len(regionName) > models.MaxInputLength || len(eventName) > models.MaxInputLength {
		return models.Validationf("'region_name' and 'event_name' must be at most %d characters", models.MaxInputLength)
	}
	return nil
}

// Initiate starts a new workflow and returns its request identifier.
//
// A failed AOI lookup is fatal: no downstream stage can run without one. A
// failed publish after the record is stored is NOT fatal — re-running intake
// would mint a new identifier and orphan the stored record, so the trigger
// gap is left to monitoring instead.
func (s *Intake) Initiate(ctx context.Context, regionName, eventName string) (requestID string, err error) {
	defer func() { recordStage(ctx, "intake", err) }()

	if err = ValidateInput(regionName, eventName); err != nil {
		return "", err
	}

	requestID = s.newID()
	s.logger.Info("initiating workflow", "request_id", requestID, "region", regionName, "event", eventName)

	aoi, err := s.geo.FetchAOI(ctx, regionName)
	if err != nil {
		return "", fmt.Errorf("failed to fetch AOI for %q: %w", regionName, err)
	}

	record := models.RescueRequest{
		RequestID:  requestID,
		RegionName: regionName,
		EventName:  eventName,
		Timestamp:  timestamp(s.now),
		AOIGeoJSON: string(aoi),
	}
	if err = s.store.Put(ctx, s.collections.Requests, requestID, &record); err != nil {
		return "", fmt.Errorf("failed to store rescue request: %w", err)
	}
	s.logger.Info("rescue request stored", "collection", s.collections.Requests, "request_id", requestID)

	if _, pubErr := s.bus.Publish(ctx, s.analysisTopic, models.Trigger{RequestID: requestID}); pubErr != nil {
		// The record exists; monitoring alerts on missing downstream progress.
		s.logger.Error("failed to publish analysis trigger", "request_id", requestID, "error", pubErr)
	} else {
		s.logger.Info("analysis stage triggered", "topic", s.analysisTopic, "request_id", requestID)
	}

	return requestID, nil
}
