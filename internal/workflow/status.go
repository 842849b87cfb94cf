package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reliefmesh/reliefmesh/internal/store"
)

// Phase is the dashboard's view of one stage's record.
type Phase struct {
	Complete bool            `json:"complete"`
	Record   json.RawMessage `json:"record,omitempty"`
}

// WorkflowStatus reports which records exist for a request identifier.
// Absence at any phase is an ordinary state, not an error: a freshly
// submitted workflow has nothing computed yet.
type WorkflowStatus struct {
	RequestID string `json:"request_id"`
	Request   Phase  `json:"request"`
	Report    Phase  `json:"report"`
	Plan      Phase  `json:"plan"`
	Complete  bool   `json:"complete"`
}

// Status is the read-only observer behind the dashboard. It owns no records.
type Status struct {
	store       store.DocumentStore
	collections Collections
}

// NewStatus creates a new Status reader.
func NewStatus(s store.DocumentStore, collections Collections) *Status {
	return &Status{store: s, collections: collections}
}

// Check polls the three collections for the identifier.
func (s *Status) Check(ctx context.Context, requestID string) (*WorkflowStatus, error) {
	status := &WorkflowStatus{RequestID: requestID}

	for _, probe := range []struct {
		collection string
		phase      *Phase
	}{
		{s.collections.Requests, &status.Request},
		{s.collections.Reports, &status.Report},
		{s.collections.Plans, &status.Plan},
	} {
		raw, err := s.store.Get(ctx, probe.collection, requestID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll %s/%s: %w", probe.collection, requestID, err)
		}
		probe.phase.Complete = raw != nil
		probe.phase.Record = raw
	}

	status.Complete = status.Request.Complete && status.Report.Complete && status.Plan.Complete
	return status, nil
}
