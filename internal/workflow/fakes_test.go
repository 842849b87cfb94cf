package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/reliefmesh/reliefmesh/internal/geo"
	"github.com/reliefmesh/reliefmesh/internal/synthesis"
)

var testCollections = Collections{
	Requests:  "RescueRequests",
	Reports:   "DamageReports",
	Plans:     "LogisticsPlans",
	Inventory: "Inventory",
}

// zeroBackoff retries with no delay, capped at maxAttempts total attempts.
func zeroBackoff(maxAttempts int) BackoffFactory {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxAttempts-1))
	}
}

// memStore is an in-memory DocumentStore that counts operations.
type memStore struct {
	mu       sync.Mutex
	docs     map[string]json.RawMessage
	getCount map[string]int
	putCount map[string]int

	// visibleAfter delays a key's visibility until the Nth Get, simulating
	// read-after-write lag. Zero means immediately visible.
	visibleAfter map[string]int

	getErr error
	putErr error
}

func newMemStore() *memStore {
	return &memStore{
		docs:         make(map[string]json.RawMessage),
		getCount:     make(map[string]int),
		putCount:     make(map[string]int),
		visibleAfter: make(map[string]int),
	}
}

func key(collection, id string) string { return collection + "/" + id }

func (m *memStore) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	k := key(collection, id)
	m.getCount[k]++
	if after := m.visibleAfter[k]; after > 0 && m.getCount[k] < after {
		return nil, nil
	}
	return m.docs[k], nil
}

func (m *memStore) Put(_ context.Context, collection, id string, doc any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	k := key(collection, id)
	m.docs[k] = body
	m.putCount[k]++
	return nil
}

func (m *memStore) seed(collection, id string, doc any) {
	body, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key(collection, id)] = body
}

type published struct {
	topic   string
	payload []byte
}

// fakeBus records publishes and optionally fails.
type fakeBus struct {
	mu        sync.Mutex
	published []published
	err       error
}

func (b *fakeBus) Publish(_ context.Context, topic string, payload any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	b.published = append(b.published, published{topic: topic, payload: data})
	return fmt.Sprintf("m-%d", len(b.published)), nil
}

// fakeGeo returns canned AOI and facts.
type fakeGeo struct {
	aoi      json.RawMessage
	facts    *geo.Facts
	aoiErr   error
	statsErr error
}

func (g *fakeGeo) FetchAOI(_ context.Context, _ string) (json.RawMessage, error) {
	if g.aoiErr != nil {
		return nil, g.aoiErr
	}
	return g.aoi, nil
}

func (g *fakeGeo) FetchStats(_ context.Context, _ string) (*geo.Facts, error) {
	if g.statsErr != nil {
		return nil, g.statsErr
	}
	return g.facts, nil
}

// fakeSynth returns canned model output and records the last request.
type fakeSynth struct {
	output  string
	err     error
	lastReq synthesis.Request
}

func (s *fakeSynth) Generate(_ context.Context, req synthesis.Request) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func (s *fakeSynth) ModelID() string { return "test-model" }

// fakeInventory returns a fixed stock.
type fakeInventory struct {
	stock map[string]int
	err   error
}

func (i *fakeInventory) Available(_ context.Context) (map[string]int, error) {
	if i.err != nil {
		return nil, i.err
	}
	return i.stock, nil
}

var errBoom = errors.New("boom")

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}
