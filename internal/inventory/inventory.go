// Package inventory reports the resource stock available for allocation.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reliefmesh/reliefmesh/internal/store"
	"github.com/reliefmesh/reliefmesh/pkg/models"
)

// CurrentDocID is the key of the live stock document within the inventory
// collection.
const CurrentDocID = "current"

// Provider reports the currently available stock per resource name.
type Provider interface {
	Available(ctx context.Context) (map[string]int, error)
}

// DefaultStock is the seed stock used until a deployment writes its own
// inventory document.
func DefaultStock() map[string]int {
	return map[string]int{
		"Water Filters (units)":                   200,
		"Medical Kits (Level 2)":                  50,
		"Ready-to-Eat Meals (kits)":               5000,
		"Tents (family size)":                     150,
		"Fuel (liters)":                           10000,
		"Heavy Machinery (bulldozers/excavators)": 2,
	}
}

// StoreProvider reads the stock document from the document store, falling
// back to the default stock when none has been written yet.
type StoreProvider struct {
	store      store.DocumentStore
	collection string
}

// NewStoreProvider creates a new StoreProvider.
func NewStoreProvider(s store.DocumentStore, collection string) *StoreProvider {
	if collection == "" {
		collection = models.CollectionInventory
	}
	return &StoreProvider{store: s, collection: collection}
}

var _ Provider = (*StoreProvider)(nil)

// Available returns the current stock.
func (p *StoreProvider) Available(ctx context.Context) (map[string]int, error) {
	raw, err := p.store.Get(ctx, p.collection, CurrentDocID)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	if raw == nil {
		return DefaultStock(), nil
	}

	var stock map[string]int
	if err := json.Unmarshal(raw, &stock); err != nil {
		return nil, fmt.Errorf("inventory document is malformed: %w", err)
	}
	return stock, nil
}
