package store

import (
	"context"
	"encoding/json"
)

// DocumentStore is key-value access to named collections of JSON documents.
//
// Get returns (nil, nil) when the key does not exist; absence is an ordinary
// result, not an error. Put fully replaces any existing document under the
// key. Both operations are atomic per key; there is no cross-key transaction.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Put(ctx context.Context, collection, id string, doc any) error
}
