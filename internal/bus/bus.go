// Package bus provides publish-only access to named topics with
// at-least-once push delivery to HTTP subscribers.
package bus

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Publisher publishes a payload to a named topic. Delivery to subscribers is
// at-least-once; a consumer may observe the same payload more than once.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (messageID string, err error)
}

// PushMessage is the inner message of a push delivery. Data carries the
// base64-encoded JSON payload.
type PushMessage struct {
	Data      string `json:"data"`
	MessageID string `json:"messageId,omitempty"`
}

// PushEnvelope is the body POSTed to a subscriber endpoint.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription,omitempty"`
}

// EncodeEnvelope wraps an already-serialized payload in a push envelope.
func EncodeEnvelope(topic, messageID string, payload []byte) ([]byte, error) {
	env := PushEnvelope{
		Message: &PushMessage{
			Data:      base64.StdEncoding.EncodeToString(payload),
			MessageID: messageID,
		},
		Subscription: topic,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push envelope: %w", err)
	}
	return body, nil
}

// DecodeData returns the decoded payload bytes of a push message.
func (m *PushMessage) DecodeData() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message data: %w", err)
	}
	return raw, nil
}
