// Package synthesis wraps the external generative model behind a
// schema-constrained "facts in, structured JSON out" contract.
package synthesis

import (
	"context"

	"google.golang.org/genai"
)

// Request describes one synthesis call: a system instruction pinning the
// model's role, a prompt carrying the input facts, and the schema the output
// must match. The model is treated as a pure, non-deterministic function;
// callers validate the returned JSON before using it.
type Request struct {
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
}

// Synthesizer generates a JSON document constrained to a target schema.
type Synthesizer interface {
	Generate(ctx context.Context, req Request) (string, error)
	// ModelID identifies which model produced the output, for the record's
	// model tag.
	ModelID() string
}
