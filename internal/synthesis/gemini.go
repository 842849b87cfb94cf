package synthesis

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GeminiSynthesizer calls Gemini with a response schema so the model emits a
// single JSON object instead of prose.
type GeminiSynthesizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// GeminiConfig selects the model and backend. When Project is set the Vertex
// AI backend is used with ambient service-account credentials; otherwise the
// Gemini API backend with APIKey.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
	Model    string
	Timeout  time.Duration
}

// NewGeminiSynthesizer creates a new GeminiSynthesizer.
func NewGeminiSynthesizer(ctx context.Context, cfg GeminiConfig) (*GeminiSynthesizer, error) {
	cc := &genai.ClientConfig{}
	if cfg.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("either a GenAI API key or a Vertex project is required")
		}
		cc.APIKey = cfg.APIKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GeminiSynthesizer{
		client:  client,
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)

// Generate runs one schema-constrained generation, bounded by the configured
// timeout.
func (s *GeminiSynthesizer) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GenAI returned an empty response")
	}
	return text, nil
}

// ModelID returns the configured model identifier.
func (s *GeminiSynthesizer) ModelID() string {
	return s.model
}
