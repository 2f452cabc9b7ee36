package ai

import (
	"context"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
)

// Completion is the raw result of one generation call: the model's text plus
// whatever grounding metadata the endpoint reported. Interpreting the text is
// the normalizer's job, not the client's.
type Completion struct {
	Text      string
	Citations []analysis.Citation
	Queries   []string
}

// Generator port for the external generation endpoint.
type Generator interface {
	Generate(ctx context.Context, idea string) (*Completion, error)
}
