package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	domai "github.com/ideaforge-app/ideaforge-api/internal/domain/ai"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/infra/ai/prompt"
)

const (
	defaultModel    = "gemini-2.5-flash"
	maxOutputTokens = 8192
)

// Client calls the Gemini API with Google Search grounding enabled. One call
// per analysis; the upstream request is expensive and slow, so nothing here
// retries.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = defaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: cli, model: model}, nil
}

func (c *Client) Generate(ctx context.Context, idea string) (*domai.Completion, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.GetSystemPrompt(), genai.RoleUser),
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		MaxOutputTokens: maxOutputTokens,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(prompt.GetUserPrompt(idea)), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domai.ErrUpstream, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, domai.ErrEmptyResponse
	}

	cand := resp.Candidates[0]

	var sb strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, domai.ErrEmptyResponse
	}

	out := &domai.Completion{Text: text}
	if gm := cand.GroundingMetadata; gm != nil {
		out.Queries = gm.WebSearchQueries
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil && chunk.Web.URI != "" {
				out.Citations = append(out.Citations, analysis.Citation{
					URI:   chunk.Web.URI,
					Title: chunk.Web.Title,
				})
			}
		}
	}
	return out, nil
}
