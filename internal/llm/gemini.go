package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"agentrpg.ai/internal/behavior"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini implements behavior.Backend over the Gemini API.
type Gemini struct {
	client *genai.Client
	opts   Options
}

var _ behavior.Backend = (*Gemini)(nil)

// NewGemini creates a Gemini client. baseURL is optional and mostly useful
// for tests and proxies.
func NewGemini(ctx context.Context, apiKey, baseURL string, opts Options) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if opts.Model == "" {
		opts.Model = DefaultGeminiModel
	}
	return &Gemini{client: client, opts: opts}, nil
}

func (g *Gemini) Complete(ctx context.Context, system string, log []behavior.Utterance) (string, error) {
	history := make([]*genai.Content, 0, len(log))
	for _, u := range log {
		role := genai.Role(genai.RoleUser)
		if u.Role == behavior.RoleAssistant {
			role = genai.RoleModel
		}
		history = append(history, genai.NewContentFromText(u.Content, role))
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.opts.Temperature),
	}
	if g.opts.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, history, genConfig)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}
