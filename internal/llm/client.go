package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"agentrpg.ai/internal/behavior"
)

// DefaultTimeout bounds a single backend HTTP call.
const DefaultTimeout = 150 * time.Second

// Options tune generation for every backend.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	// Timeout bounds one HTTP call for backends that build their own client.
	Timeout time.Duration
}

// ChatClient is the subset of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a client for any OpenAI-compatible endpoint.
func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	if apiKey == "" {
		apiKey = "sk-xxx"
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(config)
}

// OpenAI implements behavior.Backend over the chat completions API.
type OpenAI struct {
	client ChatClient
	opts   Options
}

var _ behavior.Backend = (*OpenAI)(nil)

func NewOpenAI(client ChatClient, opts Options) *OpenAI {
	return &OpenAI{client: client, opts: opts}
}

func (o *OpenAI) Complete(ctx context.Context, system string, log []behavior.Utterance) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(log)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, u := range log {
		role := openai.ChatMessageRoleUser
		if u.Role == behavior.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: u.Content})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Messages:    msgs,
		MaxTokens:   o.opts.MaxTokens,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
