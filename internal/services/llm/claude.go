package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type claudeClient struct {
	client anthropic.Client
	model  string
}

func newClaudeClient(apiKey, model, baseURL string, httpClient *http.Client, maxRetries int) *claudeClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(maxRetries))
	}
	return &claudeClient{client: anthropic.NewClient(opts...), model: model}
}

func (c *claudeClient) Provider() Provider { return ProviderClaude }

func (c *claudeClient) Model() string { return c.model }

func (c *claudeClient) CompleteJSON(ctx context.Context, req Request) (string, error) {
	const op = "claude complete"
	if err := validateRequest(op, req); err != nil {
		return "", err
	}
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens(req),
		Temperature: anthropic.Float(req.Temperature),
		System:      []anthropic.TextBlockParam{{Text: strings.TrimSpace(req.System)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(strings.TrimSpace(req.Prompt))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", &emptyContentError{Op: op, FinishReason: string(message.StopReason)}
	}
	return content, nil
}
