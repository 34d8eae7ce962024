package decision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"autotrader/internal/retry"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Prompt is one request to the reasoning source.
type Prompt struct {
	System string
	User   string
}

// Reasoner is an opaque, fallible analysis capability.
type Reasoner interface {
	Analyze(ctx context.Context, prompt Prompt) (string, error)
}

type OpenAIReasoner struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAIReasoner(apiKey, model, baseURL string) *OpenAIReasoner {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIReasoner{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: 0.2,
	}
}

func (r *OpenAIReasoner) Analyze(ctx context.Context, prompt Prompt) (string, error) {
	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(r.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && isPermanentStatus(apiErr.StatusCode) {
			return "", retry.Permanent(fmt.Errorf("chat completion: %w", err))
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}

const systemPrompt = `You are a disciplined crypto spot trading analyst.
Answer with a single JSON object and nothing else:
{"decision": "buy" | "sell" | "hold", "confidence": 0-100, "reasoning": "<one paragraph>", "suggested_quantity": <base asset units, optional>}
Prefer "hold" when the evidence is mixed. Confidence below 60 is never executed.`
