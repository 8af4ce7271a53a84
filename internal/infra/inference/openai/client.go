package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/wildvox/wildvox/internal/domain/inference"
	"github.com/wildvox/wildvox/internal/infra/inference/prompt"
)

const maxTokens = 1024

// Client is the OpenAI-backed inference engine. It satisfies the Engine
// port: transient API failures surface as ErrUnavailable, deterministic
// rejections as ErrModel.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

func (c *Client) Infer(ctx context.Context, req domain.Request) (domain.Output, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	creq := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(req.Species, req.Duration, string(req.Format), len(req.Audio))},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		creq.MaxCompletionTokens = maxTokens
	} else {
		creq.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, creq)
	if err != nil {
		return domain.Output{}, mapErr(err)
	}
	if len(resp.Choices) == 0 {
		return domain.Output{}, fmt.Errorf("%w: empty completion", domain.ErrUnavailable)
	}

	var out domain.Output
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return domain.Output{}, fmt.Errorf("%w: malformed model response: %v", domain.ErrModel, err)
	}
	return out, nil
}

func mapErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		// 4xx (other than 429) means the request itself was rejected;
		// retrying cannot change that.
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 && apiErr.HTTPStatusCode != 429 {
			return fmt.Errorf("%w: %v", domain.ErrModel, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
