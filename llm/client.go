// Package llm wraps the external completion API behind a small interface so
// the pipeline can be tested with canned responses.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/common"
)

const defaultMaxTokens = 4096

// Tool describes the structured-output contract for a completion request.
// The model is forced to answer by calling this tool, so the response is
// always typed JSON.
type Tool struct {
	Name        string
	Description string
	// Properties is the JSON-schema "properties" object of the tool input.
	Properties map[string]interface{}
}

// Request is one completion request.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	Tool      Tool
}

// Client issues completion requests and returns the raw tool-input JSON.
type Client interface {
	Complete(ctx context.Context, req Request) ([]byte, error)
}

// AnthropicClient is the production Client backed by the Anthropic Messages
// API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient builds a client for the given model. The API key is
// required; without it no classification is possible.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", common.ErrConfigMissing)
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

// Complete sends the request and extracts the tool-use input block. Errors
// are mapped onto the pipeline taxonomy so the rate gate can tell rate-limit
// responses from server errors.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) ([]byte, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        req.Tool.Name,
				Description: anthropic.String(req.Tool.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: req.Tool.Properties,
				},
			},
		}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tool.Name},
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			return []byte(variant.JSON.Input.Raw()), nil
		}
	}
	log.Warn().Str("model", string(c.model)).Msg("Completion response contained no tool_use block")
	return nil, fmt.Errorf("%w: no tool_use block in response", common.ErrParseFailed)
}

func classifyAPIError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", common.ErrRateLimited, err)
		case apierr.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %v", common.ErrServerError, err)
		}
	}
	return err
}
