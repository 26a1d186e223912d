// Package openai adapts worker.LLM onto the OpenAI Chat Completions API
// via github.com/openai/openai-go. Grounded on features/model/openai's
// adapter shape (Options/Client/New/NewFromAPIKey/translateResponse),
// re-targeted at the official SDK rather than the teacher's
// sashabaranov/go-openai, and at worker.LLM's flat message/tool shape.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/colonyforge/core/internal/worker"
)

// CompletionsClient captures the subset of the OpenAI SDK used by the
// adapter, satisfied by the client's Chat.Completions service.
type CompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	DefaultModel string
	Temperature  float64
}

// Client implements worker.LLM via the OpenAI Chat Completions API.
type Client struct {
	chat  CompletionsClient
	model string
	temp  float64
}

// New builds a Client from a configured Chat Completions client.
func New(chat CompletionsClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: completions client is required")
	}
	modelID := strings.TrimSpace(opts.DefaultModel)
	if modelID == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: chat, model: modelID, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a Client using the default OpenAI HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(oc.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Chat implements worker.LLM.
func (c *Client) Chat(ctx context.Context, messages []worker.Message, tools []worker.ToolSchema, choice worker.ToolChoice) (worker.LLMResponse, error) {
	if len(messages) == 0 {
		return worker.LLMResponse{}, errors.New("openai: messages are required")
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: encodeMessages(messages),
	}
	if c.temp > 0 {
		params.Temperature = openai.Float(c.temp)
	}
	if len(tools) > 0 {
		params.Tools = encodeTools(tools)
	}
	if tc := encodeToolChoice(choice); tc != nil {
		params.ToolChoice = *tc
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return worker.LLMResponse{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	return translateResponse(resp), nil
}

func encodeMessages(messages []worker.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Arguments)
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)},
					ToolCalls: calls,
				},
			})
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func encodeTools(schemas []worker.ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  openai.FunctionParameters(s.Parameters),
			},
		})
	}
	return out
}

func encodeToolChoice(choice worker.ToolChoice) *openai.ChatCompletionToolChoiceOptionUnionParam {
	switch choice {
	case worker.ToolChoiceRequired:
		tc := openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}
		return &tc
	default:
		return nil
	}
}

func translateResponse(resp *openai.ChatCompletion) worker.LLMResponse {
	var out worker.LLMResponse
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.FinishReason = string(choice.FinishReason)
	for _, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, worker.ToolCall{ID: call.ID, Name: call.Function.Name, Arguments: args})
	}
	out.Usage = worker.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}
	return out
}
