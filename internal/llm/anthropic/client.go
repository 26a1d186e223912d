// Package anthropic adapts worker.LLM onto the Anthropic Claude Messages
// API via github.com/anthropics/anthropic-sdk-go. Grounded on
// features/model/anthropic/client.go, trimmed to worker.LLM's flat
// Message/ToolSchema shape (no streaming, no thinking blocks — those are
// teacher-specific planner features outside this boundary's scope).
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/colonyforge/core/internal/worker"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, satisfied by *sdk.MessageService so tests can substitute a
// mock.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float64
}

// Client implements worker.LLM on top of Anthropic Claude Messages.
type Client struct {
	msg   MessagesClient
	model string
	maxT  int
	temp  float64
}

// New builds a Client from a configured Anthropic Messages client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, model: opts.DefaultModel, maxT: maxTokens, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a Client using the default Anthropic HTTP
// client, reading ANTHROPIC_API_KEY conventions from option.WithAPIKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Chat implements worker.LLM.
func (c *Client) Chat(ctx context.Context, messages []worker.Message, tools []worker.ToolSchema, choice worker.ToolChoice) (worker.LLMResponse, error) {
	params, err := c.prepareRequest(messages, tools, choice)
	if err != nil {
		return worker.LLMResponse{}, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return worker.LLMResponse{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}
	return translateResponse(msg)
}

func (c *Client) prepareRequest(messages []worker.Message, tools []worker.ToolSchema, choice worker.ToolChoice) (*sdk.MessageNewParams, error) {
	if len(messages) == 0 {
		return nil, errors.New("anthropic: messages are required")
	}
	conversation, system, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}
	params := &sdk.MessageNewParams{
		MaxTokens: int64(c.maxT),
		Messages:  conversation,
		Model:     sdk.Model(c.model),
	}
	if len(system) > 0 {
		params.System = system
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	if len(tools) > 0 {
		params.Tools = encodeTools(tools)
	}
	if tc := encodeToolChoice(choice); tc != nil {
		params.ToolChoice = *tc
	}
	return params, nil
}

func encodeMessages(messages []worker.Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(messages))
	var system []sdk.TextBlockParam

	for _, m := range messages {
		switch m.Role {
		case "system":
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case "user":
			if m.Content == "" {
				continue
			}
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "assistant":
			blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		case "tool":
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			return nil, nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("anthropic: at least one user/assistant message is required")
	}
	return conversation, system, nil
}

func encodeTools(schemas []worker.ToolSchema) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: s.Parameters}, sanitizeToolName(s.Name))
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(s.Description)
		}
		out = append(out, u)
	}
	return out
}

func encodeToolChoice(choice worker.ToolChoice) *sdk.ToolChoiceUnionParam {
	switch choice {
	case worker.ToolChoiceRequired:
		tc := sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}
		return &tc
	default:
		return nil
	}
}

// sanitizeToolName strips characters Anthropic's tool naming does not
// allow, replacing them with '_'.
func sanitizeToolName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return strings.TrimSpace(string(out))
}

func translateResponse(msg *sdk.Message) (worker.LLMResponse, error) {
	if msg == nil {
		return worker.LLMResponse{}, errors.New("anthropic: response message is nil")
	}
	var resp worker.LLMResponse
	var textParts []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &args)
			}
			resp.ToolCalls = append(resp.ToolCalls, worker.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	resp.Content = strings.Join(textParts, "\n")
	resp.FinishReason = string(msg.StopReason)
	resp.Usage = worker.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	return resp, nil
}
