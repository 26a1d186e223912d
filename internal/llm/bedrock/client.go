// Package bedrock adapts worker.LLM onto the AWS Bedrock Converse API.
// Grounded on features/model/bedrock/client.go, trimmed to worker.LLM's
// flat Message/ToolSchema shape — no streaming, no thinking blocks, no
// prompt caching checkpoints, since those are planner/transcript
// features outside this boundary's scope. Tool name sanitization and
// rate-limit detection are kept as-is since Bedrock's wire constraints
// don't change at the simpler boundary.
package bedrock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/colonyforge/core/internal/worker"
)

// RuntimeClient captures the subset of the AWS Bedrock runtime client used
// by the adapter, satisfied by *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements worker.LLM on top of AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	model   string
	maxTok  int
	temp    float32
}

type requestParts struct {
	modelID    string
	messages   []brtypes.Message
	system     []brtypes.SystemContentBlock
	toolConfig *brtypes.ToolConfiguration
	provToCano map[string]string
}

// New builds a Client from a configured Bedrock runtime client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model is required")
	}
	return &Client{runtime: runtime, model: opts.DefaultModel, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// Chat implements worker.LLM.
func (c *Client) Chat(ctx context.Context, messages []worker.Message, tools []worker.ToolSchema, choice worker.ToolChoice) (worker.LLMResponse, error) {
	parts, err := c.prepareRequest(messages, tools, choice)
	if err != nil {
		return worker.LLMResponse{}, err
	}
	input := c.buildConverseInput(parts)
	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		if isRateLimited(err) {
			return worker.LLMResponse{}, fmt.Errorf("bedrock: rate limited: %w", err)
		}
		return worker.LLMResponse{}, fmt.Errorf("bedrock: converse: %w", err)
	}
	return translateResponse(output, parts.provToCano)
}

func (c *Client) prepareRequest(messages []worker.Message, toolSchemas []worker.ToolSchema, choice worker.ToolChoice) (*requestParts, error) {
	if len(messages) == 0 {
		return nil, errors.New("bedrock: messages are required")
	}
	toolConfig, canonToSan, sanToCanon, err := encodeTools(toolSchemas, choice)
	if err != nil {
		return nil, err
	}
	conversation, system, err := encodeMessages(messages, canonToSan)
	if err != nil {
		return nil, err
	}
	return &requestParts{
		modelID:    c.model,
		messages:   conversation,
		system:     system,
		toolConfig: toolConfig,
		provToCano: sanToCanon,
	}, nil
}

func (c *Client) buildConverseInput(parts *requestParts) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(parts.modelID),
		Messages: parts.messages,
	}
	if len(parts.system) > 0 {
		input.System = parts.system
	}
	if parts.toolConfig != nil {
		input.ToolConfig = parts.toolConfig
	}
	if cfg := c.inferenceConfig(); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input
}

func (c *Client) inferenceConfig() *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	if c.maxTok > 0 {
		cfg.MaxTokens = aws.Int32(int32(c.maxTok)) //nolint:gosec // bounded by adapter config, not user input.
	}
	if c.temp > 0 {
		cfg.Temperature = aws.Float32(c.temp)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}
	return &cfg
}

func encodeMessages(messages []worker.Message, nameMap map[string]string) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	conversation := make([]brtypes.Message, 0, len(messages))
	var system []brtypes.SystemContentBlock

	for _, m := range messages {
		switch m.Role {
		case "system":
			if m.Content != "" {
				system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			}
		case "user":
			if m.Content == "" {
				continue
			}
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
			})
		case "assistant":
			blocks := make([]brtypes.ContentBlock, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: m.Content})
			}
			for _, tc := range m.ToolCalls {
				sanitized, ok := nameMap[tc.Name]
				if !ok {
					return nil, nil, fmt.Errorf("bedrock: tool_use references %q which is not in the current tool configuration", tc.Name)
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					Name:      aws.String(sanitized),
					ToolUseId: aws.String(tc.ID),
					Input:     toDocument(tc.Arguments),
				}})
			}
			if len(blocks) == 0 {
				continue
			}
			conversation = append(conversation, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: blocks})
		case "tool":
			conversation = append(conversation, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
					ToolUseId: aws.String(m.ToolCallID),
					Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: m.Content}},
				}}},
			})
		default:
			return nil, nil, fmt.Errorf("bedrock: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, errors.New("bedrock: at least one user/assistant message is required")
	}
	return conversation, system, nil
}

func encodeTools(schemas []worker.ToolSchema, choice worker.ToolChoice) (*brtypes.ToolConfiguration, map[string]string, map[string]string, error) {
	if len(schemas) == 0 {
		return nil, nil, nil, nil
	}
	toolList := make([]brtypes.Tool, 0, len(schemas))
	canonToSan := make(map[string]string, len(schemas))
	sanToCanon := make(map[string]string, len(schemas))
	for _, s := range schemas {
		sanitized := sanitizeToolName(s.Name)
		if prev, ok := sanToCanon[sanitized]; ok && prev != s.Name {
			return nil, nil, nil, fmt.Errorf("bedrock: tool name %q sanitizes to %q which collides with %q", s.Name, sanitized, prev)
		}
		sanToCanon[sanitized] = s.Name
		canonToSan[s.Name] = sanitized
		toolList = append(toolList, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpecification{
			Name:        aws.String(sanitized),
			Description: aws.String(s.Description),
			InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: toDocument(s.Parameters)},
		}})
	}
	cfg := &brtypes.ToolConfiguration{Tools: toolList}
	if choice == worker.ToolChoiceRequired {
		cfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
	}
	return cfg, canonToSan, sanToCanon, nil
}

// sanitizeToolName maps a canonical tool identifier to characters allowed
// by Bedrock's [a-zA-Z0-9_-]+ constraint, truncating and appending a
// stable hash suffix if the result would exceed 64 characters.
func sanitizeToolName(in string) string {
	if in == "" {
		return ""
	}
	const maxLen = 64
	const hashLen = 8

	out := make([]rune, 0, len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	sanitized := string(out)
	if len(sanitized) <= maxLen {
		return sanitized
	}

	sum := sha256.Sum256([]byte(in))
	suffix := hex.EncodeToString(sum[:])[:hashLen]
	prefixLen := maxLen - (1 + hashLen)
	if prefixLen < 1 {
		prefixLen = 1
	}
	return sanitized[:prefixLen] + "_" + suffix
}

func toDocument(v any) document.Interface {
	if v == nil {
		v = map[string]any{"type": "object"}
	}
	return document.NewLazyDocument(&v)
}

func decodeDocument(doc document.Interface) map[string]any {
	out := map[string]any{}
	if doc == nil {
		return out
	}
	data, err := doc.MarshalSmithyDocument()
	if err != nil || len(data) == 0 {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}

// isRateLimited reports whether err represents a provider rate limiting
// condition, via HTTP 429 or a Throttling/TooManyRequests error code.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 429 {
		return true
	}
	return false
}

func translateResponse(output *bedrockruntime.ConverseOutput, nameMap map[string]string) (worker.LLMResponse, error) {
	if output == nil {
		return worker.LLMResponse{}, errors.New("bedrock: response is nil")
	}
	var resp worker.LLMResponse
	var textParts []string
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				if v.Value != "" {
					textParts = append(textParts, v.Value)
				}
			case *brtypes.ContentBlockMemberToolUse:
				name := ""
				if v.Value.Name != nil {
					canonical, ok := nameMap[*v.Value.Name]
					if !ok {
						return worker.LLMResponse{}, fmt.Errorf("bedrock: tool name %q not in reverse map", *v.Value.Name)
					}
					name = canonical
				}
				id := ""
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				resp.ToolCalls = append(resp.ToolCalls, worker.ToolCall{ID: id, Name: name, Arguments: decodeDocument(v.Value.Input)})
			}
		}
	}
	resp.Content = strings.Join(textParts, "\n")
	resp.FinishReason = string(output.StopReason)
	if usage := output.Usage; usage != nil {
		resp.Usage = worker.Usage{
			PromptTokens:     int(ptrValue(usage.InputTokens)),
			CompletionTokens: int(ptrValue(usage.OutputTokens)),
		}
	}
	return resp, nil
}

func ptrValue[T ~int32 | ~int64](ptr *T) T {
	if ptr == nil {
		return 0
	}
	return *ptr
}
