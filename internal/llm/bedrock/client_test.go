package bedrock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyforge/core/internal/worker"
)

type stubRuntimeClient struct {
	lastInput *bedrockruntime.ConverseInput
	resp      *bedrockruntime.ConverseOutput
	err       error
}

func (s *stubRuntimeClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.lastInput = params
	return s.resp, s.err
}

func TestChatTextOnly(t *testing.T) {
	stub := &stubRuntimeClient{resp: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "world"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(5)},
	}}
	c, err := New(stub, Options{DefaultModel: "anthropic.claude-3-sonnet"})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), []worker.Message{{Role: "user", Content: "hello"}}, nil, worker.ToolChoiceAuto)
	require.NoError(t, err)
	assert.Equal(t, "world", resp.Content)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
}

func TestChatRequiresMessages(t *testing.T) {
	c, err := New(&stubRuntimeClient{}, Options{DefaultModel: "anthropic.claude-3-sonnet"})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), nil, nil, worker.ToolChoiceAuto)
	assert.Error(t, err)
}

func TestSanitizeToolNameTruncatesLongNames(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	got := sanitizeToolName(long)
	assert.LessOrEqual(t, len(got), 64)
}

func TestEncodeToolsModeAny(t *testing.T) {
	cfg, canonToSan, sanToCanon, err := encodeTools([]worker.ToolSchema{
		{Name: "lookup", Description: "search", Parameters: map[string]any{"type": "object"}},
	}, worker.ToolChoiceRequired)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Tools, 1)
	assert.Len(t, canonToSan, 1)
	assert.Len(t, sanToCanon, 1)
	_, ok := cfg.ToolChoice.(*brtypes.ToolChoiceMemberAny)
	assert.True(t, ok)
}

func TestChatEncodesToolCallAndResult(t *testing.T) {
	stub := &stubRuntimeClient{resp: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "done"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
	}}
	c, err := New(stub, Options{DefaultModel: "anthropic.claude-3-sonnet"})
	require.NoError(t, err)

	messages := []worker.Message{
		{Role: "user", Content: "look up the weather"},
		{Role: "assistant", ToolCalls: []worker.ToolCall{{ID: "call-1", Name: "weather.lookup", Arguments: map[string]any{"city": "nyc"}}}},
		{Role: "tool", ToolCallID: "call-1", Content: "sunny"},
	}
	tools := []worker.ToolSchema{{Name: "weather.lookup", Description: "look up weather", Parameters: map[string]any{"type": "object"}}}
	_, err = c.Chat(context.Background(), messages, tools, worker.ToolChoiceAuto)
	require.NoError(t, err)
	assert.Len(t, stub.lastInput.Messages, 3)
}
