package ra

import (
	"context"
	"fmt"
)

// AgentRunner executes a single free-form prompt and returns text output,
// mirroring forager_bee/explorer.py's AgentRunner collaborator.
type AgentRunner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// LLMContextForager gathers internal evidence by running a single prompt
// through an AgentRunner. When runner is nil it falls back to stub
// behavior (no evidence, same as stubContextForager) — the dual real/stub
// mode is ported directly from ForagerExplorer's agent_runner-or-stub
// split, applied here to context gathering instead of scenario execution.
type LLMContextForager struct {
	runner AgentRunner
}

// NewLLMContextForager constructs a ContextForager. Passing a nil runner
// yields stub behavior.
func NewLLMContextForager(runner AgentRunner) *LLMContextForager {
	return &LLMContextForager{runner: runner}
}

func (f *LLMContextForager) Gather(ctx context.Context, rawText string) (map[string]any, error) {
	if f.runner == nil {
		return map[string]any{}, nil
	}
	prompt := fmt.Sprintf(
		"Recall any prior decisions or related runs relevant to this goal, and summarize them in a few bullet points.\n\nGoal: %s",
		rawText,
	)
	out, err := f.runner.Run(ctx, prompt)
	if err != nil {
		return map[string]any{}, nil
	}
	return map[string]any{"evidence": out}, nil
}
