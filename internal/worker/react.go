package worker

import "context"

const toolUseRetryPrompt = "You must use one of the available tools to make progress. Please call a tool instead of responding with plain text."

// RunResult is the outcome of one ReAct loop run.
type RunResult struct {
	Success       bool
	Output        string
	Error         string
	ToolCallsMade int
}

// runReAct drives the LLM loop for up to MaxIterations turns: invoke the
// LLM with the conversation plus registered tool schemas; execute any
// tool calls and continue; otherwise, if RequireToolUse and no tool has
// yet been called, retry up to ToolUseRetries times; otherwise return.
// Mirrors llm/runner.py's AgentRunner.run (spec §4.10).
func (w *Worker) runReAct(ctx context.Context, goal string) (RunResult, error) {
	if w.deps.LLM == nil {
		return RunResult{Success: true, Output: goal}, nil
	}

	messages := []Message{
		{Role: "system", Content: "You are an autonomous worker. Use tools to accomplish the goal."},
		{Role: "user", Content: goal},
	}

	schemas := w.deps.Tools.Schemas()
	toolCallsMade := 0
	retriesLeft := w.deps.ToolUseRetries

	initialChoice := ToolChoiceNone
	if len(schemas) > 0 {
		if w.deps.RequireToolUse {
			initialChoice = ToolChoiceRequired
		} else {
			initialChoice = ToolChoiceAuto
		}
	}

	for iter := 0; iter < w.deps.MaxIterations; iter++ {
		choice := initialChoice
		if toolCallsMade > 0 && len(schemas) > 0 {
			choice = ToolChoiceAuto
		}

		resp, err := w.deps.LLM.Chat(ctx, messages, schemas, choice)
		if err != nil {
			return RunResult{}, err
		}

		if resp.hasToolCalls() {
			messages = append(messages, Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
			for _, call := range resp.ToolCalls {
				result := w.deps.Tools.Execute(ctx, call)
				toolCallsMade++
				messages = append(messages, Message{Role: "tool", Content: result, ToolCallID: call.ID})
			}
			continue
		}

		if w.deps.RequireToolUse && w.deps.Tools.Len() > 0 && toolCallsMade == 0 {
			if retriesLeft > 0 {
				retriesLeft--
				messages = append(messages, Message{Role: "assistant", Content: resp.Content})
				messages = append(messages, Message{Role: "user", Content: toolUseRetryPrompt})
				continue
			}
			return RunResult{
				Success:       false,
				Output:        resp.Content,
				ToolCallsMade: toolCallsMade,
				Error:         "tool-use-required mode exceeded retries: the model returned text without calling a tool",
			}, nil
		}

		return RunResult{Success: true, Output: resp.Content, ToolCallsMade: toolCallsMade}, nil
	}

	return RunResult{
		Success:       false,
		ToolCallsMade: toolCallsMade,
		Error:         "reached max iterations without a final response",
	}, nil
}
