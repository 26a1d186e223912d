// Package llm hosts concrete chat-completion adapters (anthropic, openai,
// bedrock subpackages) behind the worker.LLM boundary defined in spec §6.
// Core logic (worker, pipeline, orchestrator) never imports a provider SDK
// directly; it depends on worker.LLM and callers wire in one of these
// adapters (or a test double) at startup. Grounded on features/model/
// {anthropic,openai,bedrock}, trimmed to the flat Message/ToolSchema shape
// worker.LLM uses instead of the teacher's Parts-based model.Message.
package llm

import "github.com/colonyforge/core/internal/worker"

// Client is the shared chat-completion boundary every adapter in this
// package's subpackages implements.
type Client = worker.LLM
