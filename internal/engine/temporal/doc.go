// Package temporal adapts engine.Engine onto Temporal for deployments
// that need durable, replay-safe execution of a colony's Pipeline across
// process restarts. Grounded on runtime/agent/engine/temporal; trimmed to
// the subset of the teacher's adapter that engine.Engine's smaller
// interface needs (no child-workflow or typed-activity helpers, since
// pipeline/orchestrator drive execution directly rather than through a
// generated agent runtime).
package temporal
