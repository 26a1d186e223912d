// Package actionclass classifies worker tool invocations by reversibility and
// binds that classification to the trust level that governs whether an
// operator's confirmation is required before the tool runs.
package actionclass

import "strings"

type (
	// Class is the reversibility tier of a worker tool invocation.
	Class string

	// TrustLevel is the caller-selected policy binding approvals to action
	// classes. Only PROPOSE_CONFIRM gates IRREVERSIBLE actions (spec §4.6).
	TrustLevel string
)

const (
	// ReadOnly actions never mutate state outside the worker's sandbox.
	ReadOnly Class = "read_only"
	// Reversible actions mutate state but can be undone (e.g. a git branch commit).
	Reversible Class = "reversible"
	// Irreversible actions cannot be cleanly undone (e.g. deleting a remote resource).
	Irreversible Class = "irreversible"
)

const (
	// ReportOnly never requires confirmation; approvals are recorded but not awaited.
	ReportOnly TrustLevel = "report_only"
	// ProposeConfirm requires explicit confirmation before IRREVERSIBLE actions run.
	ProposeConfirm TrustLevel = "propose_confirm"
	// Delegated grants the colony full autonomy; no confirmation is ever required.
	Delegated TrustLevel = "delegated"
)

// irreversibleVerbs are tool-name substrings that imply destructive or
// externally-visible effects absent an explicit override.
var irreversibleVerbs = []string{
	"delete", "drop", "remove", "force_push", "force-push", "deploy",
	"publish", "send_email", "terminate", "destroy", "revoke",
}

// reversibleVerbs imply a mutation that is ordinarily undoable.
var reversibleVerbs = []string{
	"write", "create", "update", "commit", "edit", "patch", "rename", "move",
}

// Classify infers the Class of a tool invocation from its name and payload.
// An explicit "action_class" entry in payload always wins. Absent an
// override, the tool name is matched against known verb substrings; anything
// unmatched defaults to Reversible rather than ReadOnly, so unknown tools
// are never silently treated as safe.
func Classify(toolName string, payload map[string]any) Class {
	if payload != nil {
		if raw, ok := payload["action_class"]; ok {
			if s, ok := raw.(string); ok && s != "" {
				if c := Class(s); c.Valid() {
					return c
				}
			}
		}
	}
	lower := strings.ToLower(toolName)
	for _, v := range irreversibleVerbs {
		if strings.Contains(lower, v) {
			return Irreversible
		}
	}
	if strings.HasPrefix(lower, "read") || strings.HasPrefix(lower, "get") ||
		strings.HasPrefix(lower, "list") || strings.HasPrefix(lower, "search") ||
		strings.Contains(lower, "lint") || strings.Contains(lower, "test") {
		return ReadOnly
	}
	for _, v := range reversibleVerbs {
		if strings.Contains(lower, v) {
			return Reversible
		}
	}
	return Reversible
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	switch c {
	case ReadOnly, Reversible, Irreversible:
		return true
	default:
		return false
	}
}

// RequiresConfirmation reports whether trust should gate class absent a
// pre-supplied approval. Only PROPOSE_CONFIRM gates IRREVERSIBLE actions;
// REPORT_ONLY and DELEGATED never block dispatch.
func RequiresConfirmation(trust TrustLevel, class Class) bool {
	return trust == ProposeConfirm && class == Irreversible
}

// Valid reports whether t is one of the known trust levels.
func (t TrustLevel) Valid() bool {
	switch t {
	case ReportOnly, ProposeConfirm, Delegated:
		return true
	default:
		return false
	}
}
