// Package handlers implements the core's external operation boundary
// (spec §6): typed Go functions standing in for the HTTP/MCP façade, each
// returning a domain result or a classified *Error instead of raising.
// Grounded on api/routes/{runs,requirements,activity,kpi,interventions}.py
// and mcp_server/handlers/{run,conference}.py, folded into one boundary
// layer since the HTTP/MCP framing itself is explicitly out of scope here.
package handlers

import "fmt"

// Code is one of the error classifications named in spec §6/§7.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeValidationFailed Code = "validation_failed"
	CodeApprovalRequired Code = "approval_required"
	CodeTimeout          Code = "timeout"
	CodePermissionDenied Code = "permission_denied"
	CodeInternal         Code = "internal"
)

// Error is the machine-readable failure payload the boundary returns:
// "status plus a detail object ... message, optional incomplete_task_ids,
// pending_requirement_ids, request_id, action_class" (spec §7). No stack
// traces ride along.
type Error struct {
	Code                   Code
	Message                string
	IncompleteTaskIDs      []string
	PendingRequirementIDs  []string
	RequestID              string
	ActionClass            string
	cause                  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("handlers: %s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("handlers: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

func notFoundf(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

func conflictf(format string, args ...any) *Error {
	return newError(CodeConflict, format, args...)
}

func internalf(cause error, format string, args ...any) *Error {
	return wrapError(CodeInternal, cause, format, args...)
}
