package agent

import "errors"

// ErrAgent wraps any failure that aborts an agent invocation: a model
// error after fallback exhaustion, or an agent that gave up.
var ErrAgent = errors.New("agent invocation failed")

// ErrToolViolation marks a tool call that broke a tool's contract. It is
// reported back to the agent as a tool-result error, never surfaced as a
// run failure directly.
var ErrToolViolation = errors.New("tool violation")

// ErrScopeViolation marks an editor command that escaped the permitted
// roots or attempted a write under the repository root.
var ErrScopeViolation = errors.New("scope violation")
