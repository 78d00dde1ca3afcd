// Package apperr defines the small error taxonomy of §7: the names matter,
// not the exact spelling. Code that tells them apart (main() picking its
// exit code for a ConfigError) uses errors.As, never string matching; the
// Crawler branches on probe.Verdict.Outcome, not on these errors.
package apperr

import "fmt"

// ConfigError signals invalid configuration discovered at startup. Fatal:
// main() exits 1 on this.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Option, e.Reason)
}

// StorageError signals a persistence I/O failure. Logged and counted, never
// fatal: the in-memory Store remains authoritative (§4.1 failure semantics).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ProbeOutcome enumerates the normal operational outcomes of a handshake
// attempt. These drive state-machine transitions; they are data, never
// panics or fatal errors (§7 propagation policy).
type ProbeOutcome int

const (
	ProbeUnreachable ProbeOutcome = iota
	ProbeRejected
	ProbeTimeout
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeUnreachable:
		return "unreachable"
	case ProbeRejected:
		return "rejected"
	case ProbeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProbeError wraps a ProbeOutcome with the underlying cause, if any.
type ProbeError struct {
	Outcome ProbeOutcome
	Reason  string
	Err     error
}

func (e *ProbeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("probe %s: %s", e.Outcome, e.Reason)
	}
	return fmt.Sprintf("probe %s", e.Outcome)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// DNSParseError signals a malformed incoming query. Answered with FORMERR.
type DNSParseError struct {
	Reason string
}

func (e *DNSParseError) Error() string {
	return fmt.Sprintf("dns parse error: %s", e.Reason)
}

// InternalError signals a logic bug. Answered with SERVFAIL and logged with
// stack context (via github.com/pkg/errors.WithStack at the call site).
type InternalError struct {
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s: %v", e.Reason, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }
