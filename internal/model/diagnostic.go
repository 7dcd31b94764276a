package model

// DiagnosticKind classifies recoverable per-file and per-function issues
// collected during an index run. Diagnostics ride alongside a best-effort
// result; they never abort the run.
type DiagnosticKind string

const (
	// DiagExtractionFailure: a single file could not be parsed. The file is
	// skipped and the run continues.
	DiagExtractionFailure DiagnosticKind = "extraction_failure"
	// DiagDuplicateIdentity: two functions shared a (path, qualified name)
	// pair. The first record wins.
	DiagDuplicateIdentity DiagnosticKind = "duplicate_identity"
)

// Diagnostic is one recoverable issue from an index run.
type Diagnostic struct {
	Kind   DiagnosticKind
	Path   string
	Detail string
}
