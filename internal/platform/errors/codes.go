// Package errors provides coded domain errors shared by the game packages.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidInput marks a turn decision that violates a precondition.
	// The caller is expected to resupply a valid decision.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeInvalidPhase marks an engine step invoked in the wrong turn phase.
	CodeInvalidPhase Code = "INVALID_PHASE"

	// CodeInvalidConfig marks a rejected game setup.
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// CodeNotFound marks a missing stored record.
	CodeNotFound Code = "NOT_FOUND"

	// CodeAlreadyExists marks a duplicate stored record.
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// Retryable reports whether an error with this code can be recovered by
// supplying a different input.
func (c Code) Retryable() bool {
	return c == CodeInvalidInput
}

// ExitCode maps a code to a process exit status. Setup problems exit with 2
// so scripts can tell them apart from failures during play.
func (c Code) ExitCode() int {
	switch c {
	case CodeInvalidConfig:
		return 2
	default:
		return 1
	}
}
