// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeSearchPathMissing reports a configured search path that does not exist.
	CodeSearchPathMissing DiagnosticCode = "search_path_missing"
	// CodeSearchPathInvalid reports a search path that cannot be resolved or is not a directory.
	CodeSearchPathInvalid DiagnosticCode = "search_path_invalid"
	// CodeSearchPathScanFailed reports a search path whose entries cannot be listed.
	CodeSearchPathScanFailed DiagnosticCode = "search_path_scan_failed"
	// CodeIncludeNotModule reports an include that is not a *.palettemod directory.
	CodeIncludeNotModule DiagnosticCode = "include_not_module"
	// CodeIncludeDuplicate reports an include already found through a search path.
	CodeIncludeDuplicate DiagnosticCode = "include_duplicate"
)

var (
	// ErrInvalidSeverity is returned when a Severity value is not recognized.
	ErrInvalidSeverity = errors.New("invalid severity")
	// ErrInvalidDiagnosticCode is returned when a DiagnosticCode value is not recognized.
	ErrInvalidDiagnosticCode = errors.New("invalid diagnostic code")
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// DiagnosticCode is a machine-readable diagnostic identifier.
	DiagnosticCode string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		Severity Severity
		Code     DiagnosticCode
		Message  string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// IsValid returns whether the Severity is one of the defined levels.
func (s Severity) IsValid() (bool, []error) {
	switch s {
	case SeverityWarning, SeverityError:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidSeverity, string(s))}
	}
}

// IsValid returns whether the DiagnosticCode is one of the defined codes.
func (c DiagnosticCode) IsValid() (bool, []error) {
	switch c {
	case CodeSearchPathMissing, CodeSearchPathInvalid, CodeSearchPathScanFailed,
		CodeIncludeNotModule, CodeIncludeDuplicate:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidDiagnosticCode, string(c))}
	}
}

func newDiagnostic(code DiagnosticCode, path, message string, cause error) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		Path:     path,
		Cause:    cause,
	}
}
