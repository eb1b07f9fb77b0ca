// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"testing"
)

func TestSeverity_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity Severity
		want     bool
	}{
		{SeverityWarning, true},
		{SeverityError, true},
		{"", false},
		{"WARNING", false},
	}

	for _, tt := range tests {
		isValid, errs := tt.severity.IsValid()
		if isValid != tt.want {
			t.Errorf("Severity(%q).IsValid() = %v, want %v", tt.severity, isValid, tt.want)
		}
		if !tt.want && (len(errs) == 0 || !errors.Is(errs[0], ErrInvalidSeverity)) {
			t.Errorf("Severity(%q).IsValid() errors = %v, want ErrInvalidSeverity", tt.severity, errs)
		}
	}
}

func TestDiagnosticCode_IsValid(t *testing.T) {
	t.Parallel()

	for _, code := range []DiagnosticCode{
		CodeSearchPathMissing, CodeSearchPathInvalid, CodeSearchPathScanFailed,
		CodeIncludeNotModule, CodeIncludeDuplicate,
	} {
		if ok, errs := code.IsValid(); !ok || len(errs) > 0 {
			t.Errorf("DiagnosticCode(%q).IsValid() = %v, %v; want true", code, ok, errs)
		}
	}

	if ok, errs := DiagnosticCode("nope").IsValid(); ok || !errors.Is(errs[0], ErrInvalidDiagnosticCode) {
		t.Errorf("DiagnosticCode(nope).IsValid() = %v, %v; want false with ErrInvalidDiagnosticCode", ok, errs)
	}
}
