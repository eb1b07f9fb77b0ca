// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"
)

// SetHomeDir points the platform's home variable (HOME, or USERPROFILE on Windows)
// at dir and returns a cleanup function restoring it. XDG_CONFIG_HOME is cleared so
// os.UserConfigDir resolves under dir.
//
//	t.Cleanup(testutil.SetHomeDir(t, t.TempDir()))
func SetHomeDir(t testing.TB, dir string) func() {
	t.Helper()

	if runtime.GOOS == "windows" {
		return MustSetenv(t, "USERPROFILE", dir)
	}
	restoreXDG := MustSetenv(t, "XDG_CONFIG_HOME", "")
	restoreHome := MustSetenv(t, "HOME", dir)
	return func() {
		restoreHome()
		restoreXDG()
	}
}
