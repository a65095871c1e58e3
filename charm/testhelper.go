// ABOUTME: Test utilities for creating isolated storage backends
// ABOUTME: Uses temporary directories with BadgerDB for test isolation

package charm

import (
	"path/filepath"
	"testing"
)

// NewTestBackend opens a Local backend in a per-test temp directory and
// closes it when the test ends.
func NewTestBackend(t *testing.T) *Local {
	t.Helper()

	l, err := OpenLocal(filepath.Join(t.TempDir(), "advisor-crm"))
	if err != nil {
		t.Fatalf("Failed to open test backend: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})
	return l
}
