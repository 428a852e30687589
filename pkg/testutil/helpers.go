// Package testutil provides common utility functions for testing.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/mortgage-compare/internal/compare"
)

// FindResult finds an offer result by name in the results slice.
// Returns a pointer to the result if found, nil otherwise.
func FindResult(results []compare.Result, name string) *compare.Result {
	for i := range results {
		if results[i].Name == name {
			return &results[i]
		}
	}
	return nil
}

// WriteConfig writes contents to a YAML file in a temporary directory and
// returns its path.
func WriteConfig(t testing.TB, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
