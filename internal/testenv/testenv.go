// Package testenv isolates tests from the developer's real ~/.harp and
// HARP_* environment. It has no dependencies on other internal packages.
package testenv

import (
	"fmt"
	"os"
	"testing"
)

// Vars are the environment variables config.LoadGlobalFrom reads.
var Vars = []string{"HARP_DATA_DIR", "HARP_SERVER", "HARP_TOKEN", "HARP_DATABASE_URL"}

// SetDataDir points HARP_DATA_DIR at a temp directory for the duration of
// the test and clears the other HARP_* overrides. Returns the directory.
func SetDataDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, k := range Vars {
		t.Setenv(k, "")
	}
	t.Setenv("HARP_DATA_DIR", dir)
	return dir
}

// RunIsolatedMain runs m with HARP_DATA_DIR set to a fresh temp directory
// and the other HARP_* variables unset, then removes the directory.
// Use it from TestMain.
func RunIsolatedMain(m *testing.M) int {
	dir, err := os.MkdirTemp("", "harp-test-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "testenv: create data dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(dir)

	for _, k := range Vars {
		os.Unsetenv(k)
	}
	os.Setenv("HARP_DATA_DIR", dir)

	return m.Run()
}
