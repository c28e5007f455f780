package providertest

import (
	"os"
	"testing"
)

// Leftovers lists the entries remaining in a stager directory. Strategies
// are expected to leave it empty after every Update.
func Leftovers(t testing.TB, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging directory: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
