// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"os"
	"testing"

	"changelog-bot/lib/changelog"

	"github.com/stretchr/testify/require"
)

// SnapshotOf builds a snapshot from plain maps, build -> category ->
// descriptions.
func SnapshotOf(entries map[string]map[string][]string) *changelog.Snapshot {
	s := changelog.New()
	for build, categories := range entries {
		for category, descriptions := range categories {
			for _, d := range descriptions {
				s.Fill(build, category, d)
			}
		}
	}
	return s
}

// Dump is the inverse of SnapshotOf, so failures print readable diffs.
func Dump(s *changelog.Snapshot) map[string]map[string][]string {
	out := map[string]map[string][]string{}
	for _, build := range s.Builds() {
		set, _ := s.Get(build)
		categories := map[string][]string{}
		for _, c := range set.Categories() {
			categories[c] = set.EntriesFor(c)
		}
		out[build] = categories
	}
	return out
}

// Chdir moves the test into a fresh temporary directory and returns it,
// the previous working directory is restored on cleanup.
func Chdir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

// Unsetenv removes key for the duration of the test. Unlike t.Setenv(key,
// "") the variable no longer exists at all.
func Unsetenv(t testing.TB, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}
