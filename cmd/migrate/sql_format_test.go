package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// this file lives in cmd/migrate/, so repo root is ../..
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", ".."))
	return filepath.Join(repoRoot, "db", "migrations")
}

func readMigrations(t *testing.T) map[string]string {
	t.Helper()
	dir := repoMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	out := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(b)
	}
	return out
}

func TestSQLMigrations_HaveGooseDirectives(t *testing.T) {
	files := readMigrations(t)
	require.NotEmpty(t, files)

	for name, s := range files {
		assert.Contains(t, s, "-- +goose Up", name)
		assert.Contains(t, s, "-- +goose Down", name)
	}
}

func TestSQLMigrations_CatalogConstraints(t *testing.T) {
	var all strings.Builder
	for _, s := range readMigrations(t) {
		all.WriteString(s)
	}
	schema := all.String()

	assert.Contains(t, schema, "ON DELETE RESTRICT", "authors and books are protected from deletion while referenced")
	assert.Contains(t, schema, "bookinstances_borrower_on_loan", "a borrower implies an on-loan copy")
	assert.Contains(t, schema, "visit_counters")
}
