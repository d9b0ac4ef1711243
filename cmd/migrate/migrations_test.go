package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// this file lives in cmd/migrate/, so repo root is ../..
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
}

func TestCollectMigrations_ParsesMigrationsDir(t *testing.T) {
	migrations, err := goose.CollectMigrations(repoMigrationsDir(t), 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
}

func TestSQLMigrations_HaveGooseDirectives(t *testing.T) {
	dir := repoMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		assert.Contains(t, string(b), "-- +goose Up", e.Name())
		assert.Contains(t, string(b), "-- +goose Down", e.Name())
	}
}

// The repositories map violations of these names to domain errors.
func TestSchema_DeclaresConstraintsUsedByRepositories(t *testing.T) {
	b, err := os.ReadFile(filepath.Join(repoMigrationsDir(t), "00001_create_books_and_loans.sql"))
	require.NoError(t, err)
	schema := string(b)

	assert.Contains(t, schema, "CONSTRAINT books_isbn_key UNIQUE (isbn)")
	assert.Contains(t, schema, "CREATE UNIQUE INDEX loans_one_open_per_book ON loans (book_id) WHERE returned IS NOT TRUE")
	assert.Contains(t, schema, "ON DELETE CASCADE")
}

func TestSchema_DeclaresSweepHistory(t *testing.T) {
	b, err := os.ReadFile(filepath.Join(repoMigrationsDir(t), "00002_create_late_loan_sweeps.sql"))
	require.NoError(t, err)

	for _, col := range []string{"triggered_by", "status", "started_at", "finished_at", "late_loans", "recipients", "dispatched", "error"} {
		assert.Contains(t, string(b), col)
	}
}
