package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesComeInPairs(t *testing.T) {
	ups, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := os.Stat(down)
		assert.NoError(t, err, "missing down migration for %s", filepath.Base(up))
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	require.NoError(t, createMigration("add_review_queue"))

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*_add_review_queue.*.sql"))
	require.NoError(t, err)
	require.Len(t, files, 2)

	var suffixes []string
	for _, f := range files {
		suffixes = append(suffixes, f[strings.LastIndex(f, "add_review_queue"):])
	}
	assert.ElementsMatch(t, []string{"add_review_queue.up.sql", "add_review_queue.down.sql"}, suffixes)
}
