package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depotplan/internal/config"
)

func TestResolveConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("DEPOTPLAN_DEPOT", "")
	cfg, err := ResolveConfig(t.TempDir(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "depot", cfg.Depot.Name)
	assert.True(t, cfg.Readiness.AllowUncertified)
}

func TestResolveConfigReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	yml := "depot:\n  name: aluva\nstabling:\n  shunting_total: assigned\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(yml), 0o644))

	cfg, err := ResolveConfig(dir, "", "")
	require.NoError(t, err)
	assert.Equal(t, "aluva", cfg.Depot.Name)
	assert.Equal(t, "assigned", cfg.Stabling.ShuntingTotal)

	cfg, err = ResolveConfig(dir, "", "muttom")
	require.NoError(t, err)
	assert.Equal(t, "muttom", cfg.Depot.Name)
}

func TestResolveConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("stabling:\n  shunting_total: sideways\n"), 0o644))
	_, err := ResolveConfig(dir, path, "")
	assert.Error(t, err)
}

func TestOpenEngineMigrates(t *testing.T) {
	dir := t.TempDir()
	eng, conn, err := OpenEngine(context.Background(), Options{Workspace: dir, Depot: "muttom"})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "muttom", eng.Config.Depot.Name)

	trains, err := eng.Repo.ListTrains(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trains)
}
