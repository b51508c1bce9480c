package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doubleangels/redact-sub001/core"
)

func TestLoadConfigCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	outDir := filepath.Join(root, "outputs")
	workDir := filepath.Join(root, "scratch")

	cfgPath := filepath.Join(root, "config.yml")
	yaml := "output_dir: " + outDir + "\nwork_dir: " + workDir + "\nerase_passes: 3\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o600))

	cfg, err := core.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, outDir, cfg.OutputDir)
	assert.Equal(t, workDir, cfg.WorkDir)
	assert.Equal(t, 3, cfg.ErasePasses)
	assert.DirExists(t, outDir)
	assert.DirExists(t, workDir)
}

func TestValidateRejectsSharedDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := core.Config{OutputDir: dir, WorkDir: dir, ErasePasses: 1}
	assert.Error(t, cfg.Validate())
}

func TestValidateRaisesErasePasses(t *testing.T) {
	root := t.TempDir()
	cfg := core.Config{
		OutputDir: filepath.Join(root, "out"),
		WorkDir:   filepath.Join(root, "work"),
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ErasePasses)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := core.LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
