package wipe_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doubleangels/redact-sub001/core/wipe"
)

func TestEraseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intermediate.jpg")
	require.NoError(t, os.WriteFile(path, []byte("sensitive exif payload"), 0o600))

	require.NoError(t, wipe.New(zerolog.Nop(), 2).Erase(path))
	assert.NoFileExists(t, path)
}

func TestEraseLargeFileCrossesChunkBoundary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 200*1024), 0o600))

	require.NoError(t, wipe.New(zerolog.Nop(), 1).Erase(path))
	assert.NoFileExists(t, path)
}

func TestEraseMissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "already-gone")
	require.NoError(t, wipe.New(zerolog.Nop(), 1).Erase(path))
}

func TestEraseDirDestroysWorkingArea(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "run-1")
	require.NoError(t, os.MkdirAll(filepath.Join(work, "nested"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(work, "a.tmp"), []byte("aaa"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(work, "nested", "b.tmp"), []byte("bbb"), 0o600))

	require.NoError(t, wipe.New(zerolog.Nop(), 1).EraseDir(work))
	assert.NoDirExists(t, work)
}

func TestEraseDirMissingIsNotAnError(t *testing.T) {
	require.NoError(t, wipe.New(zerolog.Nop(), 1).EraseDir(filepath.Join(t.TempDir(), "nope")))
}

func TestPassesBelowOneAreRaised(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, wipe.New(zerolog.Nop(), 0).Erase(path))
	assert.NoFileExists(t, path)
}
