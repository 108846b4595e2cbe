package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "created.txt")

	event, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, events.EventKindFile, event.Kind)
	assert.Equal(t, events.ActivityFileCreate, event.Activity)
	assert.Equal(t, path, event.FilePath)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewFile_ExistingPathFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "created.txt")

	_, err := NewFile(path)
	require.NoError(t, err)

	_, err = NewFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))

	// first file is untouched by the failed second create
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestModFile_AppendsSingleByte(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modified.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	event, err := ModFile(path)
	require.NoError(t, err)
	assert.Equal(t, events.ActivityFileModify, event.Activity)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'c', 0}, content)
}

func TestModFile_MissingFileFails(t *testing.T) {
	_, err := ModFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestDeleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doomed.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	event, err := DeleteFile(path)
	require.NoError(t, err)
	assert.Equal(t, events.ActivityFileDelete, event.Activity)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDeleteFile_CreateDeleteDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.txt")

	_, err := NewFile(path)
	require.NoError(t, err)

	_, err = DeleteFile(path)
	require.NoError(t, err)

	_, err = DeleteFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestDeleteFile_MissingFileFails(t *testing.T) {
	_, err := DeleteFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}
