package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("grade-sheets/job-1.csv", []byte("student_id,total\n"))
	require.NoError(t, err)
	assert.Equal(t, "grade-sheets/job-1.csv", name)

	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "student_id,total\n", string(data))

	require.NoError(t, store.Delete(name))
	_, err = store.Read(name)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageRejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../secrets", "/etc/passwd", "a/../../b"} {
		_, err := store.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("new.pdf", []byte("new"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)

	_, err = store.Read("new.pdf")
	assert.NoError(t, err)
}
