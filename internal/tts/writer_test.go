package tts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioWriter_WriteRoundTrip(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	writer := NewAudioWriter(dir)
	data := fakeAudio(testAudioSize)

	path, err := writer.Write(context.Background(), data, "mp3")
	require.NoError(t, err)

	read, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, read)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no part file may remain")
}

func TestAudioWriter_CancelledContextLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := NewAudioWriter(dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := writer.Write(ctx, fakeAudio(testAudioSize), "mp3")
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAudioWriter_DefaultsToTempDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, os.TempDir(), NewAudioWriter("").Dir())
}

func TestExtensionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mp3", extensionFor("mp3"))
	assert.Equal(t, "wav", extensionFor("WAV"))
	assert.Equal(t, "etcpasswd", extensionFor("../../etc/passwd"))
	assert.Equal(t, defaultExtension, extensionFor(""))
	assert.Equal(t, defaultExtension, extensionFor("./"))
}

func TestSweeper_Sweep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Now()

	oldAudio := filepath.Join(dir, FilePrefix+"old.mp3")
	freshAudio := filepath.Join(dir, FilePrefix+"fresh.mp3")
	unrelated := filepath.Join(dir, "keep.txt")

	for _, path := range []string{oldAudio, freshAudio, unrelated} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldAudio, old, old))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	sweeper := NewSweeper(dir, time.Hour, time.Minute, newTestLogger(t))
	require.True(t, sweeper.Enabled())

	removed, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, oldAudio)
	assert.FileExists(t, freshAudio)
	assert.FileExists(t, unrelated)
}

func TestSweeper_DisabledRun(t *testing.T) {
	t.Parallel()

	sweeper := NewSweeper(t.TempDir(), 0, 0, newTestLogger(t))

	assert.False(t, sweeper.Enabled())
	require.ErrorIs(t, sweeper.Run(context.Background()), ErrSweeperDisabled)
}
