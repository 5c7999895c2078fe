package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/gsv2p-tts/internal/plugin"
	"github.com/book-expert/gsv2p-tts/internal/tts"
)

const testConfigFmt = `
[gsv2p]
api_url = %q
api_token = "tok"
default_voice = "v1"
timeout = 5

[paths]
base_logs_dir = %q
output_dir = %q
`

func writeConfig(t *testing.T, apiURL, outputDir string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := fmt.Sprintf(testConfigFmt, apiURL, t.TempDir(), outputDir)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, plugin.Name+" "+Version+"\n", out)
}

func TestSayCommand(t *testing.T) {
	t.Parallel()

	audio := bytes.Repeat([]byte{0xFF}, 2048)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	t.Cleanup(server.Close)

	outputDir := t.TempDir()
	configPath := writeConfig(t, server.URL, outputDir)

	out, err := execute(t, "--config", configPath, "say", "你好", "v2")
	require.NoError(t, err)

	audioPath := strings.Fields(out)[0]
	assert.Equal(t, outputDir, filepath.Dir(audioPath))
	assert.True(t, strings.HasPrefix(filepath.Base(audioPath), tts.FilePrefix))
	assert.Contains(t, out, "2.0 kB")

	data, err := os.ReadFile(audioPath)
	require.NoError(t, err)
	assert.Equal(t, audio, data)
}

func TestSayCommand_ReportsReason(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	configPath := writeConfig(t, server.URL, t.TempDir())

	_, err := execute(t, "--config", configPath, "say", "你好")
	require.Error(t, err)
	require.ErrorIs(t, err, tts.ErrAPI)
	assert.Contains(t, err.Error(), string(tts.ReasonAPIError))
}

func TestSayCommand_RequiresText(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "say")
	require.Error(t, err)
}
