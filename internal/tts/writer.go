package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// FilePrefix starts the name of every audio file this package writes.
	FilePrefix = "gsv2p_tts_"

	dirPermissions   = 0o750
	partFilePattern  = ".gsv2p_tts_*.part"
	defaultExtension = "mp3"
)

// AudioWriter persists audio bytes under a unique name per call, so
// concurrent invocations never share a path.
type AudioWriter struct {
	dir string
}

// NewAudioWriter returns a writer for dir. An empty dir means the process
// temp directory.
func NewAudioWriter(dir string) *AudioWriter {
	if dir == "" {
		dir = os.TempDir()
	}

	return &AudioWriter{dir: dir}
}

// Dir returns the directory files are written to.
func (w *AudioWriter) Dir() string {
	return w.dir
}

// Write stores data and returns the final path. The bytes go to a hidden
// part file first and are renamed into place only when complete and ctx is
// still live, so a cancelled call never leaves a readable partial file.
func (w *AudioWriter) Write(ctx context.Context, data []byte, format string) (string, error) {
	err := os.MkdirAll(w.dir, dirPermissions)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	part, err := os.CreateTemp(w.dir, partFilePattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}

	partName := part.Name()
	committed := false

	defer func() {
		if !committed {
			_ = os.Remove(partName)
		}
	}()

	_, writeErr := part.Write(data)
	closeErr := part.Close()

	if writeErr != nil {
		return "", fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	if closeErr != nil {
		return "", fmt.Errorf("failed to close audio file: %w", closeErr)
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("audio write abandoned: %w", ctx.Err())
	}

	finalPath := filepath.Join(w.dir, uniqueName(format))

	err = os.Rename(partName, finalPath)
	if err != nil {
		return "", fmt.Errorf("failed to move audio file into place: %w", err)
	}

	committed = true

	return finalPath, nil
}

func uniqueName(format string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	return FilePrefix + token + "." + extensionFor(format)
}

// extensionFor keeps only lowercase alphanumerics of the response format so
// a configured value can never escape the output directory.
func extensionFor(format string) string {
	var builder strings.Builder

	for _, r := range strings.ToLower(format) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			builder.WriteRune(r)
		}
	}

	if builder.Len() == 0 {
		return defaultExtension
	}

	return builder.String()
}
