package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/gsv2p-tts/internal/core"
)

// ErrSweeperDisabled is returned by Run when no maximum age is configured.
var ErrSweeperDisabled = errors.New("audio sweeper disabled")

const defaultSweepInterval = 10 * time.Minute

// Sweeper removes generated audio files once they are older than maxAge.
// Only files carrying FilePrefix are touched.
type Sweeper struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	log      core.Logger
}

// NewSweeper creates a sweeper for dir. A zero interval defaults to ten
// minutes; a zero maxAge disables sweeping.
func NewSweeper(dir string, maxAge, interval time.Duration, log core.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{dir: dir, maxAge: maxAge, interval: interval, log: log}
}

// Enabled reports whether a maximum age is configured.
func (s *Sweeper) Enabled() bool {
	return s.maxAge > 0
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		return ErrSweeperDisabled
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			removed, err := s.Sweep(now)
			if err != nil {
				s.log.Warn("Audio sweep of %s failed: %v", s.dir, err)

				continue
			}

			if removed > 0 {
				s.log.Info("Removed %d expired audio files from %s", removed, s.dir)
			}
		}
	}
}

// Sweep removes expired audio files relative to now and returns how many
// were deleted. Individual removal failures are joined into the error.
func (s *Sweeper) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var (
		removed int
		errs    []error
	)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), FilePrefix) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}

		if now.Sub(info.ModTime()) < s.maxAge {
			continue
		}

		removeErr := os.Remove(filepath.Join(s.dir, entry.Name()))
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			errs = append(errs, removeErr)

			continue
		}

		removed++
	}

	return removed, errors.Join(errs...)
}
