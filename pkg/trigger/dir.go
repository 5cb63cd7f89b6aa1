package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DirSource polls a directory for serialized trigger files. Each poll
// consumes the backlog strictly oldest-first: the oldest matching file is
// read, deleted, and decoded before the next one is even considered, so a
// file dropped mid-poll still lands in the right place in the order.
type DirSource struct {
	dir    string
	logger *slog.Logger
}

// NewDirSource returns a DirSource for dir. The directory must exist.
func NewDirSource(dir string, logger *slog.Logger) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("trigger: %s is not a directory", dir)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{dir: dir, logger: logger.With("component", "trigger", "dir", dir)}, nil
}

// Dir returns the watched directory.
func (d *DirSource) Dir() string {
	return d.dir
}

// Poll consumes all trigger files currently in the directory, oldest
// first, and returns their firings. A file that cannot be read or decoded
// is removed and skipped so a poison file cannot wedge the loop.
func (d *DirSource) Poll(ctx context.Context) ([]Firing, error) {
	var firings []Firing
	for {
		if err := ctx.Err(); err != nil {
			return firings, err
		}
		path, ok, err := d.oldest()
		if err != nil {
			return firings, err
		}
		if !ok {
			return firings, nil
		}

		data, readErr := os.ReadFile(path)
		if err := os.Remove(path); err != nil {
			d.logger.Warn("trigger file remove failed", "path", path, "error", err)
		}
		if readErr != nil {
			d.logger.Warn("trigger file unreadable", "path", path, "error", readErr)
			continue
		}

		args, err := Decode(path, data)
		if err != nil {
			d.logger.Warn("trigger file undecodable", "path", path, "error", err)
			continue
		}
		firings = append(firings, Firing{Event: EventName(path), Args: args})
	}
}

// Close implements Source. A DirSource holds no resources.
func (d *DirSource) Close() error {
	return nil
}

// oldest returns the matching file with the oldest modification time.
func (d *DirSource) oldest() (string, bool, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", false, fmt.Errorf("trigger: %w", err)
	}

	var (
		best     string
		bestTime time.Time
		found    bool
	)
	for _, e := range entries {
		if e.IsDir() || !HasKnownExtension(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().Before(bestTime) {
			best = filepath.Join(d.dir, e.Name())
			bestTime = info.ModTime()
			found = true
		}
	}
	return best, found, nil
}
