package deps

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Checker verifies that the directories the service depends on exist
// before it starts serving.
type Checker struct {
	fs    afero.Fs
	paths []string
}

// NewChecker creates a new checker for the given directories.
func NewChecker(fs afero.Fs, paths ...string) *Checker {
	return &Checker{fs: fs, paths: paths}
}

// IsAvailable reports whether path is an existing directory.
func (c *Checker) IsAvailable(path string) bool {
	ok, err := afero.DirExists(c.fs, path)
	return err == nil && ok
}

// CheckAndLog checks all paths and logs the status of each.
func (c *Checker) CheckAndLog(log zerolog.Logger) error {
	var missing []string

	for _, p := range c.paths {
		abs, _ := filepath.Abs(p)
		if c.IsAvailable(p) {
			log.Info().Str("path", abs).Msg("directory ok")
		} else {
			log.Error().Str("path", abs).Msg("directory not found")
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		return &MissingPathsError{Paths: missing}
	}

	return nil
}

// MissingPathsError is returned when required directories are missing.
type MissingPathsError struct {
	Paths []string
}

func (e *MissingPathsError) Error() string {
	return fmt.Sprintf("missing directories: %v", e.Paths)
}
