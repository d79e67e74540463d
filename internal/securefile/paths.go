package securefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigPathCandidates lists where app's filename may live, most preferred
// first: $HOME/.config/<app>, then the OS user config dir.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	if app == "" {
		return nil, errors.New("app must not be empty")
	}
	if filename == "" {
		return nil, errors.New("filename must not be empty")
	}

	var paths []string
	seen := map[string]bool{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		add(filepath.Join(home, ".config", app, filename))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		add(filepath.Join(dir, app, filename))
	} else if len(paths) == 0 {
		return nil, fmt.Errorf("UserConfigDir: %w", err)
	}

	return paths, nil
}
