package xpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand replaces the leading "~" with the home directory of the user
// and expands environment variables like $XDG_PICTURES_DIR.
func Expand(rawPath string) (string, error) {
	rawPath = os.ExpandEnv(rawPath)
	switch {
	case rawPath == "~":
		return os.UserHomeDir()
	case strings.HasPrefix(rawPath, "~/"):
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to get user home dir: %w", err)
		}
		return filepath.Join(homeDir, rawPath[2:]), nil
	}
	return rawPath, nil
}
