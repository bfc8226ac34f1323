package config

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the default application home directory.
const HomeEnv = "USBFNSWITCH_HOME"

// Paths contains all on-disk locations used by usbfnswitch.
type Paths struct {
	Home    string // Application home directory
	StateDB string // SQLite state store (settings, journal, emulated registry)
	Logs    string // Logs directory
	LogFile string // CLI log file
	TempDir string // Scratch space for registry import files
}

// GetHome returns the application home directory (~/.usbfnswitch unless
// USBFNSWITCH_HOME is set).
func GetHome() string {
	if override := strings.TrimSpace(os.Getenv(HomeEnv)); override != "" {
		return ExpandPath(override)
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".usbfnswitch")
}

// GetPaths returns all paths rooted at GetHome.
func GetPaths() Paths {
	return PathsAt(GetHome())
}

// PathsAt returns the directory layout rooted at home.
func PathsAt(home string) Paths {
	logs := filepath.Join(home, "logs")
	return Paths{
		Home:    home,
		StateDB: filepath.Join(home, "state.db"),
		Logs:    logs,
		LogFile: filepath.Join(logs, "usbfnswitch.log"),
		TempDir: filepath.Join(home, "tmp"),
	}
}

// ExpandPath expands ~ to the user home directory.
func ExpandPath(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == os.PathSeparator {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// EnsureDirs creates the directory structure under GetHome if it does not exist.
func EnsureDirs() (Paths, error) {
	return EnsureDirsAt(GetHome())
}

// EnsureDirsAt creates the directory structure rooted at home.
func EnsureDirsAt(home string) (Paths, error) {
	paths := PathsAt(home)

	dirs := []string{
		paths.Home,
		paths.Logs,
		paths.TempDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, err
		}
	}

	return paths, nil
}
