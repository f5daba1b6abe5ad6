// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it. Only the current user's
// home directory is expanded; a ~otheruser prefix is left alone.
func CleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if path != "~" && !strings.HasPrefix(path, "~/") {
		return filepath.Clean(path)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		// Fallback to CWD if the home directory cannot be determined.
		homeDir = "."
	}
	return filepath.Join(homeDir, path[1:])
}
