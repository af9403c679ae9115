package workspace

import "time"

// Workspace is a scratch directory dedicated to one operation run.
type Workspace struct {
	Path      string    // Absolute path to the workspace directory
	Operation string    // Operation the workspace was created for
	Created   time.Time // Creation time (directory mtime when listed)
}

// Config configures the workspace manager.
type Config struct {
	Root string // Parent directory for workspaces; empty uses the xdg cache default
}
