package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// Manager creates and removes per-operation scratch directories under a
// single root. Operations render request payloads and other intermediate
// files here so failed runs leave something to inspect.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at cfg.Root.
func NewManager(cfg Config) *Manager {
	if cfg.Root == "" {
		cfg.Root = filepath.Join(xdg.CacheHome, "hpcadm", "workspaces")
	}
	return &Manager{root: cfg.Root}
}

// Root returns the parent directory holding all workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Create makes a fresh workspace directory for the given operation.
// Each call yields a distinct directory, so concurrent runs of the same
// operation never collide.
func (m *Manager) Create(operation string) (*Workspace, error) {
	name := fmt.Sprintf("%s-%s", sanitize(operation), uuid.NewString()[:8])
	path := filepath.Join(m.root, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace %s: %w", path, err)
	}

	return &Workspace{
		Path:      path,
		Operation: operation,
		Created:   time.Now(),
	}, nil
}

// WriteFile writes data to a file inside the workspace.
func (w *Workspace) WriteFile(name string, data []byte) (string, error) {
	path := filepath.Join(w.Path, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Cleanup removes a workspace directory. It errors if the workspace is
// already gone or lives outside the manager's root.
func (m *Manager) Cleanup(ws *Workspace) error {
	if err := m.contains(ws.Path); err != nil {
		return err
	}
	if _, err := os.Stat(ws.Path); os.IsNotExist(err) {
		return fmt.Errorf("workspace does not exist: %s", ws.Path)
	}
	if err := os.RemoveAll(ws.Path); err != nil {
		return fmt.Errorf("removing workspace %s: %w", ws.Path, err)
	}
	return nil
}

// ForceCleanup removes a workspace directory, tolerating one that is
// already gone (e.g. after a crashed run was cleaned up by hand).
func (m *Manager) ForceCleanup(ws *Workspace) error {
	if err := m.contains(ws.Path); err != nil {
		return err
	}
	if err := os.RemoveAll(ws.Path); err != nil {
		return fmt.Errorf("removing workspace %s: %w", ws.Path, err)
	}
	return nil
}

// List returns all workspaces currently under the root.
func (m *Manager) List() ([]Workspace, error) {
	entries, err := os.ReadDir(m.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}

	var workspaces []Workspace
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		workspaces = append(workspaces, Workspace{
			Path:      filepath.Join(m.root, entry.Name()),
			Operation: operationFromName(entry.Name()),
			Created:   info.ModTime(),
		})
	}
	return workspaces, nil
}

// Prune removes workspaces older than the given age and returns how many
// were removed.
func (m *Manager) Prune(olderThan time.Duration) (int, error) {
	workspaces, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for i := range workspaces {
		if workspaces[i].Created.After(cutoff) {
			continue
		}
		if err := os.RemoveAll(workspaces[i].Path); err != nil {
			return removed, fmt.Errorf("pruning workspace %s: %w", workspaces[i].Path, err)
		}
		removed++
	}
	return removed, nil
}

// contains verifies that path lives under the manager's root, guarding
// Cleanup against deleting arbitrary directories.
func (m *Manager) contains(path string) error {
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %s is not a workspace under %s", path, m.root)
	}
	return nil
}

// sanitize turns an operation name into a filesystem-safe directory prefix.
func sanitize(operation string) string {
	s := strings.ToLower(operation)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, s)
	return strings.Trim(s, "-")
}

// operationFromName recovers the operation prefix from a directory name by
// stripping the trailing -<id> suffix Create appended.
func operationFromName(name string) string {
	if i := strings.LastIndex(name, "-"); i > 0 {
		return name[:i]
	}
	return name
}
