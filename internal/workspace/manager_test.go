package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCreate(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	ws, err := manager.Create("plan apply")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Verify workspace directory exists
	if _, err := os.Stat(ws.Path); os.IsNotExist(err) {
		t.Errorf("workspace directory does not exist: %s", ws.Path)
	}

	// Verify it lives under the root
	if !strings.HasPrefix(ws.Path, root) {
		t.Errorf("workspace %s not under root %s", ws.Path, root)
	}

	// Verify fields
	if ws.Operation != "plan apply" {
		t.Errorf("expected operation 'plan apply', got '%s'", ws.Operation)
	}
	if !strings.HasPrefix(filepath.Base(ws.Path), "plan-apply-") {
		t.Errorf("expected directory prefix 'plan-apply-', got '%s'", filepath.Base(ws.Path))
	}
}

func TestCreateDistinctPaths(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	// Two runs of the same operation must not collide
	ws1, err := manager.Create("shutdown")
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	ws2, err := manager.Create("shutdown")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if ws1.Path == ws2.Path {
		t.Errorf("expected distinct paths, both got %s", ws1.Path)
	}
}

func TestWriteFile(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	ws, err := manager.Create("plan apply")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	path, err := ws.WriteFile("payload.json", []byte(`{"operation":"on"}`))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != `{"operation":"on"}` {
		t.Errorf("unexpected file contents: %s", string(data))
	}
}

func TestCleanup(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	ws, err := manager.Create("cleanup-test")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Verify workspace exists
	if _, err := os.Stat(ws.Path); os.IsNotExist(err) {
		t.Fatalf("workspace should exist before cleanup")
	}

	// Cleanup
	if err := manager.Cleanup(ws); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	// Verify directory removed
	if _, err := os.Stat(ws.Path); !os.IsNotExist(err) {
		t.Errorf("workspace directory still exists after cleanup")
	}

	// Second cleanup should report the missing workspace
	if err := manager.Cleanup(ws); err == nil {
		t.Errorf("expected error cleaning up missing workspace, got nil")
	}
}

func TestCleanupRejectsOutsidePath(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	outside := t.TempDir()
	err := manager.Cleanup(&Workspace{Path: outside, Operation: "bogus"})
	if err == nil {
		t.Fatal("expected error for path outside root, got nil")
	}

	// The outside directory must be untouched
	if _, statErr := os.Stat(outside); os.IsNotExist(statErr) {
		t.Errorf("directory outside root was removed")
	}
}

func TestForceCleanup(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	ws, err := manager.Create("force-cleanup-test")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Leave stray content behind
	if _, err := ws.WriteFile("leftover.json", []byte("{}")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Force cleanup succeeds despite content
	if err := manager.ForceCleanup(ws); err != nil {
		t.Fatalf("ForceCleanup failed: %v", err)
	}
	if _, err := os.Stat(ws.Path); !os.IsNotExist(err) {
		t.Errorf("workspace directory still exists after force cleanup")
	}

	// Force cleanup of an already-missing workspace is not an error
	if err := manager.ForceCleanup(ws); err != nil {
		t.Errorf("ForceCleanup of missing workspace failed: %v", err)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	ws1, err := manager.Create("plan apply")
	if err != nil {
		t.Fatalf("Create 1 failed: %v", err)
	}
	ws2, err := manager.Create("shutdown")
	if err != nil {
		t.Fatalf("Create 2 failed: %v", err)
	}

	workspaces, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %d", len(workspaces))
	}

	found1, found2 := false, false
	for _, ws := range workspaces {
		if ws.Path == ws1.Path {
			found1 = true
			if ws.Operation != "plan-apply" {
				t.Errorf("workspace 1 operation = %q, want 'plan-apply'", ws.Operation)
			}
		}
		if ws.Path == ws2.Path {
			found2 = true
			if ws.Operation != "shutdown" {
				t.Errorf("workspace 2 operation = %q, want 'shutdown'", ws.Operation)
			}
		}
	}
	if !found1 {
		t.Errorf("workspace 1 not found in list")
	}
	if !found2 {
		t.Errorf("workspace 2 not found in list")
	}
}

func TestListMissingRoot(t *testing.T) {
	manager := NewManager(Config{Root: filepath.Join(t.TempDir(), "never-created")})

	workspaces, err := manager.List()
	if err != nil {
		t.Fatalf("List of missing root failed: %v", err)
	}
	if len(workspaces) != 0 {
		t.Errorf("expected no workspaces, got %d", len(workspaces))
	}
}

func TestPrune(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(Config{Root: root})

	old, err := manager.Create("stale-run")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fresh, err := manager.Create("fresh-run")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Age the first workspace past the prune threshold
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old.Path, past, past); err != nil {
		t.Fatalf("backdating workspace: %v", err)
	}

	removed, err := manager.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 workspace pruned, got %d", removed)
	}

	if _, err := os.Stat(old.Path); !os.IsNotExist(err) {
		t.Errorf("stale workspace still exists after prune")
	}
	if _, err := os.Stat(fresh.Path); err != nil {
		t.Errorf("fresh workspace should survive prune: %v", err)
	}
}
