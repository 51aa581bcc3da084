package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ContentHashing(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "Target.loom")
	content := []byte("module Target exposing (x)\n\nx = 1\n")

	// Initial create
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	// Wait for initial event
	select {
	case <-changedFiles:
		// OK
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for create event")
	}

	// Rewriting the same bytes must not produce an event.
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changedFiles:
		t.Errorf("Received unexpected event for identical content: %v", paths)
	case <-time.After(200 * time.Millisecond):
		// Expected timeout - no event should fire
	}

	// Change content
	newContent := []byte("module Target exposing (x, y)\n\nx = 1\n\ny = 2\n")
	if err := os.WriteFile(testFile, newContent, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changedFiles:
		found := false
		for _, p := range paths {
			if p == testFile {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected event for %s, got %v", testFile, paths)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timed out waiting for content change")
	}

	// A delete clears the remembered hash, so re-creating the same bytes
	// fires again.
	if err := os.Remove(testFile); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changedFiles:
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for remove event")
	}

	if err := os.WriteFile(testFile, newContent, 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changedFiles:
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for re-create event")
	}
}
