package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeFromOp(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventType(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventType(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventType(fsnotify.Rename))
	assert.Equal(t, EventTypeModified, eventType(fsnotify.Chmod))
}

func TestFilters(t *testing.T) {
	tests := []struct {
		path      string
		scene     bool
		notHidden bool
	}{
		{"scenes/todo.yml", true, true},
		{"scenes/todo.YAML", true, true},
		{"scenes/todo.json", false, true},
		{"scenes/.todo.yml", true, false},
		{"scenes/todo.yml~", false, false},
		{"scenes/todo.yml.swp", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.scene, SceneFilter(tt.path))
			assert.Equal(t, tt.notHidden, NoHiddenFilter(tt.path))
		})
	}
}

func TestDebouncerBatchesByPath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Add(ChangeEvent{Path: "b.yml", Type: EventTypeCreated})
	d.Add(ChangeEvent{Path: "a.yml", Type: EventTypeCreated})
	d.Add(ChangeEvent{Path: "b.yml", Type: EventTypeModified})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 2)
		assert.Equal(t, "a.yml", batch[0].Path)
		assert.Equal(t, "b.yml", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type, "the last change per path wins")
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestWatchFileReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yml")
	other := filepath.Join(dir, "other.yml")
	require.NoError(t, os.WriteFile(path, []byte("root: a\n"), 0o644))

	fw, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	batches := make(chan []ChangeEvent, 4)
	fw.AddHandler(func(events []ChangeEvent) error {
		batches <- events
		return nil
	})
	require.NoError(t, fw.WatchFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	require.NoError(t, os.WriteFile(other, []byte("ignored\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("root: b\n"), 0o644))

	select {
	case events := <-batches:
		require.NotEmpty(t, events)
		for _, e := range events {
			assert.Equal(t, filepath.Base(path), filepath.Base(e.Path))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
