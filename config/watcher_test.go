package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func touch(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func startWatcher(t *testing.T, paths []string) (*FileWatcher, func() []FileEvent) {
	t.Helper()
	w, err := NewFileWatcher(paths,
		WithPollInterval(10*time.Millisecond),
		WithDebounceDelay(10*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)

	var mu sync.Mutex
	var events []FileEvent
	w.OnChange(func(evt FileEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	return w, func() []FileEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]FileEvent(nil), events...)
	}
}

func TestNewFileWatcher_Defaults(t *testing.T) {
	f := filepath.Join(t.TempDir(), "npcagent.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
	assert.Equal(t, time.Second, w.pollInterval)
}

func TestNewFileWatcher_NonExistentPathWarns(t *testing.T) {
	w, err := NewFileWatcher([]string{"/nonexistent/path/npcagent.yaml"})
	require.NoError(t, err)
	require.NotNil(t, w)
}

func TestFileWatcher_Lifecycle(t *testing.T) {
	f := filepath.Join(t.TempDir(), "npcagent.yaml")
	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(ctx), "double start")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(), "stop is idempotent")
}

func TestFileWatcher_DetectsWriteCreateRemove(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.yaml")
	later := filepath.Join(dir, "b.yaml")
	base := time.Now().Add(-time.Hour)
	touch(t, existing, "v1", base)

	_, events := startWatcher(t, []string{existing, later})

	touch(t, existing, "v2", base.Add(time.Minute))
	require.Eventually(t, func() bool { return len(events()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, FileEvent{Path: existing, Op: FileOpWrite}, FileEvent{Path: events()[0].Path, Op: events()[0].Op})

	touch(t, later, "new", base)
	require.Eventually(t, func() bool { return len(events()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, FileOpCreate, events()[1].Op)

	require.NoError(t, os.Remove(existing))
	require.Eventually(t, func() bool { return len(events()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, FileOpRemove, events()[2].Op)
	assert.Equal(t, existing, events()[2].Path)
}

func TestFileWatcher_DispatchCoalesces(t *testing.T) {
	f := filepath.Join(t.TempDir(), "burst.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v0"), 0644))

	w, events := startWatcher(t, []string{f})
	for i := 0; i < 50; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
	}

	require.Eventually(t, func() bool { return len(events()) >= 1 }, time.Second, 5*time.Millisecond)
	assert.Less(t, len(events()), 50, "debounce merges events for the same path")
}

func TestFileOp_String(t *testing.T) {
	assert.Equal(t, "CREATE", FileOpCreate.String())
	assert.Equal(t, "WRITE", FileOpWrite.String())
	assert.Equal(t, "REMOVE", FileOpRemove.String())
	assert.Equal(t, "UNKNOWN", FileOp(99).String())
}

func TestLevelReloader_AppliesLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "npcagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	r := NewLevelReloader(NewLoader().WithConfigPath(path), level, nil)

	r.Handle(FileEvent{Path: path, Op: FileOpWrite})
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0644))
	r.Handle(FileEvent{Path: path, Op: FileOpWrite})
	assert.Equal(t, zapcore.DebugLevel, level.Level(), "invalid level is ignored")

	require.NoError(t, os.WriteFile(path, []byte("log: [broken"), 0644))
	r.Handle(FileEvent{Path: path, Op: FileOpWrite})
	assert.Equal(t, zapcore.DebugLevel, level.Level(), "parse errors keep the current level")

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0644))
	r.Handle(FileEvent{Path: path, Op: FileOpRemove})
	assert.Equal(t, zapcore.DebugLevel, level.Level(), "removal is ignored")
}
