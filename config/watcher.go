// 配置文件变更监听器实现。
//
// 轮询文件修改时间，防抖后触发回调。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 文件监听器类型定义 ---

// FileWatcher watches configuration files for changes
type FileWatcher struct {
	mu sync.RWMutex

	// 配置
	paths         []string
	pollInterval  time.Duration
	debounceDelay time.Duration

	// 状态
	running   bool
	stopChan  chan struct{}
	eventChan chan FileEvent

	// 回调
	callbacks []func(event FileEvent)

	logger *zap.Logger

	lastModTimes map[string]time.Time
}

// FileEvent represents a file change event
type FileEvent struct {
	Path      string    `json:"path"`
	Op        FileOp    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// FileOp represents file operation types
type FileOp int

const (
	// FileOpCreate 表示文件已创建
	FileOpCreate FileOp = iota
	// FileOpWrite 指示文件已被修改
	FileOpWrite
	// FileOpRemove 表示文件已被删除
	FileOpRemove
)

// String returns the string representation of FileOp
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// --- 文件监听器选项 ---

// WatcherOption configures the FileWatcher
type WatcherOption func(*FileWatcher)

// WithDebounceDelay sets the debounce delay for file events
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.debounceDelay = d
	}
}

// WithPollInterval sets how often files are stat'ed
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.pollInterval = d
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		w.logger = logger.With(zap.String("component", "config_watcher"))
	}
}

// --- 文件监听器实现 ---

// NewFileWatcher creates a new file watcher
func NewFileWatcher(paths []string, opts ...WatcherOption) (*FileWatcher, error) {
	w := &FileWatcher{
		paths:         paths,
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		stopChan:      make(chan struct{}),
		eventChan:     make(chan FileEvent, 100),
		lastModTimes:  make(map[string]time.Time),
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("watched file does not exist, will watch for creation",
					zap.String("path", path))
			} else {
				return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
			}
		}
	}

	return w, nil
}

// OnChange registers a callback for file change events
func (w *FileWatcher) OnChange(callback func(FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for file changes
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	for _, path := range w.paths {
		if info, err := os.Stat(path); err == nil {
			w.lastModTimes[path] = info.ModTime()
		}
	}
	w.mu.Unlock()

	go w.pollLoop(ctx)
	go w.dispatchLoop(ctx)

	w.logger.Info("file watcher started",
		zap.Strings("paths", w.paths),
		zap.Duration("poll_interval", w.pollInterval))

	return nil
}

// Stop stops the file watcher
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	close(w.stopChan)
	w.running = false

	w.logger.Info("file watcher stopped")
	return nil
}

func (w *FileWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.checkFiles()
		}
	}
}

// checkFiles stats every watched file and queues events for changes
func (w *FileWatcher) checkFiles() {
	w.mu.Lock()
	var events []FileEvent
	now := time.Now()
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				if _, existed := w.lastModTimes[path]; existed {
					delete(w.lastModTimes, path)
					events = append(events, FileEvent{Path: path, Op: FileOpRemove, Timestamp: now})
				}
			}
			continue
		}

		lastMod, existed := w.lastModTimes[path]
		switch {
		case !existed:
			w.lastModTimes[path] = info.ModTime()
			events = append(events, FileEvent{Path: path, Op: FileOpCreate, Timestamp: now})
		case info.ModTime().After(lastMod):
			w.lastModTimes[path] = info.ModTime()
			events = append(events, FileEvent{Path: path, Op: FileOpWrite, Timestamp: now})
		}
	}
	w.mu.Unlock()

	for _, e := range events {
		select {
		case w.eventChan <- e:
		default:
			w.logger.Warn("file event dropped", zap.String("path", e.Path))
		}
	}
}

// dispatchLoop coalesces events per path and fires callbacks once the debounce delay elapses
func (w *FileWatcher) dispatchLoop(ctx context.Context) {
	pending := make(map[string]FileEvent)
	debounce := time.NewTimer(w.debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event := <-w.eventChan:
			pending[event.Path] = event
			debounce.Reset(w.debounceDelay)
		case <-debounce.C:
			w.mu.RLock()
			callbacks := make([]func(FileEvent), len(w.callbacks))
			copy(callbacks, w.callbacks)
			w.mu.RUnlock()

			for path, evt := range pending {
				w.logger.Debug("dispatching file event",
					zap.String("path", path),
					zap.String("op", evt.Op.String()))
				for _, cb := range callbacks {
					cb(evt)
				}
			}
			pending = make(map[string]FileEvent)
		}
	}
}

// Paths returns the list of watched paths
func (w *FileWatcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, len(w.paths))
	copy(paths, w.paths)
	return paths
}

// IsRunning returns whether the watcher is running
func (w *FileWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
