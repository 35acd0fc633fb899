package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-buffers/engine/core"
)

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeConfig
	AssetTypeShader
)

type AssetInfo struct {
	Path     string
	Type     AssetType
	Modified time.Time
}

/**
 * @brief Watches configuration and shader sources for changes.
 *
 * fsnotify events are collected on a background goroutine. Changes are
 * handed to the render thread through Poll, so nothing reloads off that
 * thread.
 */
type Watcher struct {
	mutex   sync.Mutex
	pending map[string]AssetInfo

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewWatcher() (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		pending:  make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Add starts watching the named file or directory (non-recursively).
// Directories are watched because editors often replace files by renaming.
func (w *Watcher) Add(name string) error {
	if w.isClosed {
		return errors.New("watcher already closed")
	}
	dir := name
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		dir = filepath.Dir(name)
	}
	return w.fsnotify.Add(dir)
}

// Poll returns the assets changed since the last call, without blocking.
func (w *Watcher) Poll() []AssetInfo {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	changed := make([]AssetInfo, 0, len(w.pending))
	for _, info := range w.pending {
		changed = append(changed, info)
	}
	clear(w.pending)
	return changed
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return nil
	}
	w.isClosed = true
	close(w.done)
	<-w.stopped
	return nil
}

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.handleFileEvent(e.Name)
			}

		case e, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// Handle the creation or modification of a file
func (w *Watcher) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.pending[path] = AssetInfo{
		Path:     path,
		Type:     assetType,
		Modified: time.Now(),
	}
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".toml":
		return AssetTypeConfig
	case ".vert", ".frag", ".glsl":
		return AssetTypeShader
	default:
		return AssetTypeNone
	}
}
