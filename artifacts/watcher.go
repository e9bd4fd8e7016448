package artifacts

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a bundle when its files change on disk, so a retrain
// can be picked up without restarting the service. Reloads are debounced
// because a bundle save touches two files back to back.
type Watcher struct {
	dir       string
	modelType string
	onReload  func(*Bundle)
	onError   func(error)

	fs   *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

func NewWatcher(dir, modelType string, onReload func(*Bundle), onError func(error)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		dir:       dir,
		modelType: modelType,
		onReload:  onReload,
		onError:   onError,
		fs:        fs,
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	const debounce = 500 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.reload)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return strings.HasPrefix(name, w.modelType+".")
}

func (w *Watcher) reload() {
	bundle, err := Load(w.dir, w.modelType)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	if w.onReload != nil {
		w.onReload(bundle)
	}
}

func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.fs.Close()
}
