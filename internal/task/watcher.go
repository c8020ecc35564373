package task

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/pkg/types"
)

// Watcher watches a directory for dropped-in task files and turns each
// into a submission on its New channel. Submission validation (mode,
// length, content) is the caller's responsibility — the watcher only
// reads and parses, it never rejects.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	new     chan *types.Task
	errs    chan error
	done    chan struct{}
	log     *logger.Logger
}

// NewWatcher creates a Watcher over dir, creating it if necessary.
func NewWatcher(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		dir:     dir,
		watcher: fw,
		new:     make(chan *types.Task),
		errs:    make(chan error),
		done:    make(chan struct{}),
		log:     logger.New("TaskWatcher", ""),
	}, nil
}

// Start processes any files already present, then watches for new ones.
func (w *Watcher) Start() {
	w.processExisting()
	go w.loop()
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

// New yields a parsed Task for each file dropped into the watched
// directory.
func (w *Watcher) New() <-chan *types.Task { return w.new }

// Errors yields parse/IO failures encountered while watching.
func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.processFile(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.done:
			}
		}
	}
}

func (w *Watcher) processExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.processFile(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) processFile(path string) {
	if !strings.HasSuffix(path, ".txt") && !strings.HasSuffix(path, ".md") {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		select {
		case w.errs <- err:
		case <-w.done:
		}
		return
	}

	mode, description := parseTaskFile(string(data))
	t := New(description, mode, types.PriorityMedium, nil)

	select {
	case w.new <- t:
		os.Remove(path)
	case <-w.done:
	}
}

// parseTaskFile splits a dropped-in file on an optional leading
// "mode: <name>" line, defaulting to the ask mode when none is present.
func parseTaskFile(content string) (types.Mode, string) {
	lines := strings.SplitN(content, "\n", 2)
	if len(lines) == 2 && strings.HasPrefix(strings.ToLower(lines[0]), "mode:") {
		mode := types.Mode(strings.TrimSpace(strings.TrimPrefix(strings.ToLower(lines[0]), "mode:")))
		return mode, strings.TrimSpace(lines[1])
	}
	return types.ModeAsk, strings.TrimSpace(content)
}
