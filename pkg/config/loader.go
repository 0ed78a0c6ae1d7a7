package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Loader loads a configuration file and reloads it when the file changes.
type Loader struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu       sync.RWMutex
	current  *Config
	onChange func(*Config)
	onError  func(error)

	closeOnce sync.Once
	close     chan struct{}
}

// NewLoader creates a Loader for path. Nothing is read until Load is called. A nil
// logger means slog.Default at the time each message is logged.
func NewLoader(path string, logger *slog.Logger) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	return &Loader{
		path:   absPath,
		logger: logger,
		close:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path of the watched file.
func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.Default()
	}
	return l.logger
}

// Load reads and validates the file. The current configuration only changes when the
// new one is valid.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()

	return cfg, nil
}

// Current returns the last successfully loaded configuration, or nil.
func (l *Loader) Current() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch starts monitoring the file. onChange runs after every successful reload;
// onError, when non-nil, runs when a reload fails and the previous configuration is
// kept.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	l.mu.Lock()
	l.watcher = watcher
	l.onChange = onChange
	l.onError = onError
	l.mu.Unlock()

	// Editors often save by rename, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	go l.watchLoop(watcher)
	return nil
}

func (l *Loader) watchLoop(watcher *fsnotify.Watcher) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-l.close:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, l.reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log().Warn("Config watcher error", "error", err)
		}
	}
}

func (l *Loader) reload() {
	select {
	case <-l.close:
		return
	default:
	}

	l.mu.RLock()
	onChange, onError := l.onChange, l.onError
	l.mu.RUnlock()

	cfg, err := l.Load()
	if err != nil {
		l.log().Error("Config reload failed, keeping previous configuration", "path", l.path, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	l.log().Info("Configuration reloaded", "path", l.path)
	if onChange != nil {
		onChange(cfg)
	}
}

// Close stops the watcher.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.close)
		l.mu.RLock()
		watcher := l.watcher
		l.mu.RUnlock()
		if watcher != nil {
			err = watcher.Close()
		}
	})
	return err
}
