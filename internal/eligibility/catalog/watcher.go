package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"visamatch/internal/eligibility/evaluator"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher rebuilds the evaluator when the catalog file changes and publishes
// it through a Holder. A catalog that fails to load or compile is logged and
// the previous evaluator stays in service.
type Watcher struct {
	path     string
	holder   *evaluator.Holder
	logger   *slog.Logger
	evalOpts []evaluator.Option
	debounce time.Duration
	onReload func(version string)

	mu sync.Mutex
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithEvaluatorOptions passes options to every rebuilt evaluator.
func WithEvaluatorOptions(opts ...evaluator.Option) WatcherOption {
	return func(w *Watcher) {
		w.evalOpts = append(w.evalOpts, opts...)
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadHook is called with the new rule-set version after each swap.
func WithReloadHook(fn func(version string)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher watches path and swaps evaluators in holder.
func NewWatcher(path string, holder *evaluator.Holder, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		holder:   holder,
		logger:   logger,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads the catalog once and publishes the new evaluator.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cat, err := Load(w.path)
	if err != nil {
		return err
	}
	next, err := cat.Evaluator(w.evalOpts...)
	if err != nil {
		return fmt.Errorf("build catalog %s: %w", w.path, err)
	}
	prev := w.holder.Swap(next)
	if prev != nil && prev.Version() == next.Version() {
		return nil
	}
	w.logger.Info("catalog reloaded",
		"path", w.path,
		"rule_set_version", next.Version(),
	)
	if w.onReload != nil {
		w.onReload(next.Version())
	}
	return nil
}

// Run watches the catalog's directory until ctx is done. Editors often
// replace files by rename, so the directory is watched rather than the file.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if err := w.Reload(); err != nil {
					w.logger.Error("catalog reload failed, keeping previous rule set",
						"path", w.path,
						"rule_set_version", w.holder.Version(),
						"error", err,
					)
				}
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}
