// Package watch runs actions when files matching a rule's globs change.
// Bursts of events are debounced per rule and a rule's action never runs
// concurrently with itself.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
	"github.com/licht-dev/licht-compile/internal/logfields"
)

// DefaultDebounce is the quiet period before a rule's action runs.
const DefaultDebounce = 300 * time.Millisecond

// Action handles a batch of changed paths, slash-separated and relative to
// the rule root.
type Action func(ctx context.Context, paths []string) error

// Rule binds globs under a root directory to an action.
type Rule struct {
	Name string
	Root string
	// Globs are matched against paths relative to Root. Empty matches everything.
	Globs  []string
	Action Action
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher dispatches filesystem events to rules.
type Watcher struct {
	rules    []*ruleState
	debounce time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

type ruleState struct {
	Rule
	root string

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	req     chan struct{}
}

// New creates a watcher for rules. Relative roots resolve against the
// current directory.
func New(rules []Rule, opts ...Option) *Watcher {
	w := &Watcher{debounce: DefaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range rules {
		root, err := filepath.Abs(r.Root)
		if err != nil {
			root = filepath.Clean(r.Root)
		}
		w.rules = append(w.rules, &ruleState{
			Rule:    r,
			root:    root,
			pending: map[string]struct{}{},
			req:     make(chan struct{}, 1),
		})
	}
	return w
}

// Run watches until ctx is cancelled. Action errors are logged and never
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WatchError("create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fsw.Close() }()

	added := map[string]bool{}
	for _, r := range w.rules {
		if added[r.root] {
			continue
		}
		added[r.root] = true
		if st, err := os.Stat(r.root); err != nil || !st.IsDir() {
			w.logger.Debug("Watch root missing; skipping", logfields.Path(r.root), logfields.Task(r.Name))
			continue
		}
		w.addDirsRecursive(fsw, r.root)
	}

	w.startWorkers(ctx)
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || shouldIgnore(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fsw, ev.Name)
			return
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.dispatch(ev.Name)
}

// dispatch queues abs for every rule whose globs match it.
func (w *Watcher) dispatch(abs string) {
	for _, r := range w.rules {
		if rel, ok := r.match(abs); ok {
			r.trigger(rel, w.debounce)
		}
	}
}

func (r *ruleState) match(abs string) (string, bool) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if len(r.Globs) == 0 {
		return rel, true
	}
	for _, g := range r.Globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return rel, true
		}
	}
	return "", false
}

func (r *ruleState) trigger(rel string, debounce time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[rel] = struct{}{}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(debounce, func() {
		select {
		case r.req <- struct{}{}:
		default:
		}
	})
}

func (r *ruleState) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.pending))
	for p := range r.pending {
		paths = append(paths, p)
	}
	clear(r.pending)
	sort.Strings(paths)
	return paths
}

// startWorkers runs one goroutine per rule. The request channel holds at
// most one queued run, so changes during a run produce one follow-up.
func (w *Watcher) startWorkers(ctx context.Context) {
	for _, r := range w.rules {
		w.wg.Add(1)
		go func(r *ruleState) {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-r.req:
					paths := r.drain()
					if len(paths) == 0 {
						continue
					}
					w.runAction(ctx, r, paths)
				}
			}
		}(r)
	}
}

func (w *Watcher) runAction(ctx context.Context, r *ruleState, paths []string) {
	start := time.Now()
	if err := r.Action(ctx, paths); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("Watch action failed",
			logfields.Task(r.Name),
			logfields.Files(len(paths)),
			logfields.Error(err))
		return
	}
	w.logger.Debug("Watch action finished",
		logfields.Task(r.Name),
		logfields.Files(len(paths)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

func (w *Watcher) stopTimers() {
	for _, r := range w.rules {
		r.mu.Lock()
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
	}
}

func (w *Watcher) addDirsRecursive(fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := fsw.Add(p); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(p), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnore reports hidden files, editor swap files and OS metadata.
func shouldIgnore(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913":
		// vim probes directory writability with a file named 4913.
		return true
	}
	return false
}
