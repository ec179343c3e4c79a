package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) action(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestShouldIgnore(t *testing.T) {
	cases := map[string]bool{
		"/src/index.html":        false,
		"/src/assets/main.scss":  false,
		"/src/.index.html.swp":   true,
		"/src/index.html~":       true,
		"/src/#index.html#":      true,
		"/src/.DS_Store":         true,
		"/src/4913":              true,
		"/src/assets/styles.swx": true,
	}
	for p, want := range cases {
		assert.Equal(t, want, shouldIgnore(p), p)
	}
}

func TestRuleMatch(t *testing.T) {
	root := t.TempDir()
	w := New([]Rule{
		{Name: "style", Root: root, Globs: []string{"assets/styles/*.scss"}},
		{Name: "public", Root: filepath.Join(root, "public")},
	})
	style, public := w.rules[0], w.rules[1]

	rel, ok := style.match(filepath.Join(root, "assets", "styles", "main.scss"))
	assert.True(t, ok)
	assert.Equal(t, "assets/styles/main.scss", rel)

	_, ok = style.match(filepath.Join(root, "assets", "scripts", "main.js"))
	assert.False(t, ok)

	_, ok = public.match(filepath.Join(root, "index.html"))
	assert.False(t, ok)

	rel, ok = public.match(filepath.Join(root, "public", "a", "b.txt"))
	assert.True(t, ok)
	assert.Equal(t, "a/b.txt", rel)
}

func TestDispatch_DebouncesBurstIntoOneRun(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	w := New([]Rule{{Name: "page", Root: root, Globs: []string{"*.html"}, Action: rec.action}},
		WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	w.startWorkers(ctx)

	w.dispatch(filepath.Join(root, "b.html"))
	w.dispatch(filepath.Join(root, "a.html"))
	w.dispatch(filepath.Join(root, "a.html"))
	w.dispatch(filepath.Join(root, "style.css"))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"a.html", "b.html"}, calls[0])

	cancel()
	w.wg.Wait()
}

func TestDispatch_QueuesOneFollowUpWhileRunning(t *testing.T) {
	root := t.TempDir()
	release := make(chan struct{})
	var running, maxRunning, runs atomic.Int32
	action := func(_ context.Context, _ []string) error {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		if runs.Add(1) == 1 {
			<-release
		}
		running.Add(-1)
		return nil
	}
	w := New([]Rule{{Name: "script", Root: root, Action: action}}, WithDebounce(5*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	w.startWorkers(ctx)

	w.dispatch(filepath.Join(root, "a.js"))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, time.Millisecond)

	for _, name := range []string{"b.js", "c.js", "d.js"} {
		w.dispatch(filepath.Join(root, name))
		time.Sleep(15 * time.Millisecond)
	}
	close(release)

	require.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, int32(1), maxRunning.Load())

	cancel()
	w.wg.Wait()
}

func TestRunAction_ErrorsAreNotFatal(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w := New([]Rule{{Name: "page", Root: root, Action: func(context.Context, []string) error {
		calls.Add(1)
		return errors.New("template render failed")
	}}}, WithDebounce(5*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	w.startWorkers(ctx)

	w.dispatch(filepath.Join(root, "index.html"))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, time.Millisecond)
	w.dispatch(filepath.Join(root, "index.html"))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, time.Millisecond)

	cancel()
	w.wg.Wait()
}

func TestRun_ReactsToFileWrites(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets", "styles"), 0o755))

	rec := &recorder{}
	w := New([]Rule{
		{Name: "style", Root: root, Globs: []string{"assets/styles/*.scss"}, Action: rec.action},
		{Name: "missing", Root: filepath.Join(root, "does-not-exist"), Action: rec.action},
	}, WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	target := filepath.Join(root, "assets", "styles", "main.scss")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("body{}"), 0o644)
		return len(rec.snapshot()) > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"assets/styles/main.scss"}, rec.snapshot()[0])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
