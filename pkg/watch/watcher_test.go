package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Event, 64)}
}

func (r *recorder) onEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.ch <- ev:
	default:
	}
}

// waitFor returns the first event satisfying match, failing after timeout.
func (r *recorder) waitFor(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

type project struct {
	root    string
	modules string
}

func newProject(t *testing.T) project {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	p := project{root: root, modules: filepath.Join(root, "src", "modules")}
	for _, dir := range []string{p.modules, filepath.Join(root, "sections"), filepath.Join(root, "snippets")} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	return p
}

func (p project) start(t *testing.T, rec *recorder, ignore ...string) {
	t.Helper()
	w, err := New(Config{
		ModulesDir: p.modules,
		ThemeRoot:  p.root,
		ThemeDirs:  []string{"sections", "snippets"},
		Ignore:     ignore,
		OnEvent:    rec.onEvent,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_ModuleFileChange(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(p.modules, "hero"), 0755))
	rec := newRecorder()
	p.start(t, rec)

	target := filepath.Join(p.modules, "hero", "hero.section.liquid")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	ev := rec.waitFor(t, func(ev Event) bool { return ev.Path == target })
	assert.False(t, ev.Theme)
	assert.Equal(t, filepath.Join("hero", "hero.section.liquid"), ev.Rel)
}

func TestWatcher_NewModuleDirectoryIsWatched(t *testing.T) {
	p := newProject(t)
	rec := newRecorder()
	p.start(t, rec)

	dir := filepath.Join(p.modules, "banner")
	require.NoError(t, os.Mkdir(dir, 0755))
	rec.waitFor(t, func(ev Event) bool { return ev.Path == dir })

	target := filepath.Join(dir, "banner.liquid")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	rec.waitFor(t, func(ev Event) bool { return ev.Path == target })
}

func TestWatcher_ThemeFileChange(t *testing.T) {
	p := newProject(t)
	rec := newRecorder()
	p.start(t, rec)

	target := filepath.Join(p.root, "snippets", "card.liquid")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	ev := rec.waitFor(t, func(ev Event) bool { return ev.Path == target })
	assert.True(t, ev.Theme)
	assert.Equal(t, filepath.Join("snippets", "card.liquid"), ev.Rel)
}

func TestWatcher_IgnoresNoise(t *testing.T) {
	p := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(p.modules, "hero"), 0755))
	rec := newRecorder()
	p.start(t, rec)

	// Noise first, then a sentinel; once the sentinel arrives the noise
	// would have been delivered already.
	require.NoError(t, os.WriteFile(filepath.Join(p.modules, "hero", ".hero.liquid.swp"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "snippets", "notes.txt"), nil, 0644))
	sentinel := filepath.Join(p.modules, "hero", "hero.liquid")
	require.NoError(t, os.WriteFile(sentinel, []byte("x"), 0644))
	rec.waitFor(t, func(ev Event) bool { return ev.Path == sentinel })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, ev := range rec.events {
		assert.NotContains(t, ev.Path, ".swp")
		assert.NotContains(t, ev.Path, "notes.txt")
	}
}

func TestWatcher_MissingRootsAreSkipped(t *testing.T) {
	root := t.TempDir()
	w, err := New(Config{
		ModulesDir: filepath.Join(root, "missing"),
		ThemeRoot:  root,
		ThemeDirs:  []string{"sections"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}

func TestWatcher_ModulesRootCreatedLater(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	p := project{root: root, modules: filepath.Join(root, "src", "modules")}
	rec := newRecorder()
	p.start(t, rec)

	hero := filepath.Join(p.modules, "hero")
	require.NoError(t, os.MkdirAll(hero, 0755))
	ev := rec.waitFor(t, func(ev Event) bool { return ev.Path == p.modules })
	assert.False(t, ev.Theme)
	assert.Equal(t, ".", ev.Rel)

	target := filepath.Join(hero, "hero.section.liquid")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	ev = rec.waitFor(t, func(ev Event) bool { return ev.Path == target })
	assert.Equal(t, filepath.Join("hero", "hero.section.liquid"), ev.Rel)
}

func TestWatcher_ThemeDirCreatedLater(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	p := project{root: root, modules: filepath.Join(root, "src", "modules")}
	require.NoError(t, os.MkdirAll(p.modules, 0755))
	rec := newRecorder()
	p.start(t, rec)

	snippets := filepath.Join(root, "snippets")
	require.NoError(t, os.Mkdir(snippets, 0755))
	rec.waitFor(t, func(ev Event) bool { return ev.Path == snippets && ev.Theme })

	target := filepath.Join(snippets, "card.liquid")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	ev := rec.waitFor(t, func(ev Event) bool { return ev.Path == target })
	assert.True(t, ev.Theme)
}

func TestNearestExisting(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, root, nearestExisting(filepath.Join(root, "a", "b", "c")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	assert.Equal(t, filepath.Join(root, "a", "b"), nearestExisting(filepath.Join(root, "a", "b", "c")))
}

func TestWatcher_RunTwice(t *testing.T) {
	w, err := New(Config{ThemeRoot: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}

func TestNew_InvalidPatterns(t *testing.T) {
	_, err := New(Config{ThemePatterns: []string{"[unclosed"}})
	assert.Error(t, err)

	_, err = New(Config{Ignore: []string{"{a,b"}})
	assert.Error(t, err)
}

func TestAccept(t *testing.T) {
	w := &Watcher{
		cfg: Config{
			ModulesDir: filepath.Join("/p", "src", "modules"),
			ThemeRoot:  "/p",
		},
		ignores:  append(DefaultIgnores(), "**/*.bak"),
		patterns: DefaultThemePatterns,
	}

	tests := []struct {
		name   string
		path   string
		accept bool
		theme  bool
	}{
		{"module markup", "/p/src/modules/hero/hero.liquid", true, false},
		{"module script", "/p/src/modules/hero/hero.ts", true, false},
		{"module root itself", "/p/src/modules", true, false},
		{"module swap file", "/p/src/modules/hero/.hero.liquid.swp", false, false},
		{"module backup", "/p/src/modules/hero/hero.liquid~", false, false},
		{"configured ignore", "/p/src/modules/hero/hero.bak", false, false},
		{"node_modules", "/p/src/modules/hero/node_modules/x/index.js", false, false},
		{"section", "/p/sections/hero.liquid", true, true},
		{"snippet", "/p/snippets/card.liquid", true, true},
		{"template not matched", "/p/templates/page.liquid", false, false},
		{"nested snippet not matched", "/p/snippets/deep/card.liquid", false, false},
		{"non-liquid theme file", "/p/sections/readme.md", false, false},
		{"outside everything", "/elsewhere/hero.liquid", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := w.accept(filepath.FromSlash(tt.path), fsnotify.Write)
			assert.Equal(t, tt.accept, ok)
			if ok {
				assert.Equal(t, tt.theme, ev.Theme)
			}
		})
	}
}

func TestDefaultIgnores_ReturnsCopy(t *testing.T) {
	first := DefaultIgnores()
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultIgnores()[0])
}
