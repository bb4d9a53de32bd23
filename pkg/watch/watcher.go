// Package watch turns filesystem changes under the modules root and the
// theme markup directories into change notifications.
//
// The modules root is watched recursively, with new directories added as
// they appear. Theme directories are watched one level deep and filtered by
// theme patterns relative to the theme root. A root that is missing at
// startup is picked up once it is created: its nearest existing ancestor is
// watched until then. Throttling is left to the caller.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/rs/zerolog"
)

// defaultIgnores are always excluded: VCS metadata, dependency caches,
// editor swap files and OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// DefaultThemePatterns selects the theme files whose changes matter.
var DefaultThemePatterns = []string{"{sections,snippets}/*.liquid"}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// ModulesDir is watched recursively. It may not exist yet.
		ModulesDir string
		// ThemeRoot anchors ThemePatterns.
		ThemeRoot string
		// ThemeDirs are directories under ThemeRoot to watch, e.g. "sections".
		ThemeDirs []string
		// ThemePatterns are doublestar patterns relative to ThemeRoot. Empty
		// means DefaultThemePatterns.
		ThemePatterns []string
		// Ignore is merged with the built-in ignores. Patterns are matched
		// against paths relative to the root the event came from.
		Ignore []string
		// OnEvent is called for every accepted event.
		OnEvent func(ctx context.Context, ev Event)
	}

	// Event is an accepted filesystem change.
	Event struct {
		Path string
		// Rel is Path relative to the root it was matched against.
		Rel string
		Op  fsnotify.Op
		// Theme is set for theme-side events.
		Theme bool
	}

	// Watcher monitors the modules root and theme directories. Run must be
	// called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		patterns []string
		logger   zerolog.Logger
		started  atomic.Bool
		pending  []pendingRoot
	}

	// pendingRoot is a watch root that did not exist when it was registered.
	pendingRoot struct {
		path  string
		tree  bool
		theme bool
		// parent is the ancestor currently watched in its place.
		parent string
	}
)

// New creates a Watcher and registers the directories to watch.
func New(cfg Config) (*Watcher, error) {
	if err := validatePatterns(cfg.ThemePatterns, "theme"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	patterns := cfg.ThemePatterns
	if len(patterns) == 0 {
		patterns = DefaultThemePatterns
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrWatch, "create fsnotify watcher")
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  ignores,
		patterns: patterns,
		logger:   logging.GetLogger("watch"),
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn().Err(closeErr).Msg("Close after init failure")
		}
		return nil, err
	}

	return w, nil
}

// Run blocks until ctx is cancelled, forwarding accepted events to OnEvent.
// It returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrWatch, "Run called more than once")
	}
	defer func() {
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn().Err(closeErr).Msg("Close fsnotify")
		}
	}()

	// a root may have appeared between New and Run
	w.checkPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New(errors.ErrWatch, "fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Create) || evt.Has(fsnotify.Rename) {
				w.checkPending(ctx)
			}
			ev, accepted := w.accept(evt.Name, evt.Op)
			if !accepted {
				continue
			}
			if !ev.Theme && evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			w.logger.Trace().Str("path", ev.Path).Str("op", ev.Op.String()).Msg("Change detected")
			if w.cfg.OnEvent != nil {
				w.cfg.OnEvent(ctx, ev)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New(errors.ErrWatch, "fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return errors.Wrap(err, errors.ErrWatch, "fatal fsnotify error")
			}
			w.logger.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

// accept decides whether a raw event is relevant. Module-side events take
// precedence when the modules root lies inside the theme root.
func (w *Watcher) accept(path string, op fsnotify.Op) (Event, bool) {
	if rel, ok := within(w.cfg.ModulesDir, path); ok {
		if w.isIgnored(rel) {
			return Event{}, false
		}
		return Event{Path: path, Rel: rel, Op: op}, true
	}

	if rel, ok := within(w.cfg.ThemeRoot, path); ok {
		if w.isIgnored(rel) || !w.matchesTheme(rel) {
			return Event{}, false
		}
		return Event{Path: path, Rel: rel, Op: op, Theme: true}, true
	}

	return Event{}, false
}

// within returns path relative to root when path is root or below it.
func within(root, path string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// addDirectories registers the modules tree and the theme directories.
// Missing roots are recorded as pending.
func (w *Watcher) addDirectories() error {
	if w.cfg.ModulesDir != "" {
		if isDir(w.cfg.ModulesDir) {
			if err := w.addTree(w.cfg.ModulesDir); err != nil {
				return err
			}
		} else {
			w.logger.Info().Str("path", w.cfg.ModulesDir).Msg("Modules root missing, waiting for it")
			w.pending = append(w.pending, pendingRoot{path: w.cfg.ModulesDir, tree: true})
		}
	}

	for _, dir := range w.cfg.ThemeDirs {
		path := filepath.Join(w.cfg.ThemeRoot, dir)
		if !isDir(path) {
			w.logger.Debug().Str("path", path).Msg("Theme directory missing, waiting for it")
			w.pending = append(w.pending, pendingRoot{path: path, theme: true})
			continue
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, errors.ErrWatch, "add directory %q", path)
		}
	}

	for i := range w.pending {
		w.watchParent(&w.pending[i])
	}
	return nil
}

// watchParent watches the nearest existing ancestor of a pending root so its
// creation, or the creation of a directory on the way to it, is seen.
// Directories created while the watch is being added are caught by looking
// again until the ancestor stops changing.
func (w *Watcher) watchParent(p *pendingRoot) {
	for {
		parent := nearestExisting(p.path)
		if parent == "" || parent == p.parent {
			return
		}
		if err := w.fsw.Add(parent); err != nil {
			w.logger.Warn().Err(err).Str("path", parent).Msg("Cannot watch parent of missing root")
			return
		}
		p.parent = parent
	}
}

// checkPending activates pending roots that now exist and moves the others'
// parent watch closer. An activated root produces one synthetic Create event
// so content moved in with it is reconciled.
func (w *Watcher) checkPending(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	remaining := w.pending[:0]
	var activated []pendingRoot
	for _, p := range w.pending {
		if !isDir(p.path) {
			w.watchParent(&p)
			if !isDir(p.path) {
				remaining = append(remaining, p)
				continue
			}
		}
		var err error
		if p.tree {
			err = w.addTree(p.path)
		} else {
			err = w.fsw.Add(p.path)
		}
		if err != nil {
			w.logger.Warn().Err(err).Str("path", p.path).Msg("Cannot watch created root")
			remaining = append(remaining, p)
			continue
		}
		w.logger.Info().Str("path", p.path).Msg("Root created, now watching it")
		activated = append(activated, p)
	}
	w.pending = remaining

	if w.cfg.OnEvent == nil {
		return
	}
	for _, p := range activated {
		ev := Event{Path: p.path, Op: fsnotify.Create, Theme: p.theme}
		if p.theme {
			ev.Rel, _ = within(w.cfg.ThemeRoot, p.path)
		} else {
			ev.Rel = "."
		}
		w.cfg.OnEvent(ctx, ev)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// nearestExisting returns the closest ancestor of path that is an existing
// directory, or "" when there is none.
func nearestExisting(path string) string {
	dir := filepath.Dir(path)
	for {
		if isDir(dir) {
			return dir
		}
		next := filepath.Dir(dir)
		if next == dir {
			return ""
		}
		dir = next
	}
}

// addTree walks root and adds every non-ignored directory.
func (w *Watcher) addTree(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn().Err(walkDirErr).Str("path", path).Msg("Skipping inaccessible path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return errors.Wrapf(addErr, errors.ErrWatch, "add directory %q", path)
		}
		return nil
	})
	if walkErr != nil {
		return errors.Wrap(walkErr, errors.ErrWatch, "walk modules tree")
	}
	return nil
}

// maybeAddDir starts watching a directory created after startup.
func (w *Watcher) maybeAddDir(path string) {
	if !isDir(path) {
		return
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn().Err(err).Str("path", path).Msg("Add new directory")
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

func (w *Watcher) matchesTheme(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	out := make([]string, len(defaultIgnores))
	copy(out, defaultIgnores)
	return out
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return errors.Newf(errors.ErrWatch, "invalid %s pattern %q", label, pat)
		}
	}
	return nil
}
