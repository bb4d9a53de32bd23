package reconcile

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/liquidmods/modlink/pkg/errors"
)

// State is the observed condition of a (module path, theme path) pair.
type State int

const (
	// StateAbsent: nothing at the module path and nothing at the theme path.
	StateAbsent State = iota
	// StateOrphaned: nothing at the module path, the theme file exists.
	StateOrphaned
	// StateLinked: the module path is a symlink and the theme file exists.
	StateLinked
	// StateDangling: the module path is a symlink, the theme file is gone.
	StateDangling
	// StatePending: a regular file in the module, not yet moved.
	StatePending
	// StateConflict: a regular file in the module and a file at the theme path.
	StateConflict
)

var stateNames = map[State]string{
	StateAbsent:   "absent",
	StateOrphaned: "orphaned",
	StateLinked:   "linked",
	StateDangling: "dangling",
	StatePending:  "pending",
	StateConflict: "conflict",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON and YAML reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Converged reports whether no further step would change the pair.
// A conflict is stable but not converged.
func (s State) Converged() bool {
	return s == StateAbsent || s == StateLinked
}

// Inspect reads the current state of the pair. Nothing is cached.
func (r *Reconciler) Inspect(modulePath, themePath string) (State, error) {
	st, _, err := r.inspect(modulePath, themePath)
	return st, err
}

// inspect also returns the raw link destination when M is a symlink.
func (r *Reconciler) inspect(modulePath, themePath string) (State, string, error) {
	themeExists, err := r.exists(themePath)
	if err != nil {
		return 0, "", err
	}

	info, err := r.fs.Lstat(modulePath)
	if stderrors.Is(err, fs.ErrNotExist) {
		if themeExists {
			return StateOrphaned, "", nil
		}
		return StateAbsent, "", nil
	}
	if err != nil {
		return 0, "", errors.Wrapf(err, errors.ErrFileAccess, "cannot inspect %s", modulePath).
			WithDetail("module_path", modulePath)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		dest, err := r.fs.Readlink(modulePath)
		if err != nil {
			return 0, "", errors.Wrapf(err, errors.ErrFileAccess, "cannot read link %s", modulePath).
				WithDetail("module_path", modulePath)
		}
		if themeExists {
			return StateLinked, dest, nil
		}
		return StateDangling, dest, nil
	}

	if !info.Mode().IsRegular() {
		return 0, "", errors.Newf(errors.ErrReconcile, "%s is neither a regular file nor a symlink", modulePath).
			WithDetail("module_path", modulePath).
			WithDetail("mode", info.Mode().String())
	}

	if themeExists {
		return StateConflict, "", nil
	}
	return StatePending, "", nil
}

// exists follows symlinks, so a link at the theme path whose target is gone
// counts as missing.
func (r *Reconciler) exists(path string) (bool, error) {
	_, err := r.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path).
		WithDetail("theme_path", path)
}

// resolveLink returns the absolute path a link destination refers to.
func resolveLink(linkPath, dest string) string {
	if filepath.IsAbs(dest) {
		return filepath.Clean(dest)
	}
	return filepath.Join(filepath.Dir(linkPath), dest)
}
