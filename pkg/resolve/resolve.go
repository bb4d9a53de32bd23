// Package resolve maps folder-as-module import specifiers to concrete script
// files. Importing "@modules/hero" resolves to the first of
// hero/hero.js, hero/hero.jsx, hero/hero.ts, hero/hero.tsx that exists.
package resolve

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/filesystem"
	"github.com/liquidmods/modlink/pkg/logging"
	"github.com/liquidmods/modlink/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultExtensions are tried in order.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx"}

// DefaultAliases are the specifier prefixes that stand for the modules root.
var DefaultAliases = []string{"@modules", "~modules"}

// Candidates returns <dir>/<base(dir)><ext> for each extension, in order.
func Candidates(dir string, exts []string) []string {
	base := filepath.Base(dir)
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		out = append(out, filepath.Join(dir, base+ext))
	}
	return out
}

// FirstExisting returns the first candidate that is a regular file, following
// symlinks. Missing candidates are skipped; any other stat failure is
// returned.
func FirstExisting(fsys types.FS, candidates []string) (string, bool, error) {
	for _, c := range candidates {
		info, err := fsys.Stat(c)
		if err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", false, errors.Wrapf(err, errors.ErrResolve, "stat %s", c)
		}
		if info.Mode().IsRegular() {
			return c, true, nil
		}
	}
	return "", false, nil
}

// Resolver answers module resolution queries against one modules root.
type Resolver struct {
	modulesDir string
	extensions []string
	aliases    []string
	fs         types.FS
	logger     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtensions overrides DefaultExtensions.
func WithExtensions(exts []string) Option {
	return func(r *Resolver) {
		if len(exts) > 0 {
			r.extensions = exts
		}
	}
}

// WithAliases overrides DefaultAliases.
func WithAliases(aliases []string) Option {
	return func(r *Resolver) {
		if len(aliases) > 0 {
			r.aliases = aliases
		}
	}
}

// WithFS sets the filesystem; the OS is used otherwise.
func WithFS(fsys types.FS) Option {
	return func(r *Resolver) { r.fs = fsys }
}

// New creates a Resolver for an absolute modules root.
func New(modulesDir string, opts ...Option) *Resolver {
	r := &Resolver{
		modulesDir: filepath.Clean(modulesDir),
		extensions: DefaultExtensions,
		aliases:    DefaultAliases,
		logger:     logging.GetLogger("resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = filesystem.NewOS()
	}
	return r
}

// Aliases maps every alias to the absolute modules root, for bundler config.
func (r *Resolver) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for _, a := range r.aliases {
		out[a] = r.modulesDir
	}
	return out
}

// Expand replaces a leading alias with the modules root. Specifiers without
// an alias are returned cleaned and unchanged otherwise.
func (r *Resolver) Expand(specifier string) string {
	// Longest alias first so "@modules-extra" style aliases win over "@modules".
	aliases := append([]string(nil), r.aliases...)
	sort.Slice(aliases, func(i, j int) bool { return len(aliases[i]) > len(aliases[j]) })

	for _, a := range aliases {
		if specifier == a {
			return r.modulesDir
		}
		if rest, ok := strings.CutPrefix(specifier, a+"/"); ok {
			return filepath.Join(r.modulesDir, filepath.FromSlash(rest))
		}
	}
	return filepath.Clean(specifier)
}

// Within reports whether path lies in the modules root.
func (r *Resolver) Within(path string) bool {
	rel, err := filepath.Rel(r.modulesDir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Resolve returns the script a specifier refers to. The bool is false when
// the specifier is not ours to handle: outside the modules root, missing, a
// plain file, or a folder with no matching script. None of those is an
// error.
func (r *Resolver) Resolve(specifier string) (string, bool, error) {
	path := r.Expand(specifier)
	if !filepath.IsAbs(path) || !r.Within(path) {
		return "", false, nil
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, errors.ErrResolve, "stat %s", path)
	}
	if !info.IsDir() {
		return "", false, nil
	}

	found, ok, err := FirstExisting(r.fs, Candidates(path, r.extensions))
	if err != nil {
		return "", false, err
	}
	if ok {
		r.logger.Debug().Str("specifier", specifier).Str("resolved", found).Msg("Resolved module folder")
	}
	return found, ok, nil
}
