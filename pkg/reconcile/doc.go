// Package reconcile brings one (module path, theme path) pair to its
// converged state.
//
// Module path M is where a markup file lives inside a module folder; theme
// path T is where the theme expects it. The converged state is a relative
// symlink at M pointing at a regular file at T. Reconcile inspects the
// filesystem on every call and takes at most one step:
//
//	M absent,  T present   create the link                  (repaired)
//	M absent,  T absent    nothing
//	M link,    T absent    remove the dangling link         (pruned)
//	M link,    T present   nothing
//	M regular, T present   warn, touch nothing              (conflict)
//	M regular, T absent    mkdir, rename M to T, link M     (linked)
//
// There is no rollback. If linking fails after the rename, the pair is left
// as (M absent, T present) and the next pass repairs it.
package reconcile
