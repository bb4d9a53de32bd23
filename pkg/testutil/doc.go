// Package testutil provides utilities for testing modlink components.
//
// Key components:
//   - TestEnvironment: a modules root and theme root backed by either the
//     in-memory filesystem or a real temp directory
//   - MemoryFS: in-memory filesystem with symlink semantics and per-operation
//     error injection
//   - Assert helpers for symlinks, regular files and absent paths
//
// Usage guidelines:
//   - Prefer EnvMemoryOnly; use EnvIsolated when behaviour must be checked
//     against the real OS
//   - All test data should be defined inline, not in external files
package testutil
