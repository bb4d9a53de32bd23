// Package filesystem provides filesystem implementations for modlink.
//
// This package contains implementations of the types.FS interface: the
// standard OS filesystem and an afero-backed adapter. The in-memory
// filesystem used by tests lives in pkg/testutil.
package filesystem
