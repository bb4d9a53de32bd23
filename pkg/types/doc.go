// Package types defines the interfaces shared across modlink packages.
// Packages depend on FS rather than the os package so reconciliation can be
// exercised against the OS, afero and in-memory filesystems alike.
package types
