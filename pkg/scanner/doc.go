// Package scanner walks the modules root and reconciles every markup file
// of every module folder.
//
// Module folders are processed concurrently. Files inside one folder are
// processed one after another in directory-listing order. A failure on one
// file is recorded on that file and never stops the others.
package scanner
