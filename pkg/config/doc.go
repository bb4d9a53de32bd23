// Package config handles configuration management for modlink.
// It loads embedded defaults, then a project TOML file, then MODLINK_
// environment variables, then command-line flag overrides.
package config
