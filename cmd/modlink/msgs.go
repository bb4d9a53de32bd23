package modlink

import (
	_ "embed"
	"strings"
)

// Short messages
const (
	MsgRootShort       = "Link module Liquid files into a Shopify theme"
	MsgLinkShort       = "Reconcile module markup with the theme once"
	MsgWatchShort      = "Reconcile, then keep reconciling on changes"
	MsgStatusShort     = "Show the link state of every module markup file"
	MsgResolveShort    = "Resolve folder-as-module import specifiers"
	MsgConfigShort     = "Print the effective configuration"
	MsgClassifyShort   = "Show where markup files would be placed"
	MsgVersionShort    = "Print version information"
	MsgTopicsShort     = "Display available documentation topics"
	MsgCompletionShort = "Generate shell completion script"

	MsgClassifyLong = "Classify prints the theme destination for each filename without touching the filesystem."
	MsgTopicsLong   = "Display a list of all available help topics that provide additional documentation beyond command help."

	MsgWatching      = "Watching %s for changes (Ctrl-C to stop)"
	MsgWatchStopped  = "Stopped watching"
	MsgNoSpecifiers  = "requires at least one specifier, or --aliases"
	MsgAliasLine     = "%s -> %s"
	MsgVersionFormat = "modlink version %s\n  commit: %s\n  built:  %s\n"

	// Errors
	MsgErrLoadConfig = "failed to load configuration: %w"
	MsgErrScan       = "reconciliation finished with errors: %w"
	MsgErrWatch      = "watch failed: %w"

	// Flags
	MsgFlagVerbose    = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagRoot       = "Project root (default: current directory)"
	MsgFlagConfig     = "Config file (default: modlink.toml or .modlink.toml in the project root)"
	MsgFlagModulesDir = "Modules root, relative to the project root"
	MsgFlagThemeRoot  = "Theme root, relative to the project root"
	MsgFlagFormat     = "Output format: auto, term, text, json or yaml"
	MsgFlagDryRun     = "Report what would change without changing anything"
	MsgFlagWindow     = "Throttle window for change events (e.g. 500ms)"
	MsgFlagAliases    = "Print the alias table instead of resolving"
	MsgFlagDefaults   = "Print the built-in defaults instead of the effective configuration"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/link-long.txt
	msgLinkLongRaw string
	MsgLinkLong    = strings.TrimSpace(msgLinkLongRaw)

	//go:embed msgs/link-example.txt
	msgLinkExampleRaw string
	MsgLinkExample    = strings.TrimRight(msgLinkExampleRaw, "\n")

	//go:embed msgs/watch-long.txt
	msgWatchLongRaw string
	MsgWatchLong    = strings.TrimSpace(msgWatchLongRaw)

	//go:embed msgs/watch-example.txt
	msgWatchExampleRaw string
	MsgWatchExample    = strings.TrimRight(msgWatchExampleRaw, "\n")

	//go:embed msgs/status-long.txt
	msgStatusLongRaw string
	MsgStatusLong    = strings.TrimSpace(msgStatusLongRaw)

	//go:embed msgs/resolve-long.txt
	msgResolveLongRaw string
	MsgResolveLong    = strings.TrimSpace(msgResolveLongRaw)

	//go:embed msgs/resolve-example.txt
	msgResolveExampleRaw string
	MsgResolveExample    = strings.TrimRight(msgResolveExampleRaw, "\n")

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
