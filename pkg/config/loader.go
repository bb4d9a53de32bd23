package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/liquidmods/modlink/pkg/errors"
	"github.com/liquidmods/modlink/pkg/logging"
)

const (
	// EnvPrefix prefixes environment overrides. Nested keys use a double
	// underscore: MODLINK_LINK__TEMPLATE_DEST=templates.
	EnvPrefix = "MODLINK_"
	envNest   = "__"
)

// ProjectFiles are the config filenames looked up in the project root, in order.
var ProjectFiles = []string{"modlink.toml", ".modlink.toml"}

// LoadOptions selects where configuration comes from.
type LoadOptions struct {
	// ProjectRoot is the directory relative paths resolve against. Defaults
	// to the working directory.
	ProjectRoot string
	// ConfigFile, when set, replaces the project file lookup and must exist.
	ConfigFile string
	// NoProjectFile skips the project file entirely.
	NoProjectFile bool
	// Overrides are dotted keys applied last, typically from CLI flags.
	Overrides map[string]interface{}
}

// Load builds the effective configuration.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")

	root, err := projectRoot(opts.ProjectRoot)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. Project file
	var source string
	if !opts.NoProjectFile {
		source, err = findConfigFile(root, opts.ConfigFile)
		if err != nil {
			return nil, err
		}
	}
	if source != "" {
		if err := k.Load(file.Provider(source), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", source).
				WithDetail("path", source)
		}
		logger.Debug().Str("path", source).Msg("Loaded project config")
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Flag overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	cfg.ProjectRoot = root
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.absolutize()

	logger.Debug().
		Str("modules_dir", cfg.ModulesDir).
		Str("theme_root", cfg.ThemeRoot).
		Str("template_dest", cfg.Link.TemplateDest).
		Dur("window", cfg.Watch.Window).
		Msg("Configuration loaded")

	return &cfg, nil
}

// Default returns the embedded defaults resolved against projectRoot.
func Default(projectRoot string) (*Config, error) {
	return Load(LoadOptions{ProjectRoot: projectRoot, NoProjectFile: true})
}

// envKey maps MODLINK_WATCH__THEME_PATTERNS to watch.theme_patterns.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, envNest, ".")
}

func projectRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrConfigLoad, "cannot determine working directory")
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrConfigLoad, "cannot resolve project root %s", root)
	}
	return abs, nil
}

// findConfigFile returns the explicit file, or the first project file that
// exists, or "" when there is none.
func findConfigFile(root, explicit string) (string, error) {
	if explicit != "" {
		path := absJoin(root, explicit)
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not readable", path).
				WithDetail("path", path)
		}
		return path, nil
	}

	for _, name := range ProjectFiles {
		path := filepath.Join(root, name)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "cannot stat %s", path)
		}
	}
	return "", nil
}
