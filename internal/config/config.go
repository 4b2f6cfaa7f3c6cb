// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"keel-cli/internal/issue"
	"keel-cli/internal/platform"
	"keel-cli/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "keel"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// envPrefix namespaces environment overrides, e.g. KEEL_MANAGER_COMMAND.
	envPrefix = "KEEL"
)

// ErrConfigExists is returned by CreateDefaultConfig when a config file is
// already present and force is false.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the keel configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("registry.url_template", defaults.Registry.URLTemplate)
	v.SetDefault("registry.default_release", defaults.Registry.DefaultRelease)
	v.SetDefault("registry.formats", defaults.Registry.Formats)
	v.SetDefault("manager.command", defaults.Manager.Command)
	v.SetDefault("manager.timeout", defaults.Manager.Timeout)
	v.SetDefault("machine.ip", defaults.Machine.IP)
	v.SetDefault("machine.template", defaults.Machine.Template)
	v.SetDefault("skeletons.manifest_url", defaults.Skeletons.ManifestURL)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.interactive", defaults.UI.Interactive)

	// Environment overrides: KEEL_MANAGER_COMMAND, KEEL_MACHINE_IP, ...
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Run 'keel init' to create a default configuration").
				WithCode(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithCode(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		// Get config directory
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		// Try to load the CUE config file; missing file means defaults.
		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(cuePath).
					WithSuggestion("Check that the file contains valid CUE syntax").
					WithSuggestion("Verify the configuration values match the expected schema").
					WithSuggestion("Run 'keel init --force' to restore the default configuration").
					WithCode(issue.ConfigLoadFailedId).
					Wrap(err).
					BuildError()
			}
			resolvedPath = cuePath
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate constraints that CUE cannot express: IP syntax, duration
	// syntax, release-version syntax, duplicate formats.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Fix the reported fields in config.cue").
			WithSuggestion("Run 'keel init --force' to restore the default configuration").
			WithCode(issue.ConfigLoadFailedId).
			Wrap(errors.Join(flattenFieldErrors(errs)...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: the config is decoded to map[string]any (not a struct) so it can be
// merged into Viper's config map with Concrete(false), leaving omitted fields
// to the defaults and environment overrides.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	// Read CUE file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Check file size using cueutil
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	// Parse with CUE
	ctx := cuecontext.New()

	// Compile the schema
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	// Compile the user's config file
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Decode to Go map
	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig writes a commented default config file into the config
// directory and returns its path. When the file already exists and force is
// false it returns the path together with ErrConfigExists.
func CreateDefaultConfig(force bool) (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if !force {
		if _, err := os.Stat(cfgPath); err == nil {
			return cfgPath, fmt.Errorf("%w: %s", ErrConfigExists, cfgPath)
		}
	}

	cueContent := GenerateCUE(DefaultConfig())

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
// Optional fields that carry their zero value are emitted as comments so the
// written file doubles as documentation.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// keel configuration file.\n")
	sb.WriteString("// Validated against the #Config schema shipped with keel.\n")

	// Registry
	sb.WriteString("\nregistry: {\n")
	sb.WriteString(fmt.Sprintf("\turl_template: %q\n", cfg.Registry.URLTemplate))
	if cfg.Registry.DefaultRelease != "" {
		sb.WriteString(fmt.Sprintf("\tdefault_release: %q\n", cfg.Registry.DefaultRelease))
	} else {
		sb.WriteString("\t// default_release: \"v2.0\"\n")
	}
	if len(cfg.Registry.Formats) > 0 {
		sb.WriteString("\tformats: [")
		for i, format := range cfg.Registry.Formats {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%q", format))
		}
		sb.WriteString("]\n")
	}
	sb.WriteString("}\n")

	// Dependency manager
	sb.WriteString("\nmanager: {\n")
	sb.WriteString(fmt.Sprintf("\tcommand: %q\n", cfg.Manager.Command))
	if cfg.Manager.Timeout != "" {
		sb.WriteString(fmt.Sprintf("\ttimeout: %q\n", cfg.Manager.Timeout))
	} else {
		sb.WriteString("\t// timeout: \"10m\"\n")
	}
	sb.WriteString("}\n")

	// Machine config defaults
	sb.WriteString("\nmachine: {\n")
	sb.WriteString(fmt.Sprintf("\tip: %q\n", cfg.Machine.IP))
	if cfg.Machine.Template != "" {
		sb.WriteString(fmt.Sprintf("\ttemplate: %q\n", cfg.Machine.Template))
	} else {
		sb.WriteString("\t// template: \"/path/to/machine.yaml.tmpl\"\n")
	}
	sb.WriteString("}\n")

	// Skeleton registry
	sb.WriteString("\nskeletons: {\n")
	sb.WriteString(fmt.Sprintf("\tmanifest_url: %q\n", cfg.Skeletons.ManifestURL))
	sb.WriteString("}\n")

	// UI config
	sb.WriteString("\nui: {\n")
	sb.WriteString(fmt.Sprintf("\tcolor_scheme: %q\n", cfg.UI.ColorScheme))
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString(fmt.Sprintf("\tinteractive: %v\n", cfg.UI.Interactive))
	sb.WriteString("}\n")

	return sb.String()
}
