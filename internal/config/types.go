// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// FormatTarGz is a gzip-compressed tarball kit archive.
	FormatTarGz ArchiveFormat = ".tar.gz"
	// FormatTgz is the short-extension spelling of a gzip-compressed tarball.
	FormatTgz ArchiveFormat = ".tgz"
	// FormatZip is a zip kit archive.
	FormatZip ArchiveFormat = ".zip"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultManagerCommand is the dependency manager invoked when none is
	// configured. Matches the depmgr default; defined locally to avoid
	// coupling config to internal/depmgr.
	DefaultManagerCommand ManagerCommand = "composer"

	// versionPlaceholder is the token a registry URL template must carry so
	// the requested release can be substituted into it.
	versionPlaceholder = "{version}"
)

var (
	// ErrInvalidURLTemplate is the sentinel error wrapped by InvalidURLTemplateError.
	ErrInvalidURLTemplate = errors.New("invalid registry url template")
	// ErrInvalidArchiveFormat is returned when an ArchiveFormat value is not recognized.
	ErrInvalidArchiveFormat = errors.New("invalid archive format")
	// ErrInvalidReleaseVersion is returned when a ReleaseVersion value is not valid semver.
	ErrInvalidReleaseVersion = errors.New("invalid release version")
	// ErrInvalidManagerCommand is returned when a ManagerCommand value is whitespace-only.
	ErrInvalidManagerCommand = errors.New("invalid manager command")
	// ErrInvalidInstallTimeout is returned when an InstallTimeout value does not parse as a duration.
	ErrInvalidInstallTimeout = errors.New("invalid install timeout")
	// ErrInvalidMachineIP is returned when a MachineIP value is not a valid IP address.
	ErrInvalidMachineIP = errors.New("invalid machine ip")
	// ErrInvalidTemplateFilePath is returned when a TemplateFilePath value is whitespace-only.
	ErrInvalidTemplateFilePath = errors.New("invalid template file path")
	// ErrInvalidManifestURL is returned when a ManifestURL value is not an http(s) URL.
	ErrInvalidManifestURL = errors.New("invalid manifest url")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidRegistryConfig is the sentinel error wrapped by InvalidRegistryConfigError.
	ErrInvalidRegistryConfig = errors.New("invalid registry config")
	// ErrInvalidManagerConfig is the sentinel error wrapped by InvalidManagerConfigError.
	ErrInvalidManagerConfig = errors.New("invalid manager config")
	// ErrInvalidMachineConfig is the sentinel error wrapped by InvalidMachineConfigError.
	ErrInvalidMachineConfig = errors.New("invalid machine config")
	// ErrInvalidSkeletonsConfig is the sentinel error wrapped by InvalidSkeletonsConfigError.
	ErrInvalidSkeletonsConfig = errors.New("invalid skeletons config")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// URLTemplate is the registry download URL with a {version} placeholder,
	// e.g. "https://get.keel.dev/kit/keel-{version}.tar.gz".
	URLTemplate string

	// InvalidURLTemplateError is returned when a URLTemplate value is empty
	// or lacks the {version} placeholder. It wraps ErrInvalidURLTemplate
	// for errors.Is() compatibility.
	InvalidURLTemplateError struct {
		Value URLTemplate
	}

	// ArchiveFormat is an archive file extension the registry offers kits in.
	ArchiveFormat string

	// InvalidArchiveFormatError is returned when an ArchiveFormat value is not recognized.
	// It wraps ErrInvalidArchiveFormat for errors.Is() compatibility.
	InvalidArchiveFormatError struct {
		Value ArchiveFormat
	}

	// ReleaseVersion is a kit release identifier, e.g. "v2.0". The zero
	// value ("") is valid and means "no pinned release"; non-zero values
	// must be valid semver after "v"-prefix normalization.
	ReleaseVersion string

	// InvalidReleaseVersionError is returned when a ReleaseVersion value is
	// not valid semver. It wraps ErrInvalidReleaseVersion for errors.Is().
	InvalidReleaseVersionError struct {
		Value ReleaseVersion
	}

	// ManagerCommand is the dependency-manager command line, parsed with
	// shell word-splitting rules at invocation time. A valid command must
	// be non-empty and not whitespace-only.
	ManagerCommand string

	// InvalidManagerCommandError is returned when a ManagerCommand value is
	// empty or whitespace-only. It wraps ErrInvalidManagerCommand for errors.Is().
	InvalidManagerCommandError struct {
		Value ManagerCommand
	}

	// InstallTimeout is the deadline for the dependency-install stage, in
	// Go duration syntax (e.g. "10m"). The zero value ("") is valid and
	// means "no deadline".
	InstallTimeout string

	// InvalidInstallTimeoutError is returned when an InstallTimeout value
	// does not parse as a non-negative duration. It wraps
	// ErrInvalidInstallTimeout for errors.Is() compatibility.
	InvalidInstallTimeoutError struct {
		Value InstallTimeout
	}

	// MachineIP is the private-network address written into generated
	// machine configs. A valid value must parse as an IP address.
	MachineIP string

	// InvalidMachineIPError is returned when a MachineIP value does not
	// parse as an IP address. It wraps ErrInvalidMachineIP for errors.Is().
	InvalidMachineIPError struct {
		Value MachineIP
	}

	// TemplateFilePath is a filesystem path to a custom machine-config
	// template. The zero value ("") is valid and means "use the embedded
	// template". Non-zero values must not be whitespace-only.
	TemplateFilePath string

	// InvalidTemplateFilePathError is returned when a TemplateFilePath
	// value is non-empty but whitespace-only.
	InvalidTemplateFilePathError struct {
		Value TemplateFilePath
	}

	// ManifestURL is the location of the skeleton manifest. The zero value
	// ("") is valid and disables the skeleton commands; non-zero values
	// must be absolute http(s) URLs.
	ManifestURL string

	// InvalidManifestURLError is returned when a ManifestURL value is not
	// an absolute http(s) URL. It wraps ErrInvalidManifestURL for errors.Is().
	InvalidManifestURLError struct {
		Value ManifestURL
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidRegistryConfigError is returned when a RegistryConfig has invalid fields.
	// It wraps ErrInvalidRegistryConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidRegistryConfigError struct {
		FieldErrors []error
	}

	// InvalidManagerConfigError is returned when a ManagerConfig has invalid fields.
	// It wraps ErrInvalidManagerConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidManagerConfigError struct {
		FieldErrors []error
	}

	// InvalidMachineConfigError is returned when a MachineConfig has invalid fields.
	// It wraps ErrInvalidMachineConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidMachineConfigError struct {
		FieldErrors []error
	}

	// InvalidSkeletonsConfigError is returned when a SkeletonsConfig has invalid fields.
	// It wraps ErrInvalidSkeletonsConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidSkeletonsConfigError struct {
		FieldErrors []error
	}

	// InvalidUIConfigError is returned when a UIConfig has invalid fields.
	// It wraps ErrInvalidUIConfig for errors.Is() compatibility and collects
	// field-level validation errors.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// RegistryConfig describes where kit archives are downloaded from.
	RegistryConfig struct {
		// URLTemplate is the download URL with a {version} placeholder.
		URLTemplate URLTemplate `json:"url_template" mapstructure:"url_template"`
		// DefaultRelease pins the kit release installed when --release is omitted.
		DefaultRelease ReleaseVersion `json:"default_release,omitempty" mapstructure:"default_release"`
		// Formats lists the archive formats the registry offers a release in.
		Formats []ArchiveFormat `json:"formats" mapstructure:"formats"`
	}

	// ManagerConfig configures the dependency-manager invocation.
	ManagerConfig struct {
		// Command is the manager command line; "install --optimize" is appended.
		Command ManagerCommand `json:"command" mapstructure:"command"`
		// Timeout bounds the dependency-install stage ("" = no deadline).
		Timeout InstallTimeout `json:"timeout,omitempty" mapstructure:"timeout"`
	}

	// MachineConfig holds defaults for generated machine-config files.
	MachineConfig struct {
		// IP is the default private-network address.
		IP MachineIP `json:"ip" mapstructure:"ip"`
		// Template optionally points at a custom machine-config template.
		Template TemplateFilePath `json:"template,omitempty" mapstructure:"template"`
	}

	// SkeletonsConfig configures the skeleton sub-template registry.
	SkeletonsConfig struct {
		// ManifestURL locates the TOML manifest of available skeletons.
		ManifestURL ManifestURL `json:"manifest_url" mapstructure:"manifest_url"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
		// Interactive allows prompting for missing values on a TTY
		Interactive bool `json:"interactive" mapstructure:"interactive"`
	}

	// Config holds the application configuration.
	Config struct {
		// Registry describes where kit archives come from.
		Registry RegistryConfig `json:"registry" mapstructure:"registry"`
		// Manager configures the dependency-manager invocation.
		Manager ManagerConfig `json:"manager" mapstructure:"manager"`
		// Machine holds machine-config generation defaults.
		Machine MachineConfig `json:"machine" mapstructure:"machine"`
		// Skeletons configures the skeleton registry.
		Skeletons SkeletonsConfig `json:"skeletons" mapstructure:"skeletons"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}
)

// flattenFieldErrors walks the nested FieldErrors of a validation error tree
// and returns the leaves, so callers can report the exact offending fields
// instead of aggregate counts.
func flattenFieldErrors(errs []error) []error {
	var leaves []error
	for _, err := range errs {
		if carrier, ok := err.(interface{ fieldErrors() []error }); ok {
			leaves = append(leaves, flattenFieldErrors(carrier.fieldErrors())...)
			continue
		}
		leaves = append(leaves, err)
	}
	return leaves
}

func (e *InvalidRegistryConfigError) fieldErrors() []error  { return e.FieldErrors }
func (e *InvalidManagerConfigError) fieldErrors() []error   { return e.FieldErrors }
func (e *InvalidMachineConfigError) fieldErrors() []error   { return e.FieldErrors }
func (e *InvalidSkeletonsConfigError) fieldErrors() []error { return e.FieldErrors }
func (e *InvalidUIConfigError) fieldErrors() []error        { return e.FieldErrors }
func (e *InvalidConfigError) fieldErrors() []error          { return e.FieldErrors }

// NormalizeRelease ensures the version string has a "v" prefix as required
// by the semver package and returns it as a ReleaseVersion. The result is
// not guaranteed to be valid; call IsValid afterwards.
func NormalizeRelease(v string) ReleaseVersion {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		trimmed = "v" + trimmed
	}
	return ReleaseVersion(trimmed)
}

// IsValid returns whether the RegistryConfig has valid fields.
// It delegates to URLTemplate.IsValid(), DefaultRelease.IsValid(), and each
// Formats entry's IsValid(), and additionally rejects duplicate formats
// (a constraint the CUE schema cannot express).
func (c RegistryConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.URLTemplate.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.DefaultRelease.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	seen := make(map[ArchiveFormat]int)
	for i, format := range c.Formats {
		if valid, fieldErrs := format.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
		if firstIdx, exists := seen[format]; exists {
			errs = append(errs, fmt.Errorf("registry.formats[%d]: duplicate format %q (same as registry.formats[%d])", i, format, firstIdx))
			continue
		}
		seen[format] = i
	}
	if len(errs) > 0 {
		return false, []error{&InvalidRegistryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRegistryConfigError.
func (e *InvalidRegistryConfigError) Error() string {
	return fmt.Sprintf("invalid registry config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidRegistryConfig for errors.Is() compatibility.
func (e *InvalidRegistryConfigError) Unwrap() error { return ErrInvalidRegistryConfig }

// IsValid returns whether the ManagerConfig has valid fields.
// It delegates to Command.IsValid() and Timeout.IsValid().
func (c ManagerConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Command.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Timeout.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidManagerConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidManagerConfigError.
func (e *InvalidManagerConfigError) Error() string {
	return fmt.Sprintf("invalid manager config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidManagerConfig for errors.Is() compatibility.
func (e *InvalidManagerConfigError) Unwrap() error { return ErrInvalidManagerConfig }

// IsValid returns whether the MachineConfig has valid fields.
// It delegates to IP.IsValid() and Template.IsValid().
func (c MachineConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.IP.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Template.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidMachineConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidMachineConfigError.
func (e *InvalidMachineConfigError) Error() string {
	return fmt.Sprintf("invalid machine config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidMachineConfig for errors.Is() compatibility.
func (e *InvalidMachineConfigError) Unwrap() error { return ErrInvalidMachineConfig }

// IsValid returns whether the SkeletonsConfig has valid fields.
// It delegates to ManifestURL.IsValid().
func (c SkeletonsConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ManifestURL.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSkeletonsConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSkeletonsConfigError.
func (e *InvalidSkeletonsConfigError) Error() string {
	return fmt.Sprintf("invalid skeletons config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidSkeletonsConfig for errors.Is() compatibility.
func (e *InvalidSkeletonsConfigError) Unwrap() error { return ErrInvalidSkeletonsConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidUIConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return fmt.Sprintf("invalid UI config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidUIConfig for errors.Is() compatibility.
func (e *InvalidUIConfigError) Unwrap() error { return ErrInvalidUIConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to Registry.IsValid(), Manager.IsValid(), Machine.IsValid(),
// Skeletons.IsValid(), and UI.IsValid().
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Registry.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Manager.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Machine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Skeletons.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// String returns the string representation of the URLTemplate.
func (t URLTemplate) String() string { return string(t) }

// IsValid returns whether the URLTemplate is valid.
// A valid template must be non-empty and contain the {version} placeholder.
func (t URLTemplate) IsValid() (bool, []error) {
	if strings.TrimSpace(string(t)) == "" || !strings.Contains(string(t), versionPlaceholder) {
		return false, []error{&InvalidURLTemplateError{Value: t}}
	}
	return true, nil
}

// Error implements the error interface for InvalidURLTemplateError.
func (e *InvalidURLTemplateError) Error() string {
	return fmt.Sprintf("invalid registry url template %q: must be non-empty and contain %q", e.Value, versionPlaceholder)
}

// Unwrap returns ErrInvalidURLTemplate for errors.Is() compatibility.
func (e *InvalidURLTemplateError) Unwrap() error { return ErrInvalidURLTemplate }

// String returns the string representation of the ArchiveFormat.
func (f ArchiveFormat) String() string { return string(f) }

// IsValid returns whether the ArchiveFormat is one of the supported archive
// formats, and a list of validation errors if it is not.
func (f ArchiveFormat) IsValid() (bool, []error) {
	switch f {
	case FormatTarGz, FormatTgz, FormatZip:
		return true, nil
	default:
		return false, []error{&InvalidArchiveFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidArchiveFormatError.
func (e *InvalidArchiveFormatError) Error() string {
	return fmt.Sprintf("invalid archive format %q (valid: .tar.gz, .tgz, .zip)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidArchiveFormatError) Unwrap() error { return ErrInvalidArchiveFormat }

// String returns the string representation of the ReleaseVersion.
func (v ReleaseVersion) String() string { return string(v) }

// IsValid returns whether the ReleaseVersion is valid.
// The zero value ("") is valid (means "no pinned release").
// Non-zero values must be valid semver after "v"-prefix normalization.
func (v ReleaseVersion) IsValid() (bool, []error) {
	if v == "" {
		return true, nil
	}
	if !semver.IsValid(string(NormalizeRelease(string(v)))) {
		return false, []error{&InvalidReleaseVersionError{Value: v}}
	}
	return true, nil
}

// Error implements the error interface for InvalidReleaseVersionError.
func (e *InvalidReleaseVersionError) Error() string {
	return fmt.Sprintf("invalid release version %q: must be a semantic version like \"v2.0\"", e.Value)
}

// Unwrap returns ErrInvalidReleaseVersion for errors.Is() compatibility.
func (e *InvalidReleaseVersionError) Unwrap() error { return ErrInvalidReleaseVersion }

// String returns the string representation of the ManagerCommand.
func (m ManagerCommand) String() string { return string(m) }

// IsValid returns whether the ManagerCommand is valid.
// A valid command must be non-empty and not whitespace-only; word-splitting
// correctness is checked at invocation time.
func (m ManagerCommand) IsValid() (bool, []error) {
	if strings.TrimSpace(string(m)) == "" {
		return false, []error{&InvalidManagerCommandError{Value: m}}
	}
	return true, nil
}

// Error implements the error interface for InvalidManagerCommandError.
func (e *InvalidManagerCommandError) Error() string {
	return fmt.Sprintf("invalid manager command %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidManagerCommand for errors.Is() compatibility.
func (e *InvalidManagerCommandError) Unwrap() error { return ErrInvalidManagerCommand }

// String returns the string representation of the InstallTimeout.
func (t InstallTimeout) String() string { return string(t) }

// Duration returns the parsed deadline, or zero for the empty value.
func (t InstallTimeout) Duration() (time.Duration, error) {
	if t == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(string(t))
	if err != nil || d < 0 {
		return 0, &InvalidInstallTimeoutError{Value: t}
	}
	return d, nil
}

// IsValid returns whether the InstallTimeout is valid.
// The zero value ("") is valid (means "no deadline").
// Non-zero values must parse as a non-negative Go duration.
func (t InstallTimeout) IsValid() (bool, []error) {
	if _, err := t.Duration(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidInstallTimeoutError.
func (e *InvalidInstallTimeoutError) Error() string {
	return fmt.Sprintf("invalid install timeout %q: must be a non-negative Go duration like \"10m\"", e.Value)
}

// Unwrap returns ErrInvalidInstallTimeout for errors.Is() compatibility.
func (e *InvalidInstallTimeoutError) Unwrap() error { return ErrInvalidInstallTimeout }

// String returns the string representation of the MachineIP.
func (ip MachineIP) String() string { return string(ip) }

// IsValid returns whether the MachineIP parses as an IP address.
func (ip MachineIP) IsValid() (bool, []error) {
	if _, err := netip.ParseAddr(string(ip)); err != nil {
		return false, []error{&InvalidMachineIPError{Value: ip}}
	}
	return true, nil
}

// Error implements the error interface for InvalidMachineIPError.
func (e *InvalidMachineIPError) Error() string {
	return fmt.Sprintf("invalid machine ip %q: must be a valid IP address", e.Value)
}

// Unwrap returns ErrInvalidMachineIP for errors.Is() compatibility.
func (e *InvalidMachineIPError) Unwrap() error { return ErrInvalidMachineIP }

// String returns the string representation of the TemplateFilePath.
func (p TemplateFilePath) String() string { return string(p) }

// IsValid returns whether the TemplateFilePath is valid.
// The zero value ("") is valid (means "use the embedded template").
// Non-zero values must not be whitespace-only.
func (p TemplateFilePath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidTemplateFilePathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidTemplateFilePathError.
func (e *InvalidTemplateFilePathError) Error() string {
	return fmt.Sprintf("invalid template file path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidTemplateFilePath for errors.Is() compatibility.
func (e *InvalidTemplateFilePathError) Unwrap() error { return ErrInvalidTemplateFilePath }

// String returns the string representation of the ManifestURL.
func (u ManifestURL) String() string { return string(u) }

// IsValid returns whether the ManifestURL is valid.
// The zero value ("") is valid (disables the skeleton commands).
// Non-zero values must be absolute http(s) URLs.
func (u ManifestURL) IsValid() (bool, []error) {
	if u == "" {
		return true, nil
	}
	parsed, err := url.Parse(string(u))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false, []error{&InvalidManifestURLError{Value: u}}
	}
	return true, nil
}

// Error implements the error interface for InvalidManifestURLError.
func (e *InvalidManifestURLError) Error() string {
	return fmt.Sprintf("invalid manifest url %q: must be an absolute http(s) URL", e.Value)
}

// Unwrap returns ErrInvalidManifestURL for errors.Is() compatibility.
func (e *InvalidManifestURLError) Unwrap() error { return ErrInvalidManifestURL }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			URLTemplate:    "https://get.keel.dev/kit/keel-{version}.tar.gz",
			DefaultRelease: "", // Install requires an explicit --release when unset
			Formats:        []ArchiveFormat{FormatTarGz},
		},
		Manager: ManagerConfig{
			Command: DefaultManagerCommand,
			Timeout: "", // No deadline
		},
		Machine: MachineConfig{
			IP:       "192.168.56.56",
			Template: "", // Will use the embedded template if empty
		},
		Skeletons: SkeletonsConfig{
			ManifestURL: "https://get.keel.dev/skeletons.toml",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
			Interactive: true,
		},
	}
}
