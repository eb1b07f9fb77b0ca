// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LogLevelDebug enables debug output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// Wildcard matches any action or resource type in a grant.
	Wildcard = "*"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrUnknownRole is returned when an identity references an undefined role.
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// UnknownRoleError reports an identity that references an undefined role.
	UnknownRoleError struct {
		Identity string
		Role     string
	}

	// InvalidConfigError collects every field error found by IsValid.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		Includes    []string `json:"includes" mapstructure:"includes"`
		DefaultMode string   `json:"default_mode" mapstructure:"default_mode"`
		Component   string   `json:"component" mapstructure:"component"`
		LogLevel    LogLevel `json:"log_level" mapstructure:"log_level"`

		Server ServerConfig `json:"server" mapstructure:"server"`
		Watch  WatchConfig  `json:"watch" mapstructure:"watch"`

		Roles      map[string][]Grant        `json:"roles" mapstructure:"roles"`
		Identities map[string]IdentityConfig `json:"identities" mapstructure:"identities"`

		// FilePath is the file the configuration was read from; empty for defaults.
		FilePath string `json:"-" mapstructure:"-"`
	}

	// ServerConfig configures the SSH payload server.
	ServerConfig struct {
		Host        string `json:"host" mapstructure:"host"`
		Port        int    `json:"port" mapstructure:"port"`
		HostKeyPath string `json:"host_key_path" mapstructure:"host_key_path"`
		MetricsAddr string `json:"metrics_addr" mapstructure:"metrics_addr"`
	}

	// WatchConfig configures recomposition on module file changes.
	WatchConfig struct {
		Enabled  bool          `json:"enabled" mapstructure:"enabled"`
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// Grant allows an action on a resource type in some modes.
	Grant struct {
		Action string   `json:"action" mapstructure:"action"`
		Type   string   `json:"type" mapstructure:"type"`
		Modes  []string `json:"modes,omitempty" mapstructure:"modes"`
	}

	// IdentityConfig maps a user to roles and SSH keys.
	IdentityConfig struct {
		Roles []string `json:"roles" mapstructure:"roles"`
		Keys  []string `json:"keys" mapstructure:"keys"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPaths: []string{"modules"},
		Includes:    []string{},
		DefaultMode: "draft",
		Component:   "CommandPalette",
		LogLevel:    LogLevelInfo,
		Server: ServerConfig{
			Host:        "localhost",
			Port:        23234,
			HostKeyPath: ".palette/ssh_host_ed25519",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
		Roles:      map[string][]Grant{},
		Identities: map[string]IdentityConfig{},
	}
}

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", string(e.Value))
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("identity %q references unknown role %q", e.Identity, e.Role)
}

// Unwrap returns ErrUnknownRole for errors.Is() compatibility.
func (e *UnknownRoleError) Unwrap() error { return ErrUnknownRole }

// Matches reports whether g allows action on resourceType in mode.
func (g Grant) Matches(action, resourceType, mode string) bool {
	if g.Action != Wildcard && g.Action != action {
		return false
	}
	if g.Type != Wildcard && g.Type != resourceType {
		return false
	}
	if len(g.Modes) == 0 {
		return true
	}
	for _, m := range g.Modes {
		if m == Wildcard || m == mode {
			return true
		}
	}
	return false
}

// IsValid checks constraints CUE cannot express across fields: identities
// must only reference defined roles.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.DefaultMode == "" {
		errs = append(errs, errors.New("default_mode must not be empty"))
	}
	for _, name := range sortedKeys(c.Identities) {
		for _, role := range c.Identities[name].Roles {
			if _, ok := c.Roles[strings.ToLower(role)]; !ok {
				errs = append(errs, &UnknownRoleError{Identity: name, Role: role})
			}
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns the sentinel and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
