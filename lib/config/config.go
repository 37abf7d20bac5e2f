// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/nodestrap/lib/bootcontext"
	"github.com/bureau-foundation/nodestrap/lib/platform"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "NODESTRAP_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete nodestrap configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Target     TargetConfig             `yaml:"target"`
	Bootstrap  bootcontext.TargetConfig `yaml:"bootstrap"`
	Session    SessionConfig            `yaml:"session"`
	Completion CompletionConfig         `yaml:"completion"`
	History    HistoryConfig            `yaml:"history"`
	Template   TemplateConfig           `yaml:"template"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the sections an environment may replace.
type Overrides struct {
	Session    *SessionConfig    `yaml:"session,omitempty"`
	Completion *CompletionConfig `yaml:"completion,omitempty"`
	History    *HistoryConfig    `yaml:"history,omitempty"`
	Template   *TemplateConfig   `yaml:"template,omitempty"`
}

// TargetConfig addresses the node being bootstrapped.
type TargetConfig struct {
	// Host is "host" or "host:port".
	Host string `yaml:"host"`
	User string `yaml:"user"`

	// Password is used when set. PasswordEnv names an environment
	// variable holding it instead. With neither set and no private
	// key, the CLI prompts on a terminal.
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`

	PrivateKeyFile string `yaml:"private_key_file"`
	// PrivateKeyPassphraseEnv names the variable holding the key's
	// passphrase, if the key is encrypted.
	PrivateKeyPassphraseEnv string `yaml:"private_key_passphrase_env"`

	KnownHostsFiles       []string `yaml:"known_hosts_files"`
	InsecureIgnoreHostKey bool     `yaml:"insecure_ignore_host_key"`

	// Platform is "os/arch" or "os". Empty means the platform nodestrap
	// runs on, which only makes sense for local runs.
	Platform string `yaml:"platform"`
}

// SessionConfig configures the remote transport.
type SessionConfig struct {
	// DialTimeout bounds connect plus handshake. Default: 30s
	DialTimeout string `yaml:"dial_timeout"`

	// CommandTimeout bounds each submitted unit. Default: 10m
	CommandTimeout string `yaml:"command_timeout"`

	// Shell selects how the artifact is probed on the target: "posix"
	// or "powershell". Empty picks by target OS.
	Shell string `yaml:"shell"`
}

// CompletionConfig configures waiting for and verifying the artifact.
type CompletionConfig struct {
	// Interval between artifact checks. Default: 2s
	Interval string `yaml:"interval"`

	// Deadline for the artifact to appear after the last unit. Default: 5m
	Deadline string `yaml:"deadline"`

	// CleanArtifact removes a stale artifact before running.
	CleanArtifact bool `yaml:"clean_artifact"`

	// Checksum, when set, is the expected digest of the artifact in
	// hex. ChecksumAlgorithm is sha256 (default) or blake3.
	Checksum          string `yaml:"checksum"`
	ChecksumAlgorithm string `yaml:"checksum_algorithm"`
}

// HistoryConfig configures the attempt history database.
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`

	// Compression for stored unit output: zstd (default), lz4, none.
	Compression string `yaml:"compression"`

	// RetainPerTarget bounds stored attempts per target. 0 keeps all.
	RetainPerTarget int `yaml:"retain_per_target"`
}

// TemplateConfig selects the bootstrap template.
type TemplateConfig struct {
	// Name is a built-in template name or a path to a template file.
	// Empty picks the built-in for the target platform.
	Name string `yaml:"name"`

	// Only keeps the named section kinds and replaces the rest with
	// no-ops.
	Only []string `yaml:"only"`
}

var (
	shells       = []string{"posix", "powershell"}
	compressions = []string{"zstd", "lz4", "none"}
	algorithms   = []string{"sha256", "blake3"}
)

// Default returns the configuration a file is loaded on top of.
func Default() *Config {
	return &Config{
		Environment: Development,
		Session: SessionConfig{
			DialTimeout:    "30s",
			CommandTimeout: "10m",
		},
		Completion: CompletionConfig{
			Interval:          "2s",
			Deadline:          "5m",
			ChecksumAlgorithm: "sha256",
		},
		History: HistoryConfig{
			Path:            "${NODESTRAP_STATE:-${HOME}/.local/state/nodestrap}/history.db",
			Compression:     "zstd",
			RetainPerTarget: 100,
		},
	}
}

// Load loads the file named by NODESTRAP_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your nodestrap.yaml, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the matching
// environment section, and expands variables in local paths. It does
// not validate; call Validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse is LoadFile for configuration already in memory. Unknown keys
// are an error, so a misspelled credential field is not silently
// ignored.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Session != nil {
		setIfNonEmpty(&c.Session.DialTimeout, overrides.Session.DialTimeout)
		setIfNonEmpty(&c.Session.CommandTimeout, overrides.Session.CommandTimeout)
		setIfNonEmpty(&c.Session.Shell, overrides.Session.Shell)
	}

	if overrides.Completion != nil {
		setIfNonEmpty(&c.Completion.Interval, overrides.Completion.Interval)
		setIfNonEmpty(&c.Completion.Deadline, overrides.Completion.Deadline)
		// Bools always apply from an override section.
		c.Completion.CleanArtifact = overrides.Completion.CleanArtifact
		setIfNonEmpty(&c.Completion.Checksum, overrides.Completion.Checksum)
		setIfNonEmpty(&c.Completion.ChecksumAlgorithm, overrides.Completion.ChecksumAlgorithm)
	}

	if overrides.History != nil {
		c.History.Disabled = overrides.History.Disabled
		setIfNonEmpty(&c.History.Path, overrides.History.Path)
		setIfNonEmpty(&c.History.Compression, overrides.History.Compression)
		if overrides.History.RetainPerTarget != 0 {
			c.History.RetainPerTarget = overrides.History.RetainPerTarget
		}
	}

	if overrides.Template != nil {
		setIfNonEmpty(&c.Template.Name, overrides.Template.Name)
		if len(overrides.Template.Only) > 0 {
			c.Template.Only = overrides.Template.Only
		}
	}
}

func setIfNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} patterns in paths read on this
// machine. Target-side paths are not touched.
func (c *Config) expandVariables() {
	c.History.Path = expandVars(c.History.Path)
	c.Target.PrivateKeyFile = expandVars(c.Target.PrivateKeyFile)
	for i, path := range c.Target.KnownHostsFiles {
		c.Target.KnownHostsFiles[i] = expandVars(path)
	}
	c.Bootstrap.ValidationKeyFile = expandVars(c.Bootstrap.ValidationKeyFile)
	c.Bootstrap.SecretFile = expandVars(c.Bootstrap.SecretFile)
	c.Bootstrap.SecretAgeIdentityFile = expandVars(c.Bootstrap.SecretAgeIdentityFile)
	c.Bootstrap.ConfigContentFile = expandVars(c.Bootstrap.ConfigContentFile)
	c.Template.Name = expandVars(c.Template.Name)
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. A default may itself
// contain ${VAR} references.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return expandVars(parts[2])
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Environment {
	case Development, Staging, Production:
	default:
		add("invalid environment: %q", c.Environment)
	}

	if c.Target.Platform != "" {
		if _, err := platform.Parse(c.Target.Platform); err != nil {
			add("target.platform: %v", err)
		}
	}
	if c.Target.Password != "" && c.Target.PasswordEnv != "" {
		add("target.password and target.password_env are mutually exclusive")
	}
	if c.Environment == Production && c.Target.InsecureIgnoreHostKey {
		add("target.insecure_ignore_host_key is not allowed in production")
	}

	for _, field := range []struct {
		name, value string
	}{
		{"session.dial_timeout", c.Session.DialTimeout},
		{"session.command_timeout", c.Session.CommandTimeout},
		{"completion.interval", c.Completion.Interval},
		{"completion.deadline", c.Completion.Deadline},
	} {
		if _, err := parsePositiveDuration(field.value); err != nil {
			add("%s: %v", field.name, err)
		}
	}

	if c.Session.Shell != "" && !slices.Contains(shells, c.Session.Shell) {
		add("session.shell must be one of: %v", shells)
	}
	if !slices.Contains(algorithms, c.Completion.ChecksumAlgorithm) {
		add("completion.checksum_algorithm must be one of: %v", algorithms)
	}

	if !c.History.Disabled {
		if c.History.Path == "" {
			add("history.path is required unless history.disabled is set")
		}
		if !slices.Contains(compressions, c.History.Compression) {
			add("history.compression must be one of: %v", compressions)
		}
		if c.History.RetainPerTarget < 0 {
			add("history.retain_per_target must not be negative")
		}
	}

	return errors.Join(errs...)
}

func parsePositiveDuration(value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return duration, nil
}

// mustDuration is for accessors called after Validate.
func mustDuration(value string) time.Duration {
	duration, err := parsePositiveDuration(value)
	if err != nil {
		panic("config: accessor called on unvalidated duration " + value)
	}
	return duration
}

// DialTimeoutDuration returns session.dial_timeout. Validate first.
func (s SessionConfig) DialTimeoutDuration() time.Duration { return mustDuration(s.DialTimeout) }

// CommandTimeoutDuration returns session.command_timeout. Validate first.
func (s SessionConfig) CommandTimeoutDuration() time.Duration {
	return mustDuration(s.CommandTimeout)
}

// IntervalDuration returns completion.interval. Validate first.
func (c CompletionConfig) IntervalDuration() time.Duration { return mustDuration(c.Interval) }

// DeadlineDuration returns completion.deadline. Validate first.
func (c CompletionConfig) DeadlineDuration() time.Duration { return mustDuration(c.Deadline) }

// ResolvePassword returns the configured password, reading
// PasswordEnv when that is the configured source.
func (t TargetConfig) ResolvePassword(getenv func(string) string) string {
	if t.Password != "" {
		return t.Password
	}
	if t.PasswordEnv != "" {
		return getenv(t.PasswordEnv)
	}
	return ""
}
