// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/quranchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete quranchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Render  RenderConfig  `toml:"render" json:"render"`
	Reveal  RevealConfig  `toml:"reveal" json:"reveal"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig describes the chat service connection.
type ServerConfig struct {
	// URL is the base URL of the chat service.
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds each request. Answers come from an LLM, so the
	// default is generous.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries applies to idempotent requests only.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RateLimit is the client-side request rate in requests per second
	// (0 = unlimited).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// AuthConfig locates the bearer token.
type AuthConfig struct {
	// Token overrides the token file when set. Prefer QURANCHAT_TOKEN or the
	// token file over putting the token in the config.
	Token string `toml:"token" json:"token"`
	// TokenFile defaults to ~/.quranchat/token.
	TokenFile string `toml:"token_file" json:"token_file"`
	// WatchTokenFile resumes the TUI when a new token is written.
	WatchTokenFile bool `toml:"watch_token_file" json:"watch_token_file"`
}

// RenderConfig tunes the message renderer.
type RenderConfig struct {
	// ScriptRatioThreshold is the fraction of Arabic-script runes above
	// which a line is a script block.
	ScriptRatioThreshold float64 `toml:"script_ratio_threshold" json:"script_ratio_threshold"`
	// InlineScriptMax is the script rune count from which an embedded run
	// is displayed as its own block instead of inline.
	InlineScriptMax int `toml:"inline_script_max" json:"inline_script_max"`
}

// RevealConfig controls the typewriter reveal of new answers.
type RevealConfig struct {
	Enabled    bool `toml:"enabled" json:"enabled"`
	ChunkSize  int  `toml:"chunk_size" json:"chunk_size"`
	IntervalMs int  `toml:"interval_ms" json:"interval_ms"`
}

// StorageConfig controls the local transcript archive.
type StorageConfig struct {
	// ArchiveEnabled keeps a local copy of every loaded chat.
	ArchiveEnabled bool `toml:"archive_enabled" json:"archive_enabled"`
	// ArchivePath defaults to ~/.quranchat/archive.db.
	ArchivePath string `toml:"archive_path" json:"archive_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	// File defaults to ~/.quranchat/quranchat.log. The TUI always logs to a
	// file.
	File string `toml:"file" json:"file"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// ChatListLimit is the number of chats shown in the chat list.
	ChatListLimit int `toml:"chat_list_limit" json:"chat_list_limit"`
	// ShowThinking displays the model's reasoning under answers.
	ShowThinking bool `toml:"show_thinking" json:"show_thinking"`
	// ShowSources lists the citations the service used under answers.
	ShowSources bool `toml:"show_sources" json:"show_sources"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			URL:         "http://localhost:8000",
			TimeoutSecs: 90,
			MaxRetries:  3,
			RateLimit:   5,
			RateBurst:   5,
		},
		Auth: AuthConfig{
			WatchTokenFile: true,
		},
		Render: RenderConfig{
			ScriptRatioThreshold: 0.4,
			InlineScriptMax:      15,
		},
		Reveal: RevealConfig{
			Enabled:    true,
			ChunkSize:  3,
			IntervalMs: 20,
		},
		Storage: StorageConfig{
			ArchiveEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:         "auto",
			ChatListLimit: 50,
			ShowSources:   true,
		},
	}
}

// Timeout returns the request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// RevealInterval returns the reveal tick interval.
func (c *Config) RevealInterval() time.Duration {
	return time.Duration(c.Reveal.IntervalMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns ~/.quranchat.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quranchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return inConfigDir("config.json")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ResolvePaths fills the empty file locations with their defaults under the
// config directory.
func (c *Config) ResolvePaths() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if c.Auth.TokenFile == "" {
		c.Auth.TokenFile = filepath.Join(dir, "token")
	}
	if c.Storage.ArchivePath == "" {
		c.Storage.ArchivePath = filepath.Join(dir, "archive.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dir, "quranchat.log")
	}
	return nil
}

// ensureSecurePermissions tightens a config file to 0600 because it may hold
// a token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.quranchat/config.toml, or config.json when there is no TOML
// file, on top of the defaults, then applies environment overrides and
// validates. A missing file is not an error.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			break
		}
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}
	return finish(Default())
}

// LoadFromPath loads a TOML or JSON config file chosen by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg. Keys the file does not set keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ~/.quranchat/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with mode 0600.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# quranchat configuration file\n")
	buf.WriteString("# Generated by quranchat - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if u, err := url.Parse(c.Server.URL); err != nil {
		add("server.url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("server.url", "scheme must be http or https, got '%s'", u.Scheme)
	} else if u.Host == "" {
		add("server.url", "missing host")
	}
	if c.Server.TimeoutSecs <= 0 || c.Server.TimeoutSecs > 600 {
		add("server.timeout_secs", "must be between 1 and 600, got %d", c.Server.TimeoutSecs)
	}
	if c.Server.MaxRetries < 1 || c.Server.MaxRetries > 10 {
		add("server.max_retries", "must be between 1 and 10, got %d", c.Server.MaxRetries)
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "cannot be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		add("server.rate_burst", "must be at least 1 when rate_limit is set")
	}

	// Render
	if c.Render.ScriptRatioThreshold <= 0 || c.Render.ScriptRatioThreshold >= 1 {
		add("render.script_ratio_threshold", "must be between 0 and 1 (exclusive), got %g", c.Render.ScriptRatioThreshold)
	}
	if c.Render.InlineScriptMax < 1 {
		add("render.inline_script_max", "must be positive, got %d", c.Render.InlineScriptMax)
	}

	// Reveal
	if c.Reveal.ChunkSize < 1 {
		add("reveal.chunk_size", "must be positive, got %d", c.Reveal.ChunkSize)
	}
	if c.Reveal.IntervalMs < 1 || c.Reveal.IntervalMs > 1000 {
		add("reveal.interval_ms", "must be between 1 and 1000, got %d", c.Reveal.IntervalMs)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	// UI
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.ChatListLimit < 1 || c.UI.ChatListLimit > 500 {
		add("ui.chat_list_limit", "must be between 1 and 500, got %d", c.UI.ChatListLimit)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-valued fields that have no meaningful zero value.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	c.Server.URL = strings.TrimRight(c.Server.URL, "/")
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = d.Server.TimeoutSecs
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = d.Server.MaxRetries
	}
	if c.Render.ScriptRatioThreshold == 0 {
		c.Render.ScriptRatioThreshold = d.Render.ScriptRatioThreshold
	}
	if c.Render.InlineScriptMax == 0 {
		c.Render.InlineScriptMax = d.Render.InlineScriptMax
	}
	if c.Reveal.ChunkSize == 0 {
		c.Reveal.ChunkSize = d.Reveal.ChunkSize
	}
	if c.Reveal.IntervalMs == 0 {
		c.Reveal.IntervalMs = d.Reveal.IntervalMs
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.ChatListLimit == 0 {
		c.UI.ChatListLimit = d.UI.ChatListLimit
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - QURANCHAT_SERVER_URL: overrides server.url
//   - QURANCHAT_TOKEN: overrides auth.token
//   - QURANCHAT_LOG_LEVEL: overrides log.level
//   - QURANCHAT_REVEAL: "0"/"false" disables the typewriter reveal
//   - QURANCHAT_OFFLINE_ARCHIVE: "0"/"false" disables the local archive
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("QURANCHAT_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("QURANCHAT_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("QURANCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("QURANCHAT_REVEAL"); v != "" {
		c.Reveal.Enabled = parseBool(v)
	}
	if v := os.Getenv("QURANCHAT_OFFLINE_ARCHIVE"); v != "" {
		c.Storage.ArchiveEnabled = parseBool(v)
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns a value by its dotted TOML key, e.g. "reveal.chunk_size".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its dotted TOML key. String values are converted to
// the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section '%s'", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		idx := fieldByTag(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	return v, nil
}

func fieldByTag(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if strings.EqualFold(tag, name) {
			return i
		}
	}
	return -1
}

// setFieldValue sets a field from a value, converting strings as needed.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(s))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every settable key in dotted form, sorted.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration. Config has no reference-typed
// fields, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
