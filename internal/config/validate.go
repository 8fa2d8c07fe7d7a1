package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Known backend chef styles and the UI labels that map onto them.
var (
	validChefStyles = []string{"pro_chef", "home_cook", "adventurous_chef"}
	chefStyleLabels = []string{"Classic Pro Chef", "Sweet Home Chef", "Snarky Fun Chef", "Pro Chef", "Home Cook"}
)

// requiredEndpoints must resolve to a path for the widget to work.
var requiredEndpoints = []string{EndpointChat, EndpointModifyRecipe, EndpointPairings, EndpointUploadRecipe}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue
	add := func(path, format string, args ...any) {
		issues = append(issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// Backend validation
	if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("backend.baseUrl", "must be an absolute http(s) URL, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		add("backend.timeoutSeconds", "must not be negative, got %d", cfg.Backend.TimeoutSeconds)
	}
	for _, key := range requiredEndpoints {
		if cfg.Backend.Endpoints[key] == "" {
			add("backend.endpoints."+key, "endpoint path is required")
		}
	}
	for key, path := range cfg.Backend.Endpoints {
		if path != "" && !strings.HasPrefix(path, "/") {
			add("backend.endpoints."+key, "path must start with /, got %q", path)
		}
	}

	// Widget validation
	if s := cfg.Widget.ChefStyle; s != "" && !slices.Contains(validChefStyles, s) && !slices.Contains(chefStyleLabels, s) {
		add("widget.chefStyle", "must be one of %v or a known label, got %q", validChefStyles, s)
	}
	if cfg.Widget.ErrorResetSeconds < 0 {
		add("widget.errorResetSeconds", "must not be negative, got %d", cfg.Widget.ErrorResetSeconds)
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		add("gateway.port", "port must be 0-65535, got %d", cfg.Gateway.Port)
	}
	validBinds := []string{"auto", "lan", "loopback", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		add("gateway.bind", "must be one of %v, got %q", validBinds, cfg.Gateway.Bind)
	}
	validAuthModes := []string{"none", "token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		add("gateway.auth.mode", "must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode)
	}
	if cfg.Gateway.TLS.Enabled && (cfg.Gateway.TLS.CertPath == "" || cfg.Gateway.TLS.KeyPath == "") {
		add("gateway.tls", "certPath and keyPath are required when TLS is enabled")
	}

	// Store validation
	validDrivers := []string{"sqlite", "memory"}
	if cfg.Store.Driver != "" && !slices.Contains(validDrivers, cfg.Store.Driver) {
		add("store.driver", "must be one of %v, got %q", validDrivers, cfg.Store.Driver)
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		add("logging.level", "must be one of %v, got %q", validLogLevels, cfg.Logging.Level)
	}
	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		add("logging.consoleStyle", "must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle)
	}

	// IRC validation (only if configured)
	if irc := cfg.Channels.IRC; irc != nil {
		if irc.Server == "" {
			add("channels.irc.server", "server is required")
		}
		if irc.Nick == "" {
			add("channels.irc.nick", "nick is required")
		}
		if irc.Port < 0 || irc.Port > 65535 {
			add("channels.irc.port", "port must be 0-65535, got %d", irc.Port)
		}
		if irc.SASL && irc.Password == "" {
			add("channels.irc.sasl", "SASL requires a password to be set")
		}
		validScopes := []string{"per-sender", "global"}
		if irc.Scope != "" && !slices.Contains(validScopes, irc.Scope) {
			add("channels.irc.scope", "must be one of %v, got %q", validScopes, irc.Scope)
		}
	}

	return issues
}
