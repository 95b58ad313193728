// Package config loads process configuration from environment variables,
// following the pack's GetEnv/GetEnvAsInt/GetEnvAsBool helper pattern:
// look up a variable, fall back to a default, and log which one was used.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/midbel/xsltproof/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings loaded once at startup. The
// analysis pipeline is stateless per request, so there is no hot reload
// and no remote config source.
type Config struct {
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxInputBytes  int
	LogMode        string
	SpinnerEnabled bool
}

// Load reads Config from the environment, logging each fallback or
// override through log (which may be nil).
func Load(log *logging.Logger) Config {
	return Config{
		HTTPAddr:       GetEnv("XSLTPROOF_HTTP_ADDR", ":8080", log),
		ReadTimeout:    time.Duration(GetEnvAsInt("XSLTPROOF_READ_TIMEOUT_SECONDS", 15, log)) * time.Second,
		WriteTimeout:   time.Duration(GetEnvAsInt("XSLTPROOF_WRITE_TIMEOUT_SECONDS", 15, log)) * time.Second,
		MaxInputBytes:  GetEnvAsInt("XSLTPROOF_MAX_INPUT_BYTES", 5*1024*1024, log),
		LogMode:        GetEnv("XSLTPROOF_LOG_MODE", "development", log),
		SpinnerEnabled: GetEnvAsBool("XSLTPROOF_SPINNER", true, log),
	}
}

// overlay is the optional YAML file shape consulted after environment
// variables have been loaded; any field left zero in the file is ignored,
// so a partial overlay only overrides what it sets.
type overlay struct {
	HTTPAddr       string `yaml:"http_addr"`
	LogMode        string `yaml:"log_mode"`
	MaxInputBytes  int    `yaml:"max_input_bytes"`
	SpinnerEnabled *bool  `yaml:"spinner_enabled"`
}

// ApplyOverlay reads a YAML file at path and merges any set fields onto
// cfg. Missing files are not an error; the config simply keeps its
// environment-derived values.
func ApplyOverlay(cfg Config, path string, log *logging.Logger) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.Debug("config overlay not found, using environment values", "path", path, "error", err)
		}
		return cfg
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		if log != nil {
			log.Warn("config overlay could not be parsed, using environment values", "path", path, "error", err)
		}
		return cfg
	}

	if o.HTTPAddr != "" {
		cfg.HTTPAddr = o.HTTPAddr
	}
	if o.LogMode != "" {
		cfg.LogMode = o.LogMode
	}
	if o.MaxInputBytes != 0 {
		cfg.MaxInputBytes = o.MaxInputBytes
	}
	if o.SpinnerEnabled != nil {
		cfg.SpinnerEnabled = *o.SpinnerEnabled
	}
	return cfg
}

// GetEnv reads a string environment variable, falling back to defaultVal
// when unset.
func GetEnv(key, defaultVal string, log *logging.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("environment variable found, using environment", "environment", val)
	}
	return val
}

// GetEnvAsInt reads an integer environment variable, falling back to
// defaultVal when unset or unparseable.
func GetEnvAsInt(key string, defaultVal int, log *logging.Logger) int {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("environment variable found, using it", "value", i)
	}
	return i
}

// GetEnvAsBool reads a boolean environment variable, falling back to
// defaultVal when unset or unparseable.
func GetEnvAsBool(key string, defaultVal bool, log *logging.Logger) bool {
	if log != nil {
		log = log.With("env_var", key)
	}
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	b, err := strconv.ParseBool(valStr)
	if err != nil {
		if log != nil {
			log.Debug("environment variable could not be parsed as bool, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	if log != nil {
		log.Debug("environment variable found, using it", "value", b)
	}
	return b
}
