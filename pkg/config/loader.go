package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "MQFACADE_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath names a file.
const DefaultPath = "config/config.yaml"

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidJSON      = errors.New("invalid JSON syntax")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrSchema           = errors.New("configuration does not match schema")
	ErrValidation       = errors.New("invalid configuration")
)

// ResolvePath picks the configuration path: flagPath, else the
// MQFACADE_CONFIG variable, else DefaultPath. explicit is false only for
// the default.
func ResolvePath(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return envPath, true
	}
	return DefaultPath, false
}

// Load resolves the configuration path and loads it. A missing default
// file yields Default(); a missing explicit file is an error.
func Load(flagPath string) (*Config, string, error) {
	path, explicit := ResolvePath(flagPath)
	cfg, err := LoadFromFile(path)
	if err != nil {
		if !explicit && errors.Is(err, ErrFileNotFound) {
			return Default(), "", nil
		}
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromFile reads a configuration from a JSON or YAML file.
// The format is auto-detected based on file extension (.yaml, .yml for YAML, otherwise JSON).
func LoadFromFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// ParseYAML parses a YAML document. Environment references are expanded
// before parsing.
func ParseYAML(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(ExpandEnvVars(string(data))), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	if doc == nil {
		return nil, ErrEmptyFile
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
	}
	return decode(js)
}

// ParseJSON parses a JSON document. Environment references are expanded
// before parsing.
func ParseJSON(data []byte) (*Config, error) {
	expanded := []byte(ExpandEnvVars(string(data)))
	if !json.Valid(expanded) {
		return nil, ErrInvalidJSON
	}
	return decode(expanded)
}

// decode checks the schema, overlays the document on Default() and
// validates the result.
func decode(doc []byte) (*Config, error) {
	if err := validateSchema(doc); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
