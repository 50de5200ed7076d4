// Package config loads the vocab CLI settings.
//
// Settings are stored under os.UserConfigDir()/vocab/config.yaml:
//
//	~/Library/Application Support/vocab/config.yaml   (macOS)
//	~/.config/vocab/config.yaml                       (Linux)
//	%AppData%/vocab/config.yaml                       (Windows)
//
// Learner state (the BadgerDB database and recordings) defaults to
// os.UserCacheDir()/vocab but can be pointed anywhere.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const appDir = "vocab"

// Settings is the on-disk configuration.
type Settings struct {
	// DataDir holds the state database. Defaults to the user cache
	// directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// RecordingsDir holds raw audio blobs when S3 is not configured.
	RecordingsDir string `yaml:"recordings_dir,omitempty"`

	// S3 offloads recordings to an object store when set.
	S3 S3Settings `yaml:"s3,omitempty"`

	// Monitor is the telemetry listen address.
	Monitor string `yaml:"monitor,omitempty"`

	// SampleRate is assumed for raw PCM input files.
	SampleRate int `yaml:"sample_rate,omitempty"`
}

// S3Settings configures the optional recordings bucket.
type S3Settings struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Region string `yaml:"region,omitempty"`
}

func (s *Settings) defaults() error {
	if s.DataDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("cannot determine cache directory: %w", err)
		}
		s.DataDir = filepath.Join(base, appDir, "state")
	}
	if s.RecordingsDir == "" {
		s.RecordingsDir = filepath.Join(filepath.Dir(s.DataDir), "recordings")
	}
	if s.Monitor == "" {
		s.Monitor = "127.0.0.1:8390"
	}
	if s.SampleRate == 0 {
		s.SampleRate = 16000
	}
	return nil
}

// Path returns the default config file location.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, "config.yaml"), nil
}

// Load reads settings from the default location. A missing file
// yields pure defaults.
func Load() (*Settings, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads settings from a specific file.
func LoadFrom(path string) (*Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := s.defaults(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes settings to the default location, creating the
// directory as needed.
func Save(s *Settings) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
