package config

import (
	"os"
	"path/filepath"
	"testing"

	goyaml "gopkg.in/yaml.v3"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.DataDir == "" || s.RecordingsDir == "" {
		t.Errorf("defaults not filled: %+v", s)
	}
	if s.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", s.SampleRate)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Write the fixture with a second yaml implementation so the
	// parse is checked against independently produced output.
	fixture, err := goyaml.Marshal(map[string]any{
		"data_dir":    "/tmp/vocab-state",
		"sample_rate": 8000,
		"s3": map[string]any{
			"bucket": "recordings",
			"prefix": "vocab",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, fixture, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.DataDir != "/tmp/vocab-state" || s.SampleRate != 8000 {
		t.Errorf("settings = %+v", s)
	}
	if s.S3.Bucket != "recordings" || s.S3.Prefix != "vocab" {
		t.Errorf("s3 settings = %+v", s.S3)
	}
	if s.Monitor == "" {
		t.Error("monitor default not filled")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("malformed config accepted")
	}
}
