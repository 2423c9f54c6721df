package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
)

func TestLoadAppliesDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "reel", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.ArtifactDir != filepath.Join(tempHome, ".local", "share", "reel", "engine") {
		t.Fatalf("unexpected artifact dir: %q", cfg.Paths.ArtifactDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7489" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if len(cfg.Paths.APIOrigins) != 1 || cfg.Paths.APIOrigins[0] != "*" {
		t.Fatalf("unexpected api origins: %#v", cfg.Paths.APIOrigins)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected engine binaries: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if !cfg.Engine.AllowSimulation {
		t.Fatal("expected simulation fallback enabled by default")
	}
	if cfg.Batch.DefaultFormat != "mp4" || cfg.Batch.DefaultQuality != "medium" {
		t.Fatalf("unexpected batch defaults: %q %q", cfg.Batch.DefaultFormat, cfg.Batch.DefaultQuality)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q %q", cfg.Logging.Format, cfg.Logging.Level)
	}
	if cfg.DatabasePath() != filepath.Join(wantStaging, "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[paths]
staging_dir = "~/work/staging"
api_bind = " 0.0.0.0:9000 "
api_origins = [" https://app.example.com ", ""]

[engine]
ffmpeg_binary = " /opt/ffmpeg/bin/ffmpeg "
artifact_base_url = "https://artifacts.example.com/engine/"

[batch]
default_format = " WebM "
default_quality = "HIGH"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StagingDir != filepath.Join(tempHome, "work", "staging") {
		t.Fatalf("staging dir not expanded: %q", cfg.Paths.StagingDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api bind not trimmed: %q", cfg.Paths.APIBind)
	}
	if len(cfg.Paths.APIOrigins) != 1 || cfg.Paths.APIOrigins[0] != "https://app.example.com" {
		t.Fatalf("api origins not normalized: %#v", cfg.Paths.APIOrigins)
	}
	if cfg.Engine.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg binary not trimmed: %q", cfg.Engine.FFmpegBinary)
	}
	if cfg.Engine.ArtifactBaseURL != "https://artifacts.example.com/engine" {
		t.Fatalf("artifact base url not normalized: %q", cfg.Engine.ArtifactBaseURL)
	}
	if cfg.Batch.DefaultFormat != "webm" {
		t.Fatalf("default format not normalized: %q", cfg.Batch.DefaultFormat)
	}
	if cfg.Batch.DefaultQuality != "high" {
		t.Fatalf("default quality not normalized: %q", cfg.Batch.DefaultQuality)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging format not normalized: %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnsupportedDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[batch]
default_format = "mp3"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "default_format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadArtifactURL(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.ArtifactBaseURL = "ftp://artifacts.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http artifact url")
	}
}

func TestAPITokenEnvFallback(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REEL_API_TOKEN", "sekrit")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "sekrit" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Batch.DefaultFormat != config.Default().Batch.DefaultFormat {
		t.Fatalf("sample config changed defaults: %q", cfg.Batch.DefaultFormat)
	}
}

func TestEnsureDirectoriesCreatesRequiredPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ArtifactDir = filepath.Join(base, "engine")
	cfg.Paths.OutputDir = filepath.Join(base, "out")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, cfg.Paths.ArtifactDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected directory at %s", dir)
		}
	}
}
