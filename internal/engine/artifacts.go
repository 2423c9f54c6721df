package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"reel/internal/fileutil"
	"reel/internal/logging"
)

// The engine bundle publishes three named resources at a fixed base
// location: the execution core, the inspection module, and a manifest
// describing both.
const (
	artifactFFmpeg  = "ffmpeg"
	artifactFFprobe = "ffprobe"

	// ManifestName is the bundle manifest resource published at the
	// artifact base URL.
	ManifestName = "bundle.json"

	maxArtifactBytes = 512 << 20
)

type bundleManifest struct {
	Version   string           `json:"version"`
	Artifacts []bundleArtifact `json:"artifacts"`
}

type bundleArtifact struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// artifactFetcher resolves the engine toolchain either from binaries already
// on PATH or from the configured artifact bundle cache.
type artifactFetcher struct {
	baseURL string
	dir     string
	ffmpeg  string
	ffprobe string
	client  *http.Client
	logger  *slog.Logger
}

// Resolve returns a usable toolchain. With no artifact base URL configured
// it looks up the configured binaries on PATH; otherwise it ensures the
// bundle cache under a cross-process lock and returns the cached binaries.
func (f *artifactFetcher) Resolve(ctx context.Context) (Toolchain, error) {
	if strings.TrimSpace(f.baseURL) == "" {
		return f.localToolchain()
	}
	return f.cachedToolchain(ctx)
}

func (f *artifactFetcher) localToolchain() (Toolchain, error) {
	ffmpeg, err := exec.LookPath(f.ffmpeg)
	if err != nil {
		return Toolchain{}, fmt.Errorf("locate %s: %w", f.ffmpeg, err)
	}
	ffprobe, err := exec.LookPath(f.ffprobe)
	if err != nil {
		return Toolchain{}, fmt.Errorf("locate %s: %w", f.ffprobe, err)
	}
	return Toolchain{FFmpeg: ffmpeg, FFprobe: ffprobe}, nil
}

func (f *artifactFetcher) cachedToolchain(ctx context.Context) (Toolchain, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return Toolchain{}, fmt.Errorf("create artifact cache: %w", err)
	}

	lock := flock.New(filepath.Join(f.dir, ".bundle.lock"))
	if err := lock.Lock(); err != nil {
		return Toolchain{}, fmt.Errorf("acquire bundle lock: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if tools, ok := f.cachedBundle(); ok {
		return tools, nil
	}

	raw, err := f.download(ctx, ManifestName)
	if err != nil {
		return Toolchain{}, err
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		return Toolchain{}, err
	}
	for _, artifact := range manifest.Artifacts {
		if err := f.ensureArtifact(ctx, artifact); err != nil {
			return Toolchain{}, err
		}
	}
	// The manifest lands last so a partial bundle is never mistaken for a
	// complete one.
	if err := fileutil.WriteFileAtomic(filepath.Join(f.dir, ManifestName), raw, 0o644); err != nil {
		return Toolchain{}, fmt.Errorf("install bundle manifest: %w", err)
	}
	f.logger.Info("engine bundle installed",
		logging.String("bundle_version", manifest.Version),
		logging.String("directory", f.dir),
	)
	return f.verifyBundle(manifest)
}

// cachedBundle reports whether the cache already holds a verified bundle,
// allowing offline reuse across processes.
func (f *artifactFetcher) cachedBundle() (Toolchain, bool) {
	raw, err := os.ReadFile(filepath.Join(f.dir, ManifestName))
	if err != nil {
		return Toolchain{}, false
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		f.logger.Debug("cached bundle manifest invalid; refetching", logging.Error(err))
		return Toolchain{}, false
	}
	tools, err := f.verifyBundle(manifest)
	if err != nil {
		f.logger.Debug("cached engine bundle failed verification; refetching", logging.Error(err))
		return Toolchain{}, false
	}
	return tools, true
}

// verifyBundle checks every cached artifact against the manifest and
// resolves the toolchain paths.
func (f *artifactFetcher) verifyBundle(manifest bundleManifest) (Toolchain, error) {
	var tools Toolchain
	for _, artifact := range manifest.Artifacts {
		path := filepath.Join(f.dir, artifact.Name)
		info, err := os.Stat(path)
		if err != nil {
			return Toolchain{}, err
		}
		if artifact.Size > 0 && info.Size() != artifact.Size {
			return Toolchain{}, fmt.Errorf("artifact %s size mismatch: have %d want %d", artifact.Name, info.Size(), artifact.Size)
		}
		digest, err := fileutil.SHA256File(path)
		if err != nil {
			return Toolchain{}, err
		}
		if !strings.EqualFold(digest, artifact.SHA256) {
			return Toolchain{}, fmt.Errorf("artifact %s checksum mismatch", artifact.Name)
		}
		switch artifact.Name {
		case artifactFFmpeg:
			tools.FFmpeg = path
		case artifactFFprobe:
			tools.FFprobe = path
		}
	}
	if tools.FFmpeg == "" || tools.FFprobe == "" {
		return Toolchain{}, errors.New("bundle manifest missing required artifacts")
	}
	return tools, nil
}

// ensureArtifact downloads one bundle artifact unless the cached copy
// already matches the manifest.
func (f *artifactFetcher) ensureArtifact(ctx context.Context, artifact bundleArtifact) error {
	path := filepath.Join(f.dir, artifact.Name)
	if digest, err := fileutil.SHA256File(path); err == nil && strings.EqualFold(digest, artifact.SHA256) {
		return nil
	}

	data, err := f.download(ctx, artifact.Name)
	if err != nil {
		return err
	}
	if artifact.Size > 0 && int64(len(data)) != artifact.Size {
		return fmt.Errorf("artifact %s size mismatch: have %d want %d", artifact.Name, len(data), artifact.Size)
	}
	sum := sha256.Sum256(data)
	if !strings.EqualFold(hex.EncodeToString(sum[:]), artifact.SHA256) {
		return fmt.Errorf("artifact %s checksum mismatch after download", artifact.Name)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o755); err != nil {
		return fmt.Errorf("install artifact %s: %w", artifact.Name, err)
	}
	f.logger.Debug("engine artifact installed", logging.String("artifact", artifact.Name), logging.Int("size_bytes", len(data)))
	return nil
}

func (f *artifactFetcher) download(ctx context.Context, name string) ([]byte, error) {
	url := strings.TrimRight(f.baseURL, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", name, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", name, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxArtifactBytes {
		return nil, fmt.Errorf("fetch %s: artifact exceeds %d bytes", name, maxArtifactBytes)
	}
	return data, nil
}

func parseManifest(raw []byte) (bundleManifest, error) {
	var manifest bundleManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return bundleManifest{}, fmt.Errorf("parse bundle manifest: %w", err)
	}
	if len(manifest.Artifacts) == 0 {
		return bundleManifest{}, errors.New("bundle manifest lists no artifacts")
	}
	for _, artifact := range manifest.Artifacts {
		if artifact.Name == "" || artifact.Name != filepath.Base(artifact.Name) || strings.HasPrefix(artifact.Name, ".") {
			return bundleManifest{}, fmt.Errorf("bundle manifest contains invalid artifact name %q", artifact.Name)
		}
		if artifact.SHA256 == "" {
			return bundleManifest{}, fmt.Errorf("bundle manifest missing checksum for %q", artifact.Name)
		}
	}
	return manifest, nil
}
