package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"reel/internal/logging"
	"reel/internal/testsupport"
)

type bundleServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newBundleServer(t *testing.T, payloads map[string][]byte) *bundleServer {
	t.Helper()

	manifest := bundleManifest{Version: "7.1.0"}
	for _, name := range []string{artifactFFmpeg, artifactFFprobe} {
		data, ok := payloads[name]
		if !ok {
			continue
		}
		sum := sha256.Sum256(data)
		manifest.Artifacts = append(manifest.Artifacts, bundleArtifact{
			Name:   name,
			Size:   int64(len(data)),
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}

	srv := &bundleServer{hits: make(map[string]int)}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		srv.mu.Lock()
		srv.hits[name]++
		srv.mu.Unlock()

		if name == ManifestName {
			_, _ = w.Write(manifestJSON)
			return
		}
		data, ok := payloads[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (s *bundleServer) hitCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

func newTestFetcher(baseURL, dir string) *artifactFetcher {
	return &artifactFetcher{
		baseURL: baseURL,
		dir:     dir,
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		client:  http.DefaultClient,
		logger:  logging.NewNop(),
	}
}

func TestResolveFetchesAndCachesBundle(t *testing.T) {
	payloads := map[string][]byte{
		artifactFFmpeg:  []byte("ffmpeg-binary-payload"),
		artifactFFprobe: []byte("ffprobe-binary-payload"),
	}
	srv := newBundleServer(t, payloads)
	dir := filepath.Join(t.TempDir(), "artifacts")
	fetcher := newTestFetcher(srv.URL, dir)

	tools, err := fetcher.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	for name, path := range map[string]string{artifactFFmpeg: tools.FFmpeg, artifactFFprobe: tools.FFprobe} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read cached %s: %v", name, err)
		}
		if string(data) != string(payloads[name]) {
			t.Fatalf("cached %s does not match the served payload", name)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat cached %s: %v", name, err)
		}
		if info.Mode().Perm()&0o100 == 0 {
			t.Fatalf("expected cached %s to be executable, mode %v", name, info.Mode())
		}
	}

	again, err := fetcher.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if again != tools {
		t.Fatalf("expected identical toolchain on reuse, got %+v then %+v", tools, again)
	}
	for _, name := range []string{ManifestName, artifactFFmpeg, artifactFFprobe} {
		if count := srv.hitCount(name); count != 1 {
			t.Fatalf("expected exactly one fetch of %s, got %d", name, count)
		}
	}
}

func TestResolveRepairsCorruptedArtifact(t *testing.T) {
	payloads := map[string][]byte{
		artifactFFmpeg:  []byte("ffmpeg-binary-payload"),
		artifactFFprobe: []byte("ffprobe-binary-payload"),
	}
	srv := newBundleServer(t, payloads)
	dir := filepath.Join(t.TempDir(), "artifacts")
	fetcher := newTestFetcher(srv.URL, dir)

	tools, err := fetcher.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if err := os.WriteFile(tools.FFmpeg, []byte("truncated"), 0o755); err != nil {
		t.Fatalf("corrupt cached artifact: %v", err)
	}

	repaired, err := fetcher.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve after corruption returned error: %v", err)
	}
	data, err := os.ReadFile(repaired.FFmpeg)
	if err != nil {
		t.Fatalf("read repaired artifact: %v", err)
	}
	if string(data) != string(payloads[artifactFFmpeg]) {
		t.Fatal("expected corrupted artifact to be refetched")
	}
	if count := srv.hitCount(artifactFFmpeg); count != 2 {
		t.Fatalf("expected a second fetch of the corrupted artifact, got %d", count)
	}
	if count := srv.hitCount(artifactFFprobe); count != 1 {
		t.Fatalf("expected the intact artifact to be reused, got %d fetches", count)
	}
}

func TestResolveRejectsChecksumMismatch(t *testing.T) {
	payloads := map[string][]byte{
		artifactFFmpeg:  []byte("ffmpeg-binary-payload"),
		artifactFFprobe: []byte("ffprobe-binary-payload"),
	}
	manifest := bundleManifest{
		Version: "7.1.0",
		Artifacts: []bundleArtifact{
			{Name: artifactFFmpeg, Size: int64(len(payloads[artifactFFmpeg])), SHA256: strings.Repeat("ab", 32)},
			{Name: artifactFFprobe, Size: int64(len(payloads[artifactFFprobe])), SHA256: strings.Repeat("cd", 32)},
		},
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == ManifestName {
			_, _ = w.Write(manifestJSON)
			return
		}
		_, _ = w.Write(payloads[name])
	}))
	defer srv.Close()

	fetcher := newTestFetcher(srv.URL, filepath.Join(t.TempDir(), "artifacts"))
	if _, err := fetcher.Resolve(context.Background()); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("expected checksum mismatch error, got %v", err)
	}
}

func TestResolveLocalToolchain(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	fetcher := newTestFetcher("", filepath.Join(testsupport.BaseDir(cfg), "unused"))
	tools, err := fetcher.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if filepath.Base(tools.FFmpeg) != "ffmpeg" || filepath.Base(tools.FFprobe) != "ffprobe" {
		t.Fatalf("expected stubbed binaries to resolve, got %+v", tools)
	}
}

func TestParseManifestRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no artifacts", `{"version":"1","artifacts":[]}`},
		{"empty name", `{"version":"1","artifacts":[{"name":"","sha256":"aa"}]}`},
		{"path traversal", `{"version":"1","artifacts":[{"name":"../ffmpeg","sha256":"aa"}]}`},
		{"hidden file", `{"version":"1","artifacts":[{"name":".lock","sha256":"aa"}]}`},
		{"missing checksum", `{"version":"1","artifacts":[{"name":"ffmpeg"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseManifest([]byte(tc.raw)); err == nil {
				t.Fatal("expected manifest to be rejected")
			}
		})
	}
}
