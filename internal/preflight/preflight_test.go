package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func stubStatfs(t *testing.T, total, free uint64, err error) {
	t.Helper()
	prev := statfs
	statfs = func(string) (uint64, uint64, error) {
		return total, free, err
	}
	t.Cleanup(func() { statfs = prev })
}

func TestCheckFreeSpace_OK(t *testing.T) {
	stubStatfs(t, 100<<30, 10<<30, nil)
	result := CheckFreeSpace("space", t.TempDir(), 2)
	if !result.Passed {
		t.Fatalf("expected pass with 10 GiB free, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_BelowFloor(t *testing.T) {
	stubStatfs(t, 100<<30, 1<<29, nil)
	result := CheckFreeSpace("space", t.TempDir(), 2)
	if result.Passed {
		t.Fatal("expected failure below the floor")
	}
	if !strings.Contains(result.Detail, "need 2 GiB") {
		t.Fatalf("detail should name the floor, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_NoFloorConfigured(t *testing.T) {
	stubStatfs(t, 0, 0, errors.New("statfs should not be called"))
	result := CheckFreeSpace("space", t.TempDir(), 0)
	if !result.Passed {
		t.Fatalf("floor of zero must pass, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_StatfsError(t *testing.T) {
	stubStatfs(t, 0, 0, errors.New("boom"))
	result := CheckFreeSpace("space", t.TempDir(), 1)
	if result.Passed {
		t.Fatal("expected failure when statfs errors")
	}
}

func TestCheckArtifactEndpoint_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "bundle.json") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckArtifactEndpoint(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckArtifactEndpoint_MissingManifest(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	result := CheckArtifactEndpoint(context.Background(), srv.URL)
	if result.Passed {
		t.Fatal("expected failure for missing manifest")
	}
	if !result.Advisory {
		t.Fatal("missing manifest must be advisory, the simulated pipeline covers it")
	}
	if !strings.Contains(result.Detail, "simulated") {
		t.Fatalf("detail should mention the fallback, got: %s", result.Detail)
	}
}

func TestBlockingExcludesAdvisoryFailures(t *testing.T) {
	results := []Result{
		{Name: "dir", Passed: false},
		{Name: "endpoint", Passed: false, Advisory: true},
		{Name: "space", Passed: true},
	}
	blocking := Blocking(results)
	if len(blocking) != 1 || blocking[0].Name != "dir" {
		t.Fatalf("Blocking = %+v, want only the directory failure", blocking)
	}
	if len(Failures(results)) != 2 {
		t.Fatalf("Failures should keep advisory entries, got %+v", Failures(results))
	}
}

func TestCheckArtifactEndpoint_MissingURL(t *testing.T) {
	result := CheckArtifactEndpoint(context.Background(), "  ")
	if result.Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestCheckBinaries_Stubbed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	results := CheckBinaries(EngineRequirements(cfg))
	if len(results) != 2 {
		t.Fatalf("expected 2 engine requirements, got %d", len(results))
	}
	for _, status := range results {
		if !status.Available {
			t.Fatalf("%s unavailable with stubbed PATH: %s", status.Name, status.Detail)
		}
	}
}

func TestCheckBinaries_Missing(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Ghost", Command: "definitely-not-a-binary-zz"}})
	if results[0].Available {
		t.Fatal("expected missing binary")
	}
	if !strings.Contains(results[0].Detail, "not found") {
		t.Fatalf("detail = %s", results[0].Detail)
	}
}

func TestCheckBinaries_Unconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Empty", Command: "   "}})
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
}

func TestEngineRequirements_OptionalityTracksConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Engine.AllowSimulation = false
	cfg.Engine.ArtifactBaseURL = ""

	reqs := EngineRequirements(cfg)
	if reqs[0].Optional {
		t.Fatal("ffmpeg must be mandatory without fallback or artifact endpoint")
	}
	if !reqs[1].Optional {
		t.Fatal("ffprobe is always optional")
	}

	cfg.Engine.ArtifactBaseURL = "http://bundles.internal"
	reqs = EngineRequirements(cfg)
	if !reqs[0].Optional {
		t.Fatal("ffmpeg becomes optional when the engine fetches its toolchain")
	}
}

func TestRunAllSkipsUnconfiguredChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.OutputDir = ""
	cfg.Engine.ArtifactBaseURL = ""
	cfg.Batch.MinFreeSpaceGiB = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected staging + artifact + space checks, got %d: %+v", len(results), results)
	}
	if !AllPassed(results) {
		t.Fatalf("expected all checks to pass: %+v", Failures(results))
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Engine.ArtifactBaseURL = ""
	// Directories deliberately not created.

	results := RunAll(context.Background(), cfg)
	if AllPassed(results) {
		t.Fatal("expected failures for missing directories")
	}
	if len(Failures(results)) == 0 {
		t.Fatal("Failures returned nothing despite failed checks")
	}
}
