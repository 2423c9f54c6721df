package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reel/internal/engine"
)

// statfs reports total and free bytes for the filesystem holding path.
// Variable so tests can script disk conditions.
var statfs = realStatfs

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB
// of free space. A floor of zero passes without inspecting the disk.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}
	total, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	required := uint64(minGiB) << 30
	detail := fmt.Sprintf("%.1f GiB free of %.1f GiB (need %d GiB)",
		float64(free)/(1<<30), float64(total)/(1<<30), minGiB)
	if free < required {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckArtifactEndpoint verifies the engine bundle manifest is reachable at
// the configured base URL. Failures are advisory since the engine falls
// back to the simulated pipeline when the toolchain cannot be fetched.
func CheckArtifactEndpoint(ctx context.Context, baseURL string) Result {
	const name = "Engine artifact endpoint"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Advisory: true, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/"+engine.ManifestName, nil)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("manifest check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("manifest check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "manifest reachable"}
	case http.StatusNotFound:
		return Result{Name: name, Advisory: true, Detail: "manifest missing (conversions will run simulated)"}
	default:
		return Result{Name: name, Advisory: true, Detail: fmt.Sprintf("manifest check failed (%d)", resp.StatusCode)}
	}
}

func realStatfs(path string) (total uint64, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total = stat.Blocks * uint64(stat.Bsize)
	free = stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
