// Package runctx creates and identifies a single run's data directory:
// the timestamped run_YYYYMMDD_HHMMSS_<rand6> layout, the "latest" alias,
// and the process/run identity written to run_meta.json. Grounded on
// original_source/src/run_context.rs, re-expressed with Go's os.Symlink
// instead of a hand-rolled Unix-only symlink call.
package runctx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Context identifies one run's output directory.
type Context struct {
	RunID     string
	RunDir    string
	StartTsMs int64
}

const maxAttempts = 1000

// Create makes baseDataDir (if needed) and a fresh run_<...> directory
// inside it, retrying the run_id generation up to maxAttempts times in the
// vanishingly unlikely event of a collision. It also (re)points a
// "run_latest" symlink at the new directory.
func Create(baseDataDir string) (*Context, error) {
	if err := os.MkdirAll(baseDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir base data dir %s: %w", baseDataDir, err)
	}

	startTsMs := time.Now().UnixMilli()
	pid := os.Getpid()

	var runID, runDir string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := formatRunID(startTsMs, pid, attempt)
		candidateDir := filepath.Join(baseDataDir, candidate)
		if _, err := os.Stat(candidateDir); os.IsNotExist(err) {
			runID = candidate
			runDir = candidateDir
			break
		}
	}
	if runDir == "" {
		return nil, fmt.Errorf("could not allocate a unique run directory under %s after %d attempts", baseDataDir, maxAttempts)
	}

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir run dir %s: %w", runDir, err)
	}

	if err := updateLatestSymlink(baseDataDir, runID); err != nil {
		return nil, fmt.Errorf("update run_latest symlink: %w", err)
	}
	if err := writeLatestMarker(runDir); err != nil {
		return nil, fmt.Errorf("write LATEST marker: %w", err)
	}

	return &Context{RunID: runID, RunDir: runDir, StartTsMs: startTsMs}, nil
}

func formatRunID(startTsMs int64, pid, attempt int) string {
	t := time.UnixMilli(startTsMs).UTC()
	rand6 := (uint32(startTsMs) ^ uint32(pid) ^ uint32(attempt)) % 1_000_000
	return fmt.Sprintf("run_%04d%02d%02d_%02d%02d%02d_%06d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), rand6)
}

// updateLatestSymlink (re)points baseDataDir/run_latest at runID. Refuses
// to clobber a non-symlink that happens to occupy that path.
func updateLatestSymlink(baseDataDir, runID string) error {
	linkPath := filepath.Join(baseDataDir, "run_latest")
	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%s exists and is not a symlink, refusing to overwrite", linkPath)
		}
		if err := os.Remove(linkPath); err != nil {
			return fmt.Errorf("remove stale run_latest symlink: %w", err)
		}
	}
	return os.Symlink(runID, linkPath)
}

func writeLatestMarker(runDir string) error {
	abs, err := filepath.Abs(runDir)
	if err != nil {
		abs = runDir
	}
	return os.WriteFile(filepath.Join(runDir, "LATEST"), []byte(abs), 0o644)
}

// RunMeta is the process/run identity snapshot written to run_meta.json.
type RunMeta struct {
	RunID         string `json:"run_id"`
	StartTsMs     int64  `json:"start_ts_ms"`
	SchemaVersion string `json:"schema_version"`
	BinaryVersion string `json:"binary_version"`
	Mode          string `json:"mode"`
	PID           int    `json:"pid"`
	Host          string `json:"host"`
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	GitCommit     string `json:"git_commit"`
}

// NewRunMeta assembles a RunMeta for the current process.
func NewRunMeta(ctx *Context, schemaVersion, binaryVersion, mode string) RunMeta {
	host, _ := os.Hostname()
	return RunMeta{
		RunID:         ctx.RunID,
		StartTsMs:     ctx.StartTsMs,
		SchemaVersion: schemaVersion,
		BinaryVersion: binaryVersion,
		Mode:          mode,
		PID:           os.Getpid(),
		Host:          host,
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		GitCommit:     readGitCommit(),
	}
}
