package runctx

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"razor/internal/recorder"
)

// WriteSchemaVersion writes schema_version.json into the run directory:
// the schema version, when it was written, and the schema tag of each
// data file the run records.
func (c *Context) WriteSchemaVersion() error {
	files := make(map[string]string)
	for _, name := range []string{recorder.FileRawWS, recorder.FileTicks, recorder.FileSnapshots, recorder.FileTrades, recorder.FileShadowLog, recorder.FileHealth} {
		files[name] = recorder.SchemaVersion
	}
	return writeJSON(filepath.Join(c.RunDir, recorder.FileSchemaVersion), map[string]any{
		"schema_version":       recorder.SchemaVersion,
		"generated_at_unix_ms": time.Now().UnixMilli(),
		"files":                files,
	})
}

// WriteRunMeta writes run_meta.json into the run directory.
func (c *Context) WriteRunMeta(meta RunMeta) error {
	return writeJSON(filepath.Join(c.RunDir, recorder.FileRunMetaJSON), meta)
}

// WriteMeta writes a small meta.json recording when the run directory was
// created, independent of any richer RunMeta the caller may also write.
func (c *Context) WriteMeta() error {
	return writeJSON(filepath.Join(c.RunDir, recorder.FileMetaJSON), map[string]any{
		"run_id":      c.RunID,
		"created_at":  time.UnixMilli(c.StartTsMs).UTC().Format(time.RFC3339),
		"start_ts_ms": c.StartTsMs,
	})
}

// CopyConfig snapshots the config file this run was started with into
// config.yaml inside the run directory, so a run is reproducible from its
// own output directory alone.
func (c *Context) CopyConfig(sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source config %s: %w", sourcePath, err)
	}
	dst := filepath.Join(c.RunDir, recorder.FileConfigYAML)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write config snapshot %s: %w", dst, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readGitCommit best-effort resolves the short commit hash of the git
// checkout containing the process's working directory, by running git at
// run time. Returns "unknown" when the working directory is not inside a
// checkout or when git is unavailable.
func readGitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}
