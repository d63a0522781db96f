// Package recorder exposes the two append-only writer primitives used
// throughout the pipeline: a tabular (CSV) writer and a line-delimited
// (JSONL) writer, each tied to a frozen header or schema tag. Grounded on
// the teacher's internal/paper/recorder.go (mutex + os.File + buffered
// encoder), generalized with the schema-mismatch rotation and batched
// flush policy the corpus's pipeline needs.
package recorder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	flushEveryRecords = 200
	flushEvery        = time.Second
)

// CsvAppender is a frozen-header, append-only tabular writer. Opening an
// existing file whose first line does not match the expected header
// renames the offending file with a schema_mismatch suffix and starts
// fresh, rather than blocking the pipeline.
type CsvAppender struct {
	mu        sync.Mutex
	file      *os.File
	buf       *bufio.Writer
	w         *csv.Writer
	header    []string
	pending   int
	lastFlush time.Time
}

// OpenCsvAppender opens (or creates) path, verifying/writing header.
func OpenCsvAppender(path string, header []string) (*CsvAppender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir for %s: %w", path, err)
	}

	needsHeader := true
	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		firstLine := string(existing)
		if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
			firstLine = firstLine[:idx]
		}
		firstLine = strings.TrimRight(firstLine, "\r")
		if firstLine != strings.Join(header, ",") {
			backup := schemaMismatchBackupPath(path)
			if err := os.Rename(path, backup); err != nil {
				return nil, fmt.Errorf("rotate schema-mismatched %s: %w", path, err)
			}
		} else {
			needsHeader = false
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	buf := bufio.NewWriter(file)
	w := csv.NewWriter(buf)
	a := &CsvAppender{
		file:      file,
		buf:       buf,
		w:         w,
		header:    header,
		lastFlush: time.Now(),
	}
	if needsHeader {
		if err := a.writeRecordLocked(header); err != nil {
			return nil, err
		}
		if err := a.FlushAndSync(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func schemaMismatchBackupPath(path string) string {
	return fmt.Sprintf("%s.schema_mismatch_%d", path, time.Now().UnixMilli())
}

// WriteRecord appends one row, batching the flush.
func (a *CsvAppender) WriteRecord(record []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeRecordLocked(record); err != nil {
		return err
	}
	return a.maybeFlushLocked()
}

func (a *CsvAppender) writeRecordLocked(record []string) error {
	if err := a.w.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	a.pending++
	return nil
}

func (a *CsvAppender) maybeFlushLocked() error {
	if a.pending >= flushEveryRecords || time.Since(a.lastFlush) >= flushEvery {
		a.w.Flush()
		if err := a.w.Error(); err != nil {
			return fmt.Errorf("flush csv writer: %w", err)
		}
		if err := a.buf.Flush(); err != nil {
			return fmt.Errorf("flush csv buffer: %w", err)
		}
		a.pending = 0
		a.lastFlush = time.Now()
	}
	return nil
}

// FlushAndSync forces a durable flush: CSV writer, buffered writer, and
// fsync on the underlying file.
func (a *CsvAppender) FlushAndSync() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.w.Flush()
	if err := a.w.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	if err := a.buf.Flush(); err != nil {
		return fmt.Errorf("flush csv buffer: %w", err)
	}
	a.pending = 0
	a.lastFlush = time.Now()
	return a.file.Sync()
}

// Close flushes and closes the underlying file.
func (a *CsvAppender) Close() error {
	if err := a.FlushAndSync(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
