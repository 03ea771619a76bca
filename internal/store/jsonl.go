package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Stoneeu/vibe-kanban/internal/logging"
	"github.com/Stoneeu/vibe-kanban/internal/loop"
)

const logExt = ".jsonl"

// DiagExt is the extension of the diagnostic log kept next to a run log.
const DiagExt = ".log"

// ErrNoRuns is returned by Latest when dir holds no run logs.
var ErrNoRuns = errors.New("store: no run logs found")

// JSONL is a Store backed by an append-only JSONL file. Each line is a
// JSON-serialized loop.LogEntry. The file is synced after every Append.
//
// Log identity: "<unix-nanos>-<workspace-id>.jsonl", so names sort in
// start order.
type JSONL struct {
	file  *os.File
	mu    sync.Mutex
	idx   *fileIndex
	logID string
	pos   int64 // current write position in the file
}

// NewJSONL creates the run log for workspaceID in dir. dir is created with
// os.MkdirAll if it does not exist.
func NewJSONL(dir string, workspaceID uuid.UUID) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: mkdir %q: %w", dir, err)
	}
	logID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), workspaceID)
	path := filepath.Join(dir, logID+logExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	pos, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("store: seek: %w", err)
	}
	return &JSONL{file: f, idx: newFileIndex(), logID: logID, pos: pos}, nil
}

// Open opens an existing run log read-only and rebuilds its index.
// Malformed lines are skipped. Append on the result fails.
func Open(path string) (*JSONL, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	j := &JSONL{
		file:  f,
		idx:   newFileIndex(),
		logID: strings.TrimSuffix(filepath.Base(path), logExt),
	}

	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			j.replay(line)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = f.Close()
			return nil, fmt.Errorf("store: read %q: %w", path, readErr)
		}
	}
	return j, nil
}

func (j *JSONL) replay(line []byte) {
	offset := j.pos
	j.pos += int64(len(line))
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	var e loop.LogEntry
	if err := json.Unmarshal(trimmed, &e); err != nil {
		logging.Default().Warn("store: skipping malformed line", "log", j.logID, "offset", offset, "error", err)
		return
	}
	j.idx.onAppend(e, offset, int64(len(line)))
}

// Latest returns the path of the most recently started run log in dir.
func Latest(dir string) (string, error) {
	files, err := logFiles(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoRuns, dir)
	}
	return filepath.Join(dir, files[len(files)-1]), nil
}

// DiagPath returns the path of the diagnostic log paired with this run log.
func (j *JSONL) DiagPath() string {
	return strings.TrimSuffix(j.Path(), logExt) + DiagExt
}

// LogID returns the base name of the log file without its extension.
func (j *JSONL) LogID() string { return j.logID }

// Path returns the log file path.
func (j *JSONL) Path() string { return j.file.Name() }

// Append serializes entry as a JSON line, writes it to the file, and syncs.
// It is safe to call from multiple goroutines.
func (j *JSONL) Append(entry loop.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	lineOffset := j.pos
	if _, err := j.file.Write(data); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("store: sync: %w", err)
	}
	lineLen := int64(len(data))
	j.pos += lineLen
	j.idx.onAppend(entry, lineOffset, lineLen)
	return nil
}

// Close closes the underlying file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Iterations returns summaries for all completed runs in this log.
// The returned slice is a copy and safe to mutate.
func (j *JSONL) Iterations() ([]IterationSummary, error) {
	j.mu.Lock()
	result := make([]IterationSummary, len(j.idx.summaries))
	copy(result, j.idx.summaries)
	j.mu.Unlock()
	return result, nil
}

// IterationLog returns the full event log for a completed run, reading from
// the JSONL file using the in-memory byte-offset index. Returns an error if
// the run has not completed (or was never started).
func (j *JSONL) IterationLog(run int) ([]loop.LogEntry, error) {
	j.mu.Lock()
	r, ok := j.idx.ranges[run]
	j.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("store: run %d not found", run)
	}
	size := r.end - r.start
	if size <= 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	if _, err := j.file.ReadAt(buf, r.start); err != nil {
		return nil, fmt.Errorf("store: read run %d: %w", run, err)
	}
	var entries []loop.LogEntry
	for _, line := range bytes.Split(buf, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var e loop.LogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			logging.Default().Warn("store: skipping malformed line", "log", j.logID, "run", run, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RunSummary returns metadata about the loop derived from the in-memory
// index.
func (j *JSONL) RunSummary() (RunSummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.idx.run
	s.LogID = j.logID
	return s, nil
}

// EnforceRetention removes the oldest run log files in dir, keeping at most
// maxKeep files. If maxKeep is 0, no files are removed. Returns nil if dir
// does not exist or is empty.
func EnforceRetention(dir string, maxKeep int) error {
	if maxKeep <= 0 {
		return nil
	}
	files, err := logFiles(dir)
	if err != nil {
		return err
	}

	toDelete := len(files) - maxKeep
	for i := 0; i < toDelete; i++ {
		path := filepath.Join(dir, files[i])
		// The sibling .log holds the run's diagnostic output in TUI mode.
		for _, p := range []string{path, strings.TrimSuffix(path, logExt) + DiagExt} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("store: remove %q: %w", p, err)
			}
		}
	}
	return nil
}

// logFiles lists run log names in dir, oldest first. A missing dir yields
// no files.
func logFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), logExt) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files) // timestamp-prefixed names sort chronologically
	return files, nil
}
