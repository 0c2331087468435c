package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lamim/nlpforge/pkg/models"
)

// StatusLine is one line of status.jsonl
type StatusLine struct {
	Time time.Time          `json:"time"`
	Job  models.TrainingJob `json:"job"`
}

// StatusLog appends status snapshots to the session's status.jsonl.
// Consecutive identical snapshots are collapsed into one line.
type StatusLog struct {
	file   *os.File
	buf    *bufio.Writer
	mu     sync.Mutex
	last   *models.TrainingJob
	lines  int
	logger *slog.Logger
}

var _ Writer = (*StatusLog)(nil)

// NewStatusLog opens the status log for appending
func NewStatusLog(sessionMgr *SessionManager, logger *slog.Logger) (*StatusLog, error) {
	path := sessionMgr.GetStatusLogPath()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open status log: %w", err)
	}

	logger.Debug("Opened status log", "path", path)

	return &StatusLog{
		file:   file,
		buf:    bufio.NewWriter(file),
		logger: logger,
	}, nil
}

// WriteSnapshot appends one snapshot and flushes terminal ones immediately
func (sl *StatusLog) WriteSnapshot(job models.TrainingJob) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.last != nil && sameSnapshot(*sl.last, job) {
		return nil
	}

	data, err := json.Marshal(StatusLine{Time: time.Now().UTC(), Job: job})
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if _, err := sl.buf.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	sl.last = &job
	sl.lines++

	if job.Status.IsTerminal() {
		return sl.buf.Flush()
	}
	return nil
}

// Lines returns how many snapshots were written
func (sl *StatusLog) Lines() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.lines
}

// Close flushes and closes the status log
func (sl *StatusLog) Close() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if err := sl.buf.Flush(); err != nil {
		sl.logger.Warn("Failed to flush status log", "error", err)
	}
	if err := sl.file.Sync(); err != nil {
		sl.logger.Warn("Failed to sync status log", "error", err)
	}

	if err := sl.file.Close(); err != nil {
		return fmt.Errorf("failed to close status log: %w", err)
	}
	return nil
}

// ReadStatusLog reads every line of a status log
func ReadStatusLog(path string) ([]StatusLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open status log: %w", err)
	}
	defer f.Close()

	var lines []StatusLine
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line StatusLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("status log line %d: %w", n, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status log: %w", err)
	}
	return lines, nil
}

func sameSnapshot(a, b models.TrainingJob) bool {
	if a.JobID != b.JobID || a.Status != b.Status || a.Progress != b.Progress ||
		a.Epoch != b.Epoch || a.TotalEpochs != b.TotalEpochs || a.Error != b.Error {
		return false
	}
	if (a.Loss == nil) != (b.Loss == nil) {
		return false
	}
	return a.Loss == nil || *a.Loss == *b.Loss
}
