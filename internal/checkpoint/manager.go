// Package checkpoint keeps a journal of the session's training job on disk
// so that a later run can resume watching it.
package checkpoint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lamim/nlpforge/pkg/models"
)

const JournalFilename = "job.json"

// Manager writes the job journal with async write support
type Manager struct {
	sessionDir string
	journal    *models.JobJournal
	mu         sync.RWMutex
	logger     *slog.Logger

	// Async write support
	writeChan   chan pendingWrite
	writeWg     sync.WaitGroup
	stopWriter  chan struct{}
	closeOnce   sync.Once
	writerError error
	errorMu     sync.Mutex
	writeMu     sync.Mutex // Protects concurrent disk writes
	seq         uint64     // guarded by mu
	written     uint64     // guarded by writeMu
}

// pendingWrite is a journal copy tagged with the order it was taken in.
// A copy older than the one already on disk is skipped.
type pendingWrite struct {
	seq     uint64
	journal *models.JobJournal
}

// NewManager creates a journal for a new session
func NewManager(sessionDir, serviceURL string, logger *slog.Logger) *Manager {
	return newManager(sessionDir, &models.JobJournal{
		SessionID:   uuid.New().String(),
		CreatedAt:   time.Now(),
		ServiceHash: computeServiceHash(serviceURL),
	}, logger)
}

// NewManagerFromJournal continues an existing journal
func NewManagerFromJournal(sessionDir string, j *models.JobJournal, logger *slog.Logger) *Manager {
	return newManager(sessionDir, j, logger)
}

// Open continues the journal in sessionDir when one exists and starts a
// new one otherwise. An unreadable journal is logged and replaced.
func Open(sessionDir, serviceURL string, logger *slog.Logger) *Manager {
	if _, err := os.Stat(filepath.Join(sessionDir, JournalFilename)); err == nil {
		j, err := Load(sessionDir, logger)
		if err == nil {
			return NewManagerFromJournal(sessionDir, j, logger)
		}
		logger.Warn("Ignoring unreadable job journal", "session_dir", sessionDir, "error", err)
	}
	return NewManager(sessionDir, serviceURL, logger)
}

func newManager(sessionDir string, j *models.JobJournal, logger *slog.Logger) *Manager {
	m := &Manager{
		sessionDir: sessionDir,
		journal:    j,
		logger:     logger,
		writeChan:  make(chan pendingWrite, 10), // Buffer up to 10 pending writes
		stopWriter: make(chan struct{}),
	}
	m.startAsyncWriter()
	return m
}

// startAsyncWriter starts the background writer goroutine
func (m *Manager) startAsyncWriter() {
	m.writeWg.Add(1)
	go func() {
		defer m.writeWg.Done()
		for {
			select {
			case w := <-m.writeChan:
				if err := m.writeJournalToDisk(w); err != nil {
					m.errorMu.Lock()
					m.writerError = err
					m.errorMu.Unlock()
					m.logger.Error("Failed to write job journal", "error", err)
				}
			case <-m.stopWriter:
				// Drain remaining writes before stopping
				for len(m.writeChan) > 0 {
					w := <-m.writeChan
					if err := m.writeJournalToDisk(w); err != nil {
						m.logger.Error("Failed to write job journal during shutdown", "error", err)
					}
				}
				return
			}
		}
	}()
}

// writeJournalToDisk performs the actual disk write (called by async writer)
func (m *Manager) writeJournalToDisk(w pendingWrite) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if w.seq <= m.written {
		return nil
	}
	j := w.journal

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	// Atomic write: write to temp file, then rename
	journalPath := filepath.Join(m.sessionDir, JournalFilename)
	tempPath := journalPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp journal: %w", err)
	}

	if err := os.Rename(tempPath, journalPath); err != nil {
		return fmt.Errorf("failed to rename journal: %w", err)
	}
	m.written = w.seq

	m.logger.Debug("Job journal saved", "path", journalPath, "status", j.Latest.Status)
	return nil
}

// Save queues the journal for async write
func (m *Manager) Save() error {
	m.mu.Lock()
	m.journal.LastSavedAt = time.Now()
	m.seq++
	w := pendingWrite{seq: m.seq, journal: m.copyJournal()}
	m.mu.Unlock()

	// Queue for async write (non-blocking if buffer has space)
	select {
	case m.writeChan <- w:
		return nil
	default:
		m.logger.Warn("Journal write buffer full, writing synchronously")
		return m.writeJournalToDisk(w)
	}
}

// SaveSync performs a synchronous journal write
func (m *Manager) SaveSync() error {
	m.mu.Lock()
	m.journal.LastSavedAt = time.Now()
	m.seq++
	w := pendingWrite{seq: m.seq, journal: m.copyJournal()}
	m.mu.Unlock()

	return m.writeJournalToDisk(w)
}

// copyJournal creates a deep copy of the journal
func (m *Manager) copyJournal() *models.JobJournal {
	j := *m.journal
	j.Events = append([]models.JobEvent{}, m.journal.Events...)
	if m.journal.Registry != nil {
		reg := *m.journal.Registry
		reg.Jobs = nil
		j.Registry = &reg
	}
	return &j
}

// Load reads the journal from a session directory
func Load(sessionDir string, logger *slog.Logger) (*models.JobJournal, error) {
	journalPath := filepath.Join(sessionDir, JournalFilename)

	data, err := os.ReadFile(journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job journal: %w", err)
	}

	var j models.JobJournal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job journal: %w", err)
	}

	logger.Info("Job journal loaded",
		"session_id", j.SessionID,
		"job_id", j.JobID,
		"status", j.Latest.Status)

	return &j, nil
}

// MarkSubmitted records a newly started job
func (m *Manager) MarkSubmitted(jobID, domain string, entities, intents int, cfg models.TrainingConfig) error {
	m.mu.Lock()
	m.journal.JobID = jobID
	m.journal.Domain = domain
	m.journal.Entities = entities
	m.journal.Intents = intents
	m.journal.Config = cfg
	m.journal.Latest = models.TrainingJob{JobID: jobID, Status: models.StatusRunning, TotalEpochs: cfg.Epochs}
	m.journal.Events = nil
	m.mu.Unlock()

	return m.SaveSync() // Use sync for the submission
}

// RecordView is the controller snapshot hook. An event is appended when the
// status or epoch changes; terminal states are written synchronously.
func (m *Manager) RecordView(view models.JobView) {
	if view.Kind != models.ViewConfirmed {
		return
	}
	job := view.Job

	m.mu.Lock()
	if job.JobID != m.journal.JobID {
		m.mu.Unlock()
		return
	}
	m.journal.Latest = job
	n := len(m.journal.Events)
	if n == 0 || m.journal.Events[n-1].Status != job.Status || m.journal.Events[n-1].Epoch != job.Epoch {
		m.journal.Events = append(m.journal.Events, models.JobEvent{
			At:       time.Now(),
			Status:   job.Status,
			Progress: job.Progress,
			Epoch:    job.Epoch,
			Loss:     job.Loss,
		})
	}
	m.mu.Unlock()

	var err error
	if job.Status.IsTerminal() {
		err = m.SaveSync()
	} else {
		err = m.Save()
	}
	if err != nil {
		m.logger.Warn("Failed to save job journal", "error", err)
	}
}

// RecordRegistry stores the latest registry counters without writing
func (m *Manager) RecordRegistry(snap models.RegistrySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Jobs = nil
	m.journal.Registry = &snap
}

// GetJournal returns a read-only copy of the current journal
func (m *Manager) GetJournal() *models.JobJournal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyJournal()
}

// Close stops the async writer and waits for pending writes
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopWriter)
	})
	m.writeWg.Wait()

	m.errorMu.Lock()
	defer m.errorMu.Unlock()
	return m.writerError
}

func computeServiceHash(serviceURL string) string {
	hash := sha256.Sum256([]byte(strings.TrimRight(serviceURL, "/")))
	return fmt.Sprintf("%x", hash[:8]) // First 8 bytes
}
