package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Baaaki/stockroom/pkg/logger"
	"go.uber.org/zap"
)

// Entry records one admin-side mutation.
type Entry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`     // username of the acting admin
	Action    string    `json:"action"`    // e.g. item.create, user.role_update
	Entity    string    `json:"entity"`    // item | user
	EntityID  string    `json:"entity_id"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Trail is an append-only JSON-lines file of admin actions. Every write
// is fsynced so the trail survives a crash mid-request.
type Trail struct {
	filePath string
	file     *os.File
	mu       sync.Mutex
}

func NewTrail(filePath string) (*Trail, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// READ+WRITE+APPEND so Append and ReadAll can share the handle.
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Trail{
		filePath: filePath,
		file:     file,
	}, nil
}

// Append writes an entry and syncs it to disk.
func (t *Trail) Append(entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Log.Error("Audit: failed to marshal entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}

	if _, err := t.file.WriteString(string(data) + "\n"); err != nil {
		logger.Log.Error("Audit: failed to write entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}

	if err := t.file.Sync(); err != nil {
		logger.Log.Error("Audit: failed to sync to disk",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// ReadAll returns every entry currently in the trail, oldest first.
func (t *Trail) ReadAll() ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.readAllUnsafe()
}

// Prune drops entries older than cutoff by rewriting the file through a
// temp file and an atomic rename, then reopens the append handle.
func (t *Trail) Prune(cutoff time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	allEntries, err := t.readAllUnsafe()
	if err != nil {
		logger.Log.Error("Audit: failed to read entries for prune", zap.Error(err))
		return err
	}

	var remaining []Entry
	for _, entry := range allEntries {
		if !entry.Timestamp.Before(cutoff) {
			remaining = append(remaining, entry)
		}
	}

	if len(remaining) == len(allEntries) {
		return nil
	}

	if err := t.file.Close(); err != nil {
		logger.Log.Error("Audit: failed to close file for prune", zap.Error(err))
		return err
	}

	tempFile := t.filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		logger.Log.Error("Audit: failed to create temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return err
	}

	for _, entry := range remaining {
		data, _ := json.Marshal(entry)
		f.WriteString(string(data) + "\n")
	}

	f.Sync()
	f.Close()

	if err := os.Rename(tempFile, t.filePath); err != nil {
		logger.Log.Error("Audit: failed to rename temp file",
			zap.String("temp_file", tempFile),
			zap.Error(err),
		)
		return err
	}

	// Reopen with the same flags so later Appends land in the new file.
	newFile, err := os.OpenFile(t.filePath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		logger.Log.Error("Audit: failed to reopen file after prune",
			zap.String("file_path", t.filePath),
			zap.Error(err),
		)
		return err
	}
	t.file = newFile

	logger.Log.Info("Audit: prune completed",
		zap.Int("before_count", len(allEntries)),
		zap.Int("remaining_count", len(remaining)),
	)

	return nil
}

// readAllUnsafe reads all entries without locking (internal use only).
func (t *Trail) readAllUnsafe() ([]Entry, error) {
	file, err := os.Open(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			// Skip torn or corrupt lines rather than losing the rest.
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

// Close closes the underlying file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
