// Package backup snapshots the full note collection plus settings into
// versioned, timestamped records with capacity-bounded retention.
//
// Backup records are immutable once written and live in their own key
// namespace, so backup operations never contend with note mutations
// beyond the repository's documented load-modify-save race. A later
// permanent delete of a note does not touch historical backups.
package backup

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/kvstore"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/query"
	"github.com/starford/laguz/internal/repository"
)

// Persisted state keys.
const (
	RecordKeyPrefix = "backup_data_"
	ListKey         = "backup_data_list"
	LastBackupKey   = "last_backup"
)

// Engine implements snapshot, restore, import/export, and retention.
type Engine struct {
	store      kvstore.Provider
	repo       *repository.Repository
	version    string
	maxBackups int
	interval   time.Duration
	logger     *slog.Logger
}

// New creates a backup engine. version is stamped into every record for
// forward-compatibility checks on restore; maxBackups caps retention;
// interval drives NeedsAutoBackup.
func New(store kvstore.Provider, repo *repository.Repository, version string, maxBackups int, interval time.Duration, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		repo:       repo,
		version:    version,
		maxBackups: maxBackups,
		interval:   interval,
		logger:     logger,
	}
}

// Create captures the current notes and settings into a new record,
// prepends its metadata to the index, refreshes the last-backup
// timestamp, and trims retention. Retention failures are logged only.
func (e *Engine) Create(source string) (*models.BackupMetadata, error) {
	notes, err := e.repo.LoadAll()
	if err != nil {
		return nil, err
	}
	settings, err := e.repo.LoadSettings()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta := models.BackupMetadata{
		ID:              newBackupID(now),
		Version:         e.version,
		Timestamp:       now,
		NotesCount:      len(notes),
		CategoriesCount: len(query.Categories(notes)),
		TagsCount:       len(query.Tags(notes)),
		Source:          source,
	}

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, apperr.StorageWrite(RecordKeyPrefix+meta.ID, err)
	}
	record := models.BackupRecord{
		ID:        meta.ID,
		Version:   e.version,
		Timestamp: now,
		Notes:     notes,
		Settings:  settings,
		Metadata:  meta,
		Checksum:  checksum.Sum(notesJSON),
	}

	if err := e.writeRecord(record); err != nil {
		return nil, err
	}
	if err := e.prependToList(meta); err != nil {
		e.removeOrphanedRecord(meta.ID)
		return nil, err
	}
	if err := e.setLastBackup(now); err != nil {
		e.logger.Warn("last-backup timestamp update failed", slog.String("error", err.Error()))
	}

	if err := e.enforceRetention(); err != nil {
		e.logger.Warn("retention cleanup failed", slog.String("error", err.Error()))
	}

	return &meta, nil
}

// Restore overwrites the live note collection and settings with the
// record's snapshot. Full overwrite, not a merge.
func (e *Engine) Restore(id string) error {
	record, err := e.loadRecord(id)
	if err != nil {
		return err
	}
	if err := e.repo.SaveAll(record.Notes); err != nil {
		return err
	}
	return e.repo.SaveSettings(record.Settings)
}

// List returns backup metadata sorted newest-first by timestamp.
func (e *Engine) List() ([]models.BackupMetadata, error) {
	list, err := e.loadList()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	return list, nil
}

// Delete removes a record and its index entry. Idempotent. The index
// entry goes first: a failure between the two steps leaves an
// unreferenced record, never an index entry pointing at nothing.
func (e *Engine) Delete(id string) error {
	list, err := e.loadList()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if err := e.saveList(kept); err != nil {
		return err
	}
	if err := e.store.Remove(RecordKeyPrefix + id); err != nil {
		return apperr.StorageWrite(RecordKeyPrefix+id, err)
	}
	return nil
}

// Export serializes the full record as JSON.
func (e *Engine) Export(id string) (string, error) {
	data, err := e.store.Get(RecordKeyPrefix + id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("backup %s: %w", id, apperr.ErrNotFound)
		}
		return "", apperr.StorageRead(RecordKeyPrefix+id, err)
	}
	return string(data), nil
}

// Import parses and structurally validates an exported record, assigns
// a fresh id and timestamp, and adds it to the index. Imported records
// count toward the retention cap.
func (e *Engine) Import(jsonStr string) (*models.BackupMetadata, error) {
	if err := validateImport([]byte(jsonStr)); err != nil {
		return nil, err
	}

	var record models.BackupRecord
	if err := json.Unmarshal([]byte(jsonStr), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidFormat, err)
	}

	if record.Checksum != "" {
		notesJSON, _ := json.Marshal(record.Notes)
		if checksum.Sum(notesJSON) != record.Checksum {
			e.logger.Warn("imported backup checksum mismatch", slog.String("id", record.ID))
		}
	}

	// The imported timestamp is never reused as a storage key.
	now := time.Now().UTC()
	record.ID = newBackupID(now)
	record.Timestamp = now
	record.Metadata.ID = record.ID
	record.Metadata.Timestamp = now
	if record.Metadata.Source == "" {
		record.Metadata.Source = models.BackupSourceManual
	}

	if err := e.writeRecord(record); err != nil {
		return nil, err
	}
	if err := e.prependToList(record.Metadata); err != nil {
		e.removeOrphanedRecord(record.ID)
		return nil, err
	}
	if err := e.enforceRetention(); err != nil {
		e.logger.Warn("retention cleanup failed", slog.String("error", err.Error()))
	}

	meta := record.Metadata
	return &meta, nil
}

// NeedsAutoBackup reports whether no backup exists yet or the configured
// interval has elapsed since the last one.
func (e *Engine) NeedsAutoBackup() (bool, error) {
	data, err := e.store.Get(LastBackupKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, apperr.StorageRead(LastBackupKey, err)
	}
	var last time.Time
	if err := json.Unmarshal(data, &last); err != nil {
		return true, nil
	}
	return time.Since(last) >= e.interval, nil
}

// validateImport checks the structural shape of an exported record:
// version is a string, timestamp is present, notes is a list, settings
// and metadata.notes_count are present.
func validateImport(data []byte) error {
	var probe struct {
		Version   json.RawMessage `json:"version"`
		Timestamp json.RawMessage `json:"timestamp"`
		Notes     json.RawMessage `json:"notes"`
		Settings  json.RawMessage `json:"settings"`
		Metadata  struct {
			NotesCount json.RawMessage `json:"notes_count"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidFormat, err)
	}

	var version string
	if probe.Version == nil || json.Unmarshal(probe.Version, &version) != nil {
		return fmt.Errorf("%w: version must be a string", apperr.ErrInvalidFormat)
	}
	if probe.Timestamp == nil {
		return fmt.Errorf("%w: timestamp is missing", apperr.ErrInvalidFormat)
	}
	var notes []json.RawMessage
	if probe.Notes == nil || json.Unmarshal(probe.Notes, &notes) != nil {
		return fmt.Errorf("%w: notes must be a list", apperr.ErrInvalidFormat)
	}
	if probe.Settings == nil {
		return fmt.Errorf("%w: settings is missing", apperr.ErrInvalidFormat)
	}
	if probe.Metadata.NotesCount == nil {
		return fmt.Errorf("%w: metadata.notes_count is missing", apperr.ErrInvalidFormat)
	}
	return nil
}

// removeOrphanedRecord reclaims a record whose index entry could not be
// written. Best-effort: a leftover record is unreferenced and harmless,
// a failure here only costs space.
func (e *Engine) removeOrphanedRecord(id string) {
	if err := e.store.Remove(RecordKeyPrefix + id); err != nil {
		e.logger.Warn("orphaned record cleanup failed",
			slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (e *Engine) writeRecord(record models.BackupRecord) error {
	key := RecordKeyPrefix + record.ID
	data, err := json.Marshal(record)
	if err != nil {
		return apperr.StorageWrite(key, err)
	}
	if err := e.store.Set(key, data); err != nil {
		return apperr.StorageWrite(key, err)
	}
	return nil
}

func (e *Engine) loadRecord(id string) (*models.BackupRecord, error) {
	key := RecordKeyPrefix + id
	data, err := e.store.Get(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("backup %s: %w", id, apperr.ErrNotFound)
		}
		return nil, apperr.StorageRead(key, err)
	}
	var record models.BackupRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, apperr.StorageRead(key, err)
	}
	return &record, nil
}

func (e *Engine) loadList() ([]models.BackupMetadata, error) {
	data, err := e.store.Get(ListKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.BackupMetadata{}, nil
		}
		return nil, apperr.StorageRead(ListKey, err)
	}
	var list []models.BackupMetadata
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperr.StorageRead(ListKey, err)
	}
	return list, nil
}

func (e *Engine) saveList(list []models.BackupMetadata) error {
	data, err := json.Marshal(list)
	if err != nil {
		return apperr.StorageWrite(ListKey, err)
	}
	if err := e.store.Set(ListKey, data); err != nil {
		return apperr.StorageWrite(ListKey, err)
	}
	return nil
}

func (e *Engine) prependToList(meta models.BackupMetadata) error {
	list, err := e.loadList()
	if err != nil {
		return err
	}
	return e.saveList(append([]models.BackupMetadata{meta}, list...))
}

// enforceRetention deletes the oldest backups beyond the configured cap.
func (e *Engine) enforceRetention() error {
	list, err := e.loadList()
	if err != nil {
		return err
	}
	if e.maxBackups <= 0 || len(list) <= e.maxBackups {
		return nil
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})
	for _, old := range list[e.maxBackups:] {
		if err := e.store.Remove(RecordKeyPrefix + old.ID); err != nil {
			e.logger.Warn("retention: record delete failed",
				slog.String("id", old.ID), slog.String("error", err.Error()))
		} else {
			e.logger.Debug("retention: removed old backup", slog.String("id", old.ID))
		}
	}
	return e.saveList(list[:e.maxBackups])
}

func (e *Engine) setLastBackup(ts time.Time) error {
	data, err := json.Marshal(ts)
	if err != nil {
		return err
	}
	return e.store.Set(LastBackupKey, data)
}

// newBackupID derives an id from the timestamp plus a random suffix.
func newBackupID(ts time.Time) string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), hex.EncodeToString(suffix))
}
