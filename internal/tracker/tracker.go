package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"teepress/internal/domain"
	"teepress/internal/ports"
)

// document mirrors the on-disk ledger layout.
type document struct {
	Uploaded map[string]domain.UploadRecord  `json:"uploaded"`
	Failed   map[string]domain.FailureRecord `json:"failed"`
	Stats    Stats                           `json:"stats"`
}

// Stats summarizes ledger partition sizes.
type Stats struct {
	TotalUploaded int `json:"total_uploaded"`
	TotalFailed   int `json:"total_failed"`
}

// Tracker is the file-backed fingerprint ledger. Every mutation is written
// through to disk before it returns, so an interrupted run never forgets an
// outcome it already reported.
type Tracker struct {
	path string

	mu   sync.Mutex
	data document
}

var _ ports.Tracker = (*Tracker)(nil)

// Load opens the ledger at path. A missing file yields an empty ledger; a
// file that exists but cannot be parsed is an error, not a silent reset.
func Load(path string) (*Tracker, error) {
	t := &Tracker{path: path, data: emptyDocument()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tracker %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &t.data); err != nil {
		return nil, fmt.Errorf("parse tracker %s: %w", path, err)
	}
	if t.data.Uploaded == nil {
		t.data.Uploaded = map[string]domain.UploadRecord{}
	}
	if t.data.Failed == nil {
		t.data.Failed = map[string]domain.FailureRecord{}
	}

	return t, nil
}

func emptyDocument() document {
	return document{
		Uploaded: map[string]domain.UploadRecord{},
		Failed:   map[string]domain.FailureRecord{},
	}
}

// Path returns the ledger location on disk.
func (t *Tracker) Path() string {
	return t.path
}

// IsUploaded reports whether the fingerprint already published successfully.
func (t *Tracker) IsUploaded(fingerprint string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.data.Uploaded[fingerprint]
	return ok
}

// Uploaded returns the success record for a fingerprint, when present.
func (t *Tracker) Uploaded(fingerprint string) (domain.UploadRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.data.Uploaded[fingerprint]
	return rec, ok
}

// RecordSuccess stores the outcome and drops any stale failure for the same
// fingerprint; a fingerprint lives in at most one partition.
func (t *Tracker) RecordSuccess(fingerprint string, rec domain.UploadRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Uploaded[fingerprint] = rec
	delete(t.data.Failed, fingerprint)
	return t.persist()
}

// RecordFailure stores the failure, likewise keeping the partitions disjoint.
func (t *Tracker) RecordFailure(fingerprint string, rec domain.FailureRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Failed[fingerprint] = rec
	delete(t.data.Uploaded, fingerprint)
	return t.persist()
}

// UploadedEntries returns success records ordered by fingerprint.
func (t *Tracker) UploadedEntries() []domain.UploadedEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]domain.UploadedEntry, 0, len(t.data.Uploaded))
	for fp, rec := range t.data.Uploaded {
		entries = append(entries, domain.UploadedEntry{Fingerprint: fp, Record: rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Fingerprint < entries[j].Fingerprint })
	return entries
}

// FailedEntries returns failure records ordered by fingerprint, so retry
// runs walk them in a stable order.
func (t *Tracker) FailedEntries() []domain.FailedEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]domain.FailedEntry, 0, len(t.data.Failed))
	for fp, rec := range t.data.Failed {
		entries = append(entries, domain.FailedEntry{Fingerprint: fp, Record: rec})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Fingerprint < entries[j].Fingerprint })
	return entries
}

// Stats reports current partition sizes.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{TotalUploaded: len(t.data.Uploaded), TotalFailed: len(t.data.Failed)}
}

// Reset drops every record and persists the empty ledger.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = emptyDocument()
	return t.persist()
}

// persist writes the document to a temp file and renames it over the ledger.
// A crash mid-write leaves the previous ledger intact, never a truncated one.
func (t *Tracker) persist() error {
	t.data.Stats = Stats{TotalUploaded: len(t.data.Uploaded), TotalFailed: len(t.data.Failed)}

	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracker: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tracker dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tracker-*")
	if err != nil {
		return fmt.Errorf("create temp tracker: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp tracker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp tracker: %w", err)
	}
	if err := os.Rename(tmp.Name(), t.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace tracker: %w", err)
	}

	return nil
}
