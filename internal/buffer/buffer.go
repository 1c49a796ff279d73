// Package buffer spools reports that could not be pushed. The spool holds at
// most one pending report per target; a fresher report for a host replaces
// the one already waiting.
package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guliveer/assetprobe/internal/models"
)

// Entry is one pending delivery.
type Entry struct {
	// Target is the connection host the report describes; it keys the spool.
	Target      string        `json:"target"`
	ProbeID     string        `json:"probe_id,omitempty"`
	CollectedAt time.Time     `json:"collected_at"`
	StoredAt    time.Time     `json:"stored_at"`
	Attempts    int           `json:"attempts"`
	Report      models.Report `json:"report"`
}

// Partial reports whether the probe finished with warnings or failed.
func (e Entry) Partial() bool {
	if e.Report.OnlineStatus == models.StatusOffline {
		return true
	}
	return e.Report.Asset != nil && len(e.Report.Asset.Warnings) > 0
}

// Buffer is a directory of spooled entries, one JSON file per target.
type Buffer struct {
	dir       string
	maxSizeMB int
	logger    *zap.Logger
	mu        sync.Mutex
}

// New opens the spool at dir, creating the directory if needed. A
// maxSizeMB of zero disables the size cap.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{
		dir:       dir,
		maxSizeMB: maxSizeMB,
		logger:    logger,
	}, nil
}

// fileName maps a target to a stable file name.
func fileName(target string) string {
	key := strings.ToLower(strings.TrimSpace(target))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("assetprobe:"+key)).String() + ".json"
}

// Store spools e, replacing the pending entry for the same target. An entry
// collected earlier than the one already spooled is ignored.
func (b *Buffer) Store(e Entry) error {
	if strings.TrimSpace(e.Target) == "" {
		return fmt.Errorf("spool entry has no target")
	}
	if e.Report.Asset == nil {
		return fmt.Errorf("spool entry for %s has no asset", e.Target)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	path := filepath.Join(b.dir, fileName(e.Target))
	if old, err := readEntry(path); err == nil {
		if old.CollectedAt.After(e.CollectedAt) {
			b.logger.Debug("Newer report already spooled",
				zap.String("target", e.Target),
				zap.String("spooled_probe_id", old.ProbeID))
			return nil
		}
		b.logger.Info("Replacing spooled report",
			zap.String("target", e.Target),
			zap.String("old_probe_id", old.ProbeID),
			zap.String("probe_id", e.ProbeID))
	}

	if b.maxSizeMB > 0 && b.currentSizeMB() >= b.maxSizeMB {
		b.dropOldest(path)
	}

	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}

// Pending returns the spooled entries without removing them, oldest
// collection first.
func (b *Buffer) Pending() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scan(false)
}

// RetrieveAll returns the spooled entries and removes their files, oldest
// collection first. Unreadable entries are removed and logged.
func (b *Buffer) RetrieveAll() ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scan(true)
}

// Count returns the number of spooled entries.
func (b *Buffer) Count() int {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if isSpoolFile(e) {
			count++
		}
	}
	return count
}

// scan reads every spool file. Must be called with b.mu held.
func (b *Buffer) scan(remove bool) ([]Entry, error) {
	files, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, f := range files {
		if !isSpoolFile(f) {
			continue
		}
		path := filepath.Join(b.dir, f.Name())
		e, err := readEntry(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			b.logger.Warn("Removing unreadable spool file",
				zap.String("file", path),
				zap.Error(err))
			os.Remove(path)
			continue
		}
		out = append(out, e)
		if remove {
			os.Remove(path)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CollectedAt.Before(out[j].CollectedAt)
	})
	return out, nil
}

func readEntry(path string) (Entry, error) {
	var e Entry
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, err
	}
	if e.Target == "" || e.Report.Asset == nil {
		return e, fmt.Errorf("incomplete spool entry")
	}
	return e, nil
}

func isSpoolFile(e fs.DirEntry) bool {
	return !e.IsDir() && filepath.Ext(e.Name()) == ".json"
}

// currentSizeMB returns the total size of the spool in megabytes.
// Must be called with b.mu held.
func (b *Buffer) currentSizeMB() int {
	var totalSize int64
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0
	}
	for _, entry := range entries {
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
	}
	return int(totalSize / (1024 * 1024))
}

// dropOldest removes the least recently written entry other than keep.
// Must be called with b.mu held.
func (b *Buffer) dropOldest(keep string) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return
	}
	var (
		oldest  string
		oldestT time.Time
	)
	for _, entry := range entries {
		path := filepath.Join(b.dir, entry.Name())
		if !isSpoolFile(entry) || path == keep {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if oldest == "" || info.ModTime().Before(oldestT) {
			oldest, oldestT = path, info.ModTime()
		}
	}
	if oldest == "" {
		return
	}
	b.logger.Warn("Spool full, dropping oldest report", zap.String("file", oldest))
	if err := os.Remove(oldest); err != nil {
		b.logger.Warn("Failed to remove spool file",
			zap.String("file", oldest),
			zap.Error(err))
	}
}
