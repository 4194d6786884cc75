package backup

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/pkg/logger"
	"github.com/advisorhub/backoffice/pkg/metrics"
)

const (
	payloadEntry  = "backup.json"
	metadataEntry = "metadata.json"

	archivePrefix     = "backup-"
	incrementalPrefix = "backup-incremental-"
	archiveSuffix     = ".zip"
	archiveTimeLayout = "20060102-150405"
)

func statFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, os.ErrInvalid
	}
	return info, nil
}

// WriteArchive packages the serialized snapshot plus a metadata record into
// a two-entry zip under the configured directory. The write is atomic from
// the caller's perspective: content goes to a temp file first and is renamed
// into place, so no partial archive is ever visible.
func (e *Engine) WriteArchive(data []byte, t Type) (string, error) {
	meta := Metadata{
		Version:   SupportedVersion,
		CreatedAt: time.Now().UTC(),
		Type:      t,
		System:    e.systemID,
	}
	metaBytes, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return "", &apperr.SerializationError{Err: err}
	}
	name := archivePrefix + meta.CreatedAt.Format(archiveTimeLayout) + archiveSuffix
	return e.writeArchiveEntries(name, map[string][]byte{
		payloadEntry:  data,
		metadataEntry: metaBytes,
	})
}

func (e *Engine) writeIncrementalArchive(data []byte) (string, error) {
	name := incrementalPrefix + time.Now().UTC().Format(archiveTimeLayout) + archiveSuffix
	return e.writeArchiveEntries(name, map[string][]byte{payloadEntry: data})
}

func (e *Engine) writeArchiveEntries(name string, entries map[string][]byte) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", &apperr.IOError{Op: "create backup directory", Err: err}
	}
	tmp, err := os.CreateTemp(e.dir, ".backup-*.tmp")
	if err != nil {
		return "", &apperr.IOError{Op: "create temp archive", Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	zw := zip.NewWriter(tmp)
	// deterministic entry order: payload first
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			cleanup()
			return "", &apperr.IOError{Op: "write archive entry " + n, Err: err}
		}
		if _, err := w.Write(entries[n]); err != nil {
			cleanup()
			return "", &apperr.IOError{Op: "write archive entry " + n, Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return "", &apperr.IOError{Op: "finalize archive", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &apperr.IOError{Op: "close temp archive", Err: err}
	}

	path := filepath.Join(e.dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", &apperr.IOError{Op: "rename archive into place", Err: err}
	}
	return path, nil
}

// ValidateArchive reports whether path is a regular file containing exactly
// the two expected entries. It never returns an error: unreadable paths
// (including permission failures) are simply invalid.
func (e *Engine) ValidateArchive(path string) bool {
	if _, err := statFile(path); err != nil {
		return false
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return false
	}
	defer zr.Close()

	if len(zr.File) != 2 {
		return false
	}
	seen := map[string]bool{}
	for _, f := range zr.File {
		seen[f.Name] = true
	}
	return seen[payloadEntry] && seen[metadataEntry]
}

// ReadArchivePayload extracts the serialized snapshot from an archive.
// Works for both full (two-entry) and incremental (single-entry) archives.
func (e *Engine) ReadArchivePayload(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &apperr.IOError{Op: "open archive " + filepath.Base(path), Err: err}
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != payloadEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &apperr.IOError{Op: "open payload entry", Err: err}
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &apperr.IOError{Op: "read payload entry", Err: err}
		}
		return data, nil
	}
	return nil, &apperr.DeserializationError{Reason: "archive has no " + payloadEntry + " entry"}
}

// ListArchives enumerates archive files in the backup directory, newest
// first by the timestamp embedded in the filename.
func (e *Engine) ListArchives() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &apperr.IOError{Op: "read backup directory", Err: err}
	}
	var names []string
	for _, entry := range entries {
		n := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(n, archivePrefix) && strings.HasSuffix(n, archiveSuffix) {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return archiveTimestamp(names[i]).After(archiveTimestamp(names[j]))
	})
	return names, nil
}

// archiveTimestamp parses the timestamp embedded in an archive filename.
// Unparseable names sort as zero time (oldest).
func archiveTimestamp(name string) time.Time {
	s := strings.TrimSuffix(name, archiveSuffix)
	s = strings.TrimPrefix(s, incrementalPrefix)
	s = strings.TrimPrefix(s, archivePrefix)
	t, err := time.Parse(archiveTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CleanupOldArchives deletes archives whose last-modified time precedes
// now minus retentionDays. Per-file failures are logged and skipped; the
// returned count reflects files actually deleted.
func (e *Engine) CleanupOldArchives(retentionDays int) (int, error) {
	names, err := e.ListArchives()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, n := range names {
		path := filepath.Join(e.dir, n)
		info, err := os.Stat(path)
		if err != nil {
			logger.Warnf("cleanup: stat %s: %v", n, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warnf("cleanup: remove %s: %v", n, err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		metrics.ArchivesDeleted.Add(float64(deleted))
		logger.Infof("cleanup removed %d archive(s) older than %d day(s)", deleted, retentionDays)
	}
	return deleted, nil
}

// ArchivePath resolves an archive name inside the backup directory,
// rejecting anything that escapes it.
func (e *Engine) ArchivePath(name string) (string, error) {
	if name != filepath.Base(name) || !strings.HasPrefix(name, archivePrefix) {
		return "", apperr.Validation("name", "invalid archive name")
	}
	return filepath.Join(e.dir, name), nil
}
