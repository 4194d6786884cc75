package backup

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/pkg/logger"
	"github.com/advisorhub/backoffice/pkg/metrics"
)

// Engine creates, archives and restores snapshots of the relational state.
// Maintenance operations (create, restore) are mutually exclusive: a
// process-local gate always applies, and an optional Locker extends the gate
// across instances sharing the same store.
type Engine struct {
	store    store.Store
	dir      string
	systemID string
	locker   Locker
	gate     sync.Mutex
}

func NewEngine(st store.Store, dir, systemID string) *Engine {
	return &Engine{store: st, dir: dir, systemID: systemID}
}

// WithLocker attaches a distributed maintenance lock. Call before serving.
func (e *Engine) WithLocker(l Locker) *Engine {
	e.locker = l
	return e
}

// acquireMaintenance takes the exclusive maintenance gate. Returns a release
// func, or a ValidationError when another maintenance operation holds it.
func (e *Engine) acquireMaintenance(ctx context.Context) (func(), error) {
	if !e.gate.TryLock() {
		return nil, apperr.Validation("maintenance", "another maintenance operation is in progress")
	}
	if e.locker == nil {
		return e.gate.Unlock, nil
	}
	release, err := e.locker.Acquire(ctx)
	if err != nil {
		e.gate.Unlock()
		return nil, err
	}
	return func() {
		release()
		e.gate.Unlock()
	}, nil
}

// CreateSnapshot reads the selected collections and serializes them with
// version/type/timestamp metadata. Never mutates storage; returns no partial
// output on failure.
func (e *Engine) CreateSnapshot(ctx context.Context, sel Selection) ([]byte, error) {
	release, err := e.acquireMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.createSnapshotLocked(ctx, sel)
}

func (e *Engine) createSnapshotLocked(ctx context.Context, sel Selection) ([]byte, error) {
	snap := Snapshot{
		Version:   SupportedVersion,
		CreatedAt: time.Now().UTC(),
		Type:      sel.Type,
		BasedOn:   sel.BasedOn,
	}

	switch sel.Type {
	case TypeFull:
		ds, err := e.store.Dataset(ctx, nil)
		if err != nil {
			return nil, &apperr.DependencyError{Dep: "store", Err: err}
		}
		snap.Data = *ds
	case TypePartial:
		if len(sel.Collections) == 0 {
			return nil, apperr.Validation("collections", "partial snapshot requires at least one collection")
		}
		for c := range sel.Collections {
			if !store.KnownCollection(c) {
				return nil, apperr.Validation("collections", "unknown collection "+string(c))
			}
		}
		ds, err := e.store.Dataset(ctx, sel.Collections)
		if err != nil {
			return nil, &apperr.DependencyError{Dep: "store", Err: err}
		}
		snap.Data = *ds
	case TypeIncremental:
		logs, err := e.store.AuditLogsSince(ctx, sel.Since)
		if err != nil {
			return nil, &apperr.DependencyError{Dep: "store", Err: err}
		}
		snap.Data.AuditLogs = logs
	default:
		return nil, apperr.Validation("type", "unknown snapshot type "+string(sel.Type))
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return nil, &apperr.SerializationError{Err: err}
	}
	metrics.SnapshotsCreated.WithLabelValues(string(sel.Type)).Inc()
	return data, nil
}

// RestoreSnapshot deserializes the payload and performs a destructive full
// replace inside one transaction: collections are cleared children-first and
// reinserted parents-first, all-or-nothing. Only FULL payloads are accepted;
// anything else would silently drop the collections it does not carry.
func (e *Engine) RestoreSnapshot(ctx context.Context, data []byte) error {
	release, err := e.acquireMaintenance(ctx)
	if err != nil {
		return err
	}
	defer release()

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return &apperr.DeserializationError{Reason: "malformed payload", Err: err}
	}
	if snap.Version == "" {
		return &apperr.DeserializationError{Reason: "version tag missing"}
	}
	if snap.Version != SupportedVersion {
		return &apperr.DeserializationError{
			Reason: "unsupported version " + snap.Version + " (want " + SupportedVersion + ")",
		}
	}
	// restore is a destructive full replace, so a PARTIAL or INCREMENTAL
	// payload would erase every collection it does not carry
	if snap.Type != TypeFull {
		return apperr.Validation("type", "only FULL snapshots can be restored, got "+string(snap.Type))
	}

	err = e.store.InTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.Replace(ctx, &snap.Data)
	})
	if err != nil {
		metrics.RestoresTotal.WithLabelValues("error").Inc()
		return &apperr.DependencyError{Dep: "store", Err: err}
	}
	metrics.RestoresTotal.WithLabelValues("ok").Inc()
	logger.Infof("restored %s snapshot created at %s", snap.Type, snap.CreatedAt.Format(time.RFC3339))
	return nil
}

// PerformIncrementalBackup snapshots audit-log entries newer than the last
// archive's modification time (falling back to 24 hours ago if unreadable)
// and writes a single-entry incremental archive. Only audit logs carry
// change timestamps, so only they are captured.
func (e *Engine) PerformIncrementalBackup(ctx context.Context, lastArchivePath string) (string, error) {
	release, err := e.acquireMaintenance(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	since := time.Now().UTC().Add(-24 * time.Hour)
	basedOn := ""
	if info, err := statFile(lastArchivePath); err == nil {
		since = info.ModTime().UTC()
		basedOn = lastArchivePath
	} else {
		logger.Warnf("incremental backup: cannot stat %s, falling back to last 24h: %v", lastArchivePath, err)
	}

	data, err := e.createSnapshotLocked(ctx, Selection{Type: TypeIncremental, Since: since, BasedOn: basedOn})
	if err != nil {
		return "", err
	}
	return e.writeIncrementalArchive(data)
}
