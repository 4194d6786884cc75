package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/advisorhub/backoffice/internal/backup"
	"github.com/advisorhub/backoffice/internal/config"
	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/internal/store"
)

func newBackupRouter(t *testing.T, st store.Store) (*gin.Engine, *backup.Engine) {
	t.Helper()
	engine := backup.NewEngine(st, t.TempDir(), "test")
	r := gin.New()
	h := NewBackupHandler(engine, nil, config.BackupConfig{RetentionDays: 30})
	h.Register(r.Group("/api/admin"))
	return r, engine
}

func seededStore() *store.MemoryStore {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()
	st.Seed(&models.Dataset{
		Accounts: []models.Account{{ID: "acc-1", Email: "a@x.com", Role: models.RoleAdmin, CreatedAt: now, UpdatedAt: now}},
		Configs:  []models.SystemConfig{{Key: "retention", Value: "30", UpdatedAt: now}},
	})
	return st
}

func TestBackupHandler_CreateListRestore(t *testing.T) {
	st := seededStore()
	r, _ := newBackupRouter(t, st)

	// create a full backup
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backups", strings.NewReader(`{"type":"full"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	name := filepath.Base(created["path"])
	require.True(t, strings.HasPrefix(name, "backup-"))

	// it shows up in the listing
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/backups", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), name)

	// validate endpoint agrees
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/backups/"+name+"/validate", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"valid":true`)

	// wipe the store, then restore from the archive
	require.NoError(t, st.Replace(context.Background(), &models.Dataset{}))
	ds, err := st.Dataset(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, ds.Accounts)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups/restore", strings.NewReader(`{"archive":"`+name+`"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	ds, err = st.Dataset(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, ds.Accounts, 1)
	require.Equal(t, "acc-1", ds.Accounts[0].ID)
}

func TestBackupHandler_CreatePartial(t *testing.T) {
	r, _ := newBackupRouter(t, seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backups",
		strings.NewReader(`{"type":"partial","collections":["accounts"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestBackupHandler_BadRequests(t *testing.T) {
	r, _ := newBackupRouter(t, seededStore())

	// unknown type
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backups", strings.NewReader(`{"type":"weekly"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// partial without collections
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups", strings.NewReader(`{"type":"partial"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// partial with a typo'd collection name
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups",
		strings.NewReader(`{"type":"partial","collections":["Accounts"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "unknown collection")

	// restore of a nonexistent archive
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups/restore",
		strings.NewReader(`{"archive":"backup-20200101-000000.zip"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// restore with a traversal name
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups/restore",
		strings.NewReader(`{"archive":"../../etc/passwd"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupHandler_Cleanup(t *testing.T) {
	r, _ := newBackupRouter(t, seededStore())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backups/cleanup", strings.NewReader(`{"retentionDays":30}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"deleted":0`)

	// an empty body falls back to the configured retention
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups/cleanup", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"deleted":0`)

	// zero retention is refused rather than deleting everything
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/backups/cleanup", strings.NewReader(`{"retentionDays":0}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackupHandler_Download(t *testing.T) {
	st := seededStore()
	r, _ := newBackupRouter(t, st)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/backups", strings.NewReader(`{"type":"full"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	name := filepath.Base(created["path"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/backups/"+name+"/download", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotZero(t, w.Body.Len())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/backups/backup-19990101-000000.zip/download", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
