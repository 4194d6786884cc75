package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/advisorhub/backoffice/internal/backup"
	"github.com/advisorhub/backoffice/internal/config"
	"github.com/advisorhub/backoffice/internal/storage"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/pkg/logger"
)

// BackupHandler exposes the snapshot engine to admins.
type BackupHandler struct {
	engine  *backup.Engine
	archive *storage.ArchiveStorage // optional off-site mirror
	cfg     config.BackupConfig
}

func NewBackupHandler(engine *backup.Engine, archive *storage.ArchiveStorage, cfg config.BackupConfig) *BackupHandler {
	return &BackupHandler{engine: engine, archive: archive, cfg: cfg}
}

// Register routes under /backups (caller attaches admin auth).
func (h *BackupHandler) Register(rg *gin.RouterGroup) {
	b := rg.Group("/backups")
	b.POST("", h.Create)
	b.GET("", h.List)
	b.POST("/restore", h.Restore)
	b.POST("/cleanup", h.Cleanup)
	b.GET("/:name/validate", h.Validate)
	b.GET("/:name/download", h.Download)
}

type createBackupRequest struct {
	Type        string   `json:"type" binding:"required"` // full | partial | incremental
	Collections []string `json:"collections"`
	LastArchive string   `json:"lastArchive"`
}

func (h *BackupHandler) Create(c *gin.Context) {
	var req createBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		path string
		err  error
	)
	switch req.Type {
	case "full":
		var data []byte
		data, err = h.engine.CreateSnapshot(c.Request.Context(), backup.FullSelection())
		if err == nil {
			path, err = h.engine.WriteArchive(data, backup.TypeFull)
		}
	case "partial":
		cols := make([]store.Collection, 0, len(req.Collections))
		for _, name := range req.Collections {
			cols = append(cols, store.Collection(name))
		}
		var data []byte
		data, err = h.engine.CreateSnapshot(c.Request.Context(), backup.PartialSelection(cols...))
		if err == nil {
			path, err = h.engine.WriteArchive(data, backup.TypePartial)
		}
	case "incremental":
		path, err = h.engine.PerformIncrementalBackup(c.Request.Context(), req.LastArchive)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be full, partial or incremental"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"path": path}
	if h.archive != nil {
		key, upErr := h.archive.UploadArchive(c.Request.Context(), path)
		if upErr != nil {
			// local archive exists; the mirror is best-effort
			logger.Warnf("archive mirror upload failed: %v", upErr)
		} else {
			resp["objectKey"] = key
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BackupHandler) List(c *gin.Context) {
	names, err := h.engine.ListArchives()
	if err != nil {
		writeError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"archives": names})
}

type restoreRequest struct {
	Archive string `json:"archive" binding:"required"`
}

func (h *BackupHandler) Restore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := h.engine.ArchivePath(req.Archive)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.engine.ValidateArchive(path) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive is missing or not a valid backup"})
		return
	}
	data, err := h.engine.ReadArchivePayload(path)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.engine.RestoreSnapshot(c.Request.Context(), data); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restored": req.Archive})
}

type cleanupRequest struct {
	RetentionDays *int `json:"retentionDays"`
}

func (h *BackupHandler) Cleanup(c *gin.Context) {
	var req cleanupRequest
	// an empty body is fine: it means "use the configured retention"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	days := h.cfg.RetentionDays
	if req.RetentionDays != nil {
		days = *req.RetentionDays
	}
	if days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "retentionDays must be positive"})
		return
	}
	deleted, err := h.engine.CleanupOldArchives(days)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *BackupHandler) Validate(c *gin.Context) {
	path, err := h.engine.ArchivePath(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": h.engine.ValidateArchive(path)})
}

func (h *BackupHandler) Download(c *gin.Context) {
	name := c.Param("name")
	path, err := h.engine.ArchivePath(name)
	if err != nil {
		writeError(c, err)
		return
	}
	if !h.engine.ValidateArchive(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive not found"})
		return
	}
	// prefer a presigned object-storage URL when the mirror is configured
	if h.archive != nil {
		if u, err := h.archive.PresignedArchiveURL(c.Request.Context(), name, 15*time.Minute); err == nil {
			c.Redirect(http.StatusTemporaryRedirect, u)
			return
		}
	}
	c.FileAttachment(path, name)
}
