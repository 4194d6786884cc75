package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisorhub/backoffice/internal/upgrade"
	"github.com/advisorhub/backoffice/pkg/middleware"
)

// UpgradeHandler exposes the guest-to-client workflow. Submission and
// eligibility are self-service; approve/reject sit behind the admin group.
type UpgradeHandler struct {
	svc *upgrade.Service
}

func NewUpgradeHandler(svc *upgrade.Service) *UpgradeHandler {
	return &UpgradeHandler{svc: svc}
}

// RegisterSelfService attaches guest-facing routes.
func (h *UpgradeHandler) RegisterSelfService(rg *gin.RouterGroup) {
	u := rg.Group("/upgrade-requests")
	u.POST("", h.Submit)
	u.GET("/eligibility", h.Eligibility)
}

// RegisterAdmin attaches review routes (caller adds admin auth).
func (h *UpgradeHandler) RegisterAdmin(rg *gin.RouterGroup) {
	u := rg.Group("/upgrade-requests")
	u.POST("/:id/approve", h.Approve)
	u.POST("/:id/reject", h.Reject)
}

type submitRequest struct {
	Details string            `json:"details"`
	Answers map[string]string `json:"answers"`
}

func (h *UpgradeHandler) Submit(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.svc.Submit(c.Request.Context(), id.Subject, req.Details, req.Answers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": created.ID, "status": created.Status})
}

func (h *UpgradeHandler) Eligibility(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	elig, err := h.svc.CheckEligibility(c.Request.Context(), id.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, elig)
}

func (h *UpgradeHandler) Approve(c *gin.Context) {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	req, err := h.svc.Approve(c.Request.Context(), c.Param("id"), actor.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          req.ID,
		"status":      req.Status,
		"processedBy": req.ProcessedBy,
		"processedAt": req.ProcessedAt,
	})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *UpgradeHandler) Reject(c *gin.Context) {
	actor, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var body rejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := h.svc.Reject(c.Request.Context(), c.Param("id"), body.Reason, actor.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     req.ID,
		"status": req.Status,
		"reason": req.RejectionReason,
	})
}
