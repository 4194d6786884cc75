package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/internal/stocks"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/pkg/middleware"
)

// PortfolioHandler values a client's investments against the stock-price
// provider (a deterministic stub in this deployment). Admins and employees
// may read any portfolio; a client-role caller only their own.
type PortfolioHandler struct {
	store    store.Store
	provider stocks.Provider
}

func NewPortfolioHandler(st store.Store, p stocks.Provider) *PortfolioHandler {
	return &PortfolioHandler{store: st, provider: p}
}

func (h *PortfolioHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/clients/:id/portfolio", h.Valuation)
}

func (h *PortfolioHandler) Valuation(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	clientID := c.Param("id")
	if id.Role == string(models.RoleClient) {
		client, err := h.store.Client(c.Request.Context(), clientID)
		if err != nil {
			if err == store.ErrNotFound {
				writeError(c, apperr.NotFound("client", clientID))
			} else {
				writeError(c, err)
			}
			return
		}
		if client.AccountID != id.Subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "clients may only view their own portfolio"})
			return
		}
	}
	investments, err := h.store.InvestmentsByClient(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	valuation, err := stocks.Value(c.Request.Context(), h.provider, investments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, valuation)
}
