package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advisorhub/backoffice/internal/apperr"
	"github.com/advisorhub/backoffice/pkg/logger"
)

// writeError maps the error taxonomy onto HTTP statuses. Validation and
// not-found details go back to the caller; I/O, codec and dependency
// failures are logged in full and surfaced as a generic failure so internal
// paths never leak.
func writeError(c *gin.Context, err error) {
	var (
		vErr *apperr.ValidationError
		nErr *apperr.NotFoundError
		iErr *apperr.IOError
		sErr *apperr.SerializationError
		dErr *apperr.DeserializationError
		pErr *apperr.DependencyError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &nErr):
		c.JSON(http.StatusNotFound, gin.H{"error": nErr.Error()})
	case errors.As(err, &dErr):
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot payload is invalid"})
	case errors.As(err, &iErr), errors.As(err, &sErr), errors.As(err, &pErr):
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
