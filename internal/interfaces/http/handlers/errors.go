// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/workshop-backend/internal/domain/shared"
)

// respondDomainError maps domain error codes to HTTP status codes and writes
// the error response. Unknown errors become an opaque 500.
func respondDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case shared.CodeNotFound:
		status = http.StatusNotFound
	case shared.CodeInvalidInput:
		status = http.StatusBadRequest
	case shared.CodeInsufficientStock, shared.CodeOverShipment, shared.CodeInvalidTransition, shared.CodeConcurrencyConflict:
		status = http.StatusConflict
	case shared.CodeInvariantViolation:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"error": domainErr.Message,
		"code":  domainErr.Code,
	})
}
