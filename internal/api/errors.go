package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarang-screening-server/internal/domain"
	"github.com/tarang-screening-server/internal/middleware"
)

// respondError maps an error to its HTTP status and writes an APIError body.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, domain.NewAPIError(domain.ErrValidation, verr.Message, verr.Error(), requestID))
	case errors.Is(err, domain.ErrTenantRequired):
		c.JSON(http.StatusBadRequest, domain.NewAPIError(domain.ErrTenantMissing, err.Error(), "", requestID))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, domain.NewAPIError(domain.ErrNotFoundCode, "Resource not found", err.Error(), requestID))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, domain.NewAPIError(domain.ErrInternalServer, "Request timed out", "", requestID))
	default:
		s.logger.WithError(err).WithField("correlation_id", requestID).Error("Request failed")
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(domain.ErrInternalServer, "Internal server error", "", requestID))
	}
}

// respondBindError reports a malformed request body.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput,
		"Malformed request body",
		err.Error(),
		c.GetString(middleware.CorrelationIDKey),
	))
}
