// internal/interfaces/http/handlers/response.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/interfaces/http/middleware"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
)

// respondError writes err as {"error": message}. Untyped errors become a
// generic 500 and are logged with the request id.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperrors.Status(err)
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).WithError(err).Error("Request failed")
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperrors.Message(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name, label string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID"})
		return 0, false
	}
	return uint(id), true
}

// requireActor returns the authenticated caller or writes a 401
func requireActor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
		return auth.Actor{}, false
	}
	return actor, true
}

// pageParams validates page and per_page against the pagination config
func pageParams(c *gin.Context, cfg *config.Config) (pagination.Params, bool) {
	p, err := pagination.Parse(c.Query("page"), c.Query("per_page"),
		cfg.Pagination.DefaultPerPage, cfg.Pagination.MaxPerPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return p, false
	}
	return p, true
}
