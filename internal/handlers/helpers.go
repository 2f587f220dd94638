package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"helpfinder/internal/authz"
	"helpfinder/internal/middleware"
	"helpfinder/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
}

func getUserAndRole(c *gin.Context) (userID string, roleID int) {
	return c.GetString(middleware.CtxUserID), c.GetInt(middleware.CtxRoleID)
}

func isAdmin(c *gin.Context) bool {
	return authz.IsAdmin(c.GetInt(middleware.CtxRoleID))
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindInvalidState, services.KindValidation:
		return http.StatusBadRequest
	case services.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case services.KindConflict:
		return http.StatusConflict
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": msg}. Internal errors are logged and
// hidden from the client.
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error(op+" internal error", zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, ok := c.GetQuery(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
