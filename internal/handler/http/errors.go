package http

import (
	"log/slog"
	"net/http"

	"storefront/internal/errs"
	"storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the blocking notice shown to the acting user.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidationFailed:
		return http.StatusBadRequest
	case errs.KindAuthRejected:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindIndexOutOfRange, errs.KindEmptyCart, errs.KindNotReady:
		return http.StatusConflict
	case errs.KindFetchFailed, errs.KindMutationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := statusFor(kind)

	resp := ErrorResponse{Error: kind.String(), Message: errs.Message(err)}
	if kind == errs.KindUnknown {
		logger.Error(c.Request.Context(), "Unhandled error", slog.String("error", err.Error()))
		resp = ErrorResponse{Error: "INTERNAL", Message: "Something went wrong"}
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   errs.KindValidationFailed.String(),
		Message: message,
	})
}
