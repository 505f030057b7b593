package handlers

import (
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/middleware"
	"eofficeTracker/internal/service"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

const (
	errBadRequest  = "BAD_REQUEST"
	errUnsupported = "UNSUPPORTED_MEDIA_TYPE"
	errInternal    = "INTERNAL_ERROR"
	errUnavailable = "SERVICE_UNAVAILABLE"
	errUnauthorize = "UNAUTHORIZED"
)

// handleError отвечает клиенту по ошибке сервиса: бизнес-ошибки по коду, остальное - 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, errInternal, "внутренняя ошибка сервера")
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodePermissionDenied:
		return http.StatusForbidden
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict:
		return http.StatusConflict
	case service.CodeNoEligibleItems:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
