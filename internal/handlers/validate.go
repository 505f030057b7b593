package handlers

import (
	"encoding/json"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/middleware"
	"eofficeTracker/internal/models/actor"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == target
}

// decodeJSON проверяет тип контента и читает тело; при ошибке ответ уже отправлен.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, errUnsupported, "Content-Type должен быть application/json")
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	defer r.Body.Close()

	if err := decoder.Decode(dst); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, errBadRequest, "неверное тело запроса: "+err.Error())
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.String("id", chi.URLParam(r, "id")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, errBadRequest, "некорректный id")
		return uuid.Nil, false
	}
	return id, true
}

// requireActor достаёт пользователя, положенного middleware.Authenticate.
func requireActor(w http.ResponseWriter, r *http.Request) (*actor.Actor, bool) {
	a := middleware.ActorFromContext(r.Context())
	if a == nil {
		responseWithError(w, http.StatusUnauthorized, errUnauthorize, "требуется аутентификация")
		return nil, false
	}
	return a, true
}
