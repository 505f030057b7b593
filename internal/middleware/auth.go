package middleware

import (
	"context"
	"encoding/json"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	repo "eofficeTracker/internal/repository"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActorResolver interface {
	GetByID(context.Context, uuid.UUID) (*actor.Actor, error)
}

// IssueToken выдаёт HS256-токен, в sub которого лежит id пользователя.
func IssueToken(secret string, actorID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   actorID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken проверяет подпись и срок и возвращает id из sub.
func ParseToken(secret, tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный алгоритм %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("токен недействителен")
	}
	return uuid.Parse(claims.Subject)
}

// Authenticate кладёт в контекст пользователя из Bearer-токена.
func Authenticate(secret string, actors ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				unauthorized(w, r, "не передан токен")
				return
			}

			actorID, err := ParseToken(secret, tokenString)
			if err != nil {
				logger.Warn("HTTP: Некорректный токен",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				unauthorized(w, r, "некорректный токен")
				return
			}

			a, err := actors.GetByID(r.Context(), actorID)
			if errors.Is(err, repo.ErrNotFound) {
				logger.Warn("HTTP: Пользователь токена не найден",
					zap.String("actor_id", actorID.String()),
					zap.Error(err))
				unauthorized(w, r, "пользователь не найден")
				return
			}
			if err != nil {
				logger.Error("HTTP: Не удалось загрузить пользователя токена", err,
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("actor_id", actorID.String()))
				unavailable(w, r)
				return
			}

			logger.Debug("HTTP: Пользователь определён",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("actor", a.Username))

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
		})
	}
}

func WithActor(ctx context.Context, a *actor.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFromContext(ctx context.Context) *actor.Actor {
	if a, ok := ctx.Value(actorKey).(*actor.Actor); ok {
		return a
	}
	return nil
}

func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(header)
}

func unavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      "SERVICE_UNAVAILABLE",
		"message":    "хранилище пользователей недоступно",
		"request_id": GetRequestID(r.Context()),
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      "UNAUTHORIZED",
		"message":    msg,
		"request_id": GetRequestID(r.Context()),
	})
}
