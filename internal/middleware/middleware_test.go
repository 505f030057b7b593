package middleware_test

import (
	"context"
	"eofficeTracker/internal/middleware"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/repository/inmemory"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

// brokenResolver отвечает ошибкой соединения для одного пользователя
type brokenResolver struct {
	*inmemory.ActorStorage
	broken uuid.UUID
}

func (r *brokenResolver) GetByID(ctx context.Context, id uuid.UUID) (*actor.Actor, error) {
	if id == r.broken {
		return nil, errors.New("connection refused")
	}
	return r.ActorStorage.GetByID(ctx, id)
}

// TestRequestID тестирует проброс идентификатора запроса
func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "fixed", seen)
}

// TestRateLimit тестирует ограничение числа запросов
func TestRateLimit(t *testing.T) {
	h := middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestAuthenticate тестирует разбор токена и поиск пользователя
func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	actors := &brokenResolver{ActorStorage: inmemory.NewActorStorage(), broken: uuid.New()}
	officer := &actor.Actor{ID: uuid.New(), Username: "officer"}
	require.NoError(t, actors.Save(ctx, officer))

	var got *actor.Actor
	h := middleware.Authenticate(secret, actors)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.ActorFromContext(r.Context())
	}))

	valid, err := middleware.IssueToken(secret, officer.ID, time.Hour)
	require.NoError(t, err)
	expired, err := middleware.IssueToken(secret, officer.ID, -time.Hour)
	require.NoError(t, err)
	foreign, err := middleware.IssueToken("other-secret", officer.ID, time.Hour)
	require.NoError(t, err)
	unknown, err := middleware.IssueToken(secret, uuid.New(), time.Hour)
	require.NoError(t, err)
	outage, err := middleware.IssueToken(secret, actors.broken, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "success - bearer token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "error - no header", header: "", want: http.StatusUnauthorized},
		{name: "error - expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "error - wrong secret", header: "Bearer " + foreign, want: http.StatusUnauthorized},
		{name: "error - unknown actor", header: "Bearer " + unknown, want: http.StatusUnauthorized},
		{name: "error - garbage", header: "Bearer abc.def", want: http.StatusUnauthorized},
		{name: "error - actor store unavailable", header: "Bearer " + outage, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, officer.ID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
