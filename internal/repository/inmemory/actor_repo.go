package inmemory

import (
	"context"
	"eofficeTracker/internal/models/actor"
	repo "eofficeTracker/internal/repository"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ActorStorage struct {
	storage    map[uuid.UUID]*actor.Actor
	byUsername map[string]uuid.UUID
	mtx        *sync.RWMutex
}

func NewActorStorage() *ActorStorage {
	return &ActorStorage{
		storage:    make(map[uuid.UUID]*actor.Actor),
		byUsername: make(map[string]uuid.UUID),
		mtx:        &sync.RWMutex{},
	}
}

// Save создаёт или заменяет пользователя вместе с профилем
func (s *ActorStorage) Save(ctx context.Context, a *actor.Actor) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	key := strings.ToLower(a.Username)
	if id, ok := s.byUsername[key]; ok && id != a.ID {
		return repo.ErrDuplicate
	}

	if old, ok := s.storage[a.ID]; ok {
		delete(s.byUsername, strings.ToLower(old.Username))
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	s.storage[a.ID] = a.Clone()
	s.byUsername[key] = a.ID
	return nil
}

func (s *ActorStorage) GetByID(ctx context.Context, id uuid.UUID) (*actor.Actor, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	a, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *ActorStorage) GetByUsername(ctx context.Context, username string) (*actor.Actor, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.storage[id].Clone(), nil
}
