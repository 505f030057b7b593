package inmemory

import (
	"context"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/task"
	repo "eofficeTracker/internal/repository"
	"sync"
	"time"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Хранилище в памяти доступно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskToCreate.UUID]; ok {
		return repo.ErrDuplicate
	}

	taskToCreate.CreatedAt = time.Now()
	taskToCreate.Version = 1

	s.storage[taskToCreate.UUID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.UUID)
	return nil
}

// Update с оптимистичной блокировкой по версии, как в PostgreSQL
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version++
	s.storage[taskToUpdate.UUID] = taskToUpdate.Clone()

	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// Find обходит задачи в порядке создания
func (s *TaskStorage) Find(ctx context.Context, query task.Query) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		taskToGet := s.storage[id]
		if !query.Match(taskToGet) {
			continue
		}
		res = append(res, taskToGet.Clone())
	}

	return res, nil
}
