package inmemory

import (
	"context"
	"eofficeTracker/internal/models/reminder"
	repo "eofficeTracker/internal/repository"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ReminderStorage struct {
	storage map[uuid.UUID]*reminder.Reminder
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewReminderStorage() *ReminderStorage {
	return &ReminderStorage{
		storage: make(map[uuid.UUID]*reminder.Reminder),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *ReminderStorage) Create(ctx context.Context, r *reminder.Reminder) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[r.UUID]; ok {
		return repo.ErrDuplicate
	}

	r.CreatedAt = time.Now()
	s.storage[r.UUID] = r.Clone()
	s.ids = append(s.ids, r.UUID)
	return nil
}

// Update меняет только флаги: набор задач фиксируется при создании
func (s *ReminderStorage) Update(ctx context.Context, r *reminder.Reminder) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[r.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	existed.IsActive = r.IsActive
	existed.IsDismissed = r.IsDismissed
	return nil
}

func (s *ReminderStorage) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	r, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *ReminderStorage) FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	return s.filter(0, func(r *reminder.Reminder) bool {
		return r.UserID == userID && r.IsActive && !r.IsDismissed
	}), nil
}

func (s *ReminderStorage) FindActiveByTask(ctx context.Context, taskID uuid.UUID) ([]*reminder.Reminder, error) {
	return s.filter(0, func(r *reminder.Reminder) bool {
		return r.IsActive && r.References(taskID)
	}), nil
}

// ListActive отдаёт активные напоминания в порядке создания начиная после after.
func (s *ReminderStorage) ListActive(ctx context.Context, after reminder.Cursor, limit int) ([]*reminder.Reminder, error) {
	passed := after.IsZero()
	return s.filter(limit, func(r *reminder.Reminder) bool {
		if !passed {
			passed = r.UUID == after.UUID
			return false
		}
		return r.IsActive
	}), nil
}

func (s *ReminderStorage) filter(limit int, keep func(*reminder.Reminder) bool) []*reminder.Reminder {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*reminder.Reminder{}
	for _, id := range s.ids {
		if limit > 0 && len(res) >= limit {
			break
		}
		r := s.storage[id]
		if keep(r) {
			res = append(res, r.Clone())
		}
	}
	return res
}
