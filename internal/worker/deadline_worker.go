package worker

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/task"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskFinder interface {
	Find(context.Context, task.Query) ([]*task.Task, error)
}

// ReminderSweeper выключает напоминания, чьи задачи уже в архиве.
type ReminderSweeper interface {
	SweepInactive(context.Context) (int, error)
}

// DeadlineWorker периодически напоминает о близких дедлайнах и чистит устаревшие напоминания.
type DeadlineWorker struct {
	repo      TaskFinder
	publisher events.Publisher
	sweeper   ReminderSweeper
	interval  time.Duration
	window    time.Duration
	now       func() time.Time

	mtx sync.Mutex
	// задача -> дедлайн, о котором уже уведомили
	notified map[uuid.UUID]time.Time
}

func NewDeadlineWorker(repo TaskFinder, publisher events.Publisher, sweeper ReminderSweeper, interval *time.Duration, window *time.Duration) *DeadlineWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 5 * time.Minute
	} else {
		intervalToSet = *interval
	}

	var windowToSet time.Duration
	if window == nil || *window <= 0 {
		windowToSet = 72 * time.Hour
	} else {
		windowToSet = *window
	}

	if publisher == nil {
		publisher = events.Discard
	}
	return &DeadlineWorker{
		repo:      repo,
		publisher: publisher,
		sweeper:   sweeper,
		interval:  intervalToSet,
		window:    windowToSet,
		now:       time.Now,
		notified:  make(map[uuid.UUID]time.Time),
	}
}

// Start блокируется до отмены контекста.
func (w *DeadlineWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Фоновая проверка дедлайнов запущена",
		zap.Duration("interval", w.interval),
		zap.Duration("window", w.window))

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check выполняет один проход и возвращает число отправленных уведомлений.
func (w *DeadlineWorker) Check(ctx context.Context) int {
	start := time.Now()

	upcoming, err := w.upcomingTasks(ctx)
	if err != nil {
		logger.Warn("Worker: Ошибка получения задач", zap.Error(err))
		return 0
	}

	published := 0
	w.mtx.Lock()
	for _, t := range upcoming {
		if prev, ok := w.notified[t.UUID]; ok && prev.Equal(*t.Deadline) {
			continue
		}
		w.notified[t.UUID] = *t.Deadline
		w.publisher.Publish(ctx, events.DeadlineApproaching(t.UUID, t.AssigneeID))
		published++
	}
	w.forgetPassed()
	w.mtx.Unlock()

	deactivated := 0
	if w.sweeper != nil {
		n, err := w.sweeper.SweepInactive(ctx)
		if err != nil {
			logger.Warn("Worker: Ошибка деактивации напоминаний", zap.Error(err))
		}
		deactivated = n
	}

	logger.Info("Worker: Завершение проверки дедлайнов",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(upcoming)),
		zap.Int("notified", published),
		zap.Int("deactivated", deactivated),
	)
	return published
}

func (w *DeadlineWorker) upcomingTasks(ctx context.Context) ([]*task.Task, error) {
	now := w.now()
	until := now.Add(w.window)
	archived := false

	tasks, err := w.repo.Find(ctx, task.Query{
		Archived:       &archived,
		DeadlineAfter:  &now,
		DeadlineBefore: &until,
	})
	if err != nil {
		return nil, fmt.Errorf("получение задач с близким дедлайном: %w", err)
	}
	return tasks, nil
}

// forgetPassed вызывается под mtx
func (w *DeadlineWorker) forgetPassed() {
	now := w.now()
	for id, deadline := range w.notified {
		if deadline.Before(now) {
			delete(w.notified, id)
		}
	}
}
