package notify

import (
	"context"
	"eofficeTracker/internal/logger"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type RetryConfig struct {
	Schedule   string
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration
}

// RetryProcessor по расписанию повторяет доставку из outbox.
type RetryProcessor struct {
	outbox     *Outbox
	dispatcher *Dispatcher
	cron       *cron.Cron
	cfg        RetryConfig
}

func NewRetryProcessor(outbox *Outbox, dispatcher *Dispatcher, cfg RetryConfig) (*RetryProcessor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	rp := &RetryProcessor{
		outbox:     outbox,
		dispatcher: dispatcher,
		cron:       cron.New(),
		cfg:        cfg,
	}

	if _, err := rp.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := rp.Drain(ctx); err != nil {
			logger.Error("Notify: Ошибка обработки outbox", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("расписание повторов %q: %w", cfg.Schedule, err)
	}
	return rp, nil
}

func (rp *RetryProcessor) Start() {
	rp.cron.Start()
	logger.Info("Notify: Повтор доставки запущен", zap.String("schedule", rp.cfg.Schedule))
}

func (rp *RetryProcessor) Stop(ctx context.Context) {
	stopCtx := rp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	logger.Info("Notify: Повтор доставки остановлен")
}

// Drain синхронно обрабатывает одну порцию outbox.
func (rp *RetryProcessor) Drain(ctx context.Context) error {
	items, err := rp.outbox.GetBatch(rp.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("чтение outbox: %w", err)
	}

	delivered := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rp.retry(ctx, item) {
			delivered++
		}
	}

	if len(items) > 0 {
		logger.Info("Notify: Обработка outbox завершена",
			zap.Int("items", len(items)),
			zap.Int("delivered", delivered))
	}
	return nil
}

func (rp *RetryProcessor) retry(ctx context.Context, item Item) bool {
	var err error

	switch {
	case item.Message != nil:
		err = rp.dispatcher.deliver(ctx, *item.Message)
	case item.Event != nil:
		var failed []Message
		failed, err = rp.dispatcher.dispatch(ctx, *item.Event)
		if err == nil {
			// событие разобрано, дальше повторяем только неотправленные сообщения
			for _, msg := range failed {
				msg := msg
				if qErr := rp.outbox.Enqueue(Item{Message: &msg, Retries: item.Retries + 1}); qErr != nil {
					logger.Error("Notify: Не удалось сохранить в outbox", qErr)
				}
			}
		}
	}

	if err == nil {
		if rErr := rp.outbox.Remove(item); rErr != nil {
			logger.Warn("Notify: Не удалось удалить элемент outbox", zap.Error(rErr))
		}
		return true
	}

	item.Retries++
	if item.Retries >= rp.cfg.MaxRetries {
		logger.Warn("Notify: Уведомление отброшено после повторов",
			zap.String("item_id", item.ID),
			zap.Int("retries", item.Retries),
			zap.Error(err))
		if rErr := rp.outbox.Remove(item); rErr != nil {
			logger.Warn("Notify: Не удалось удалить элемент outbox", zap.Error(rErr))
		}
		return false
	}

	if sErr := rp.outbox.Save(item); sErr != nil {
		logger.Error("Notify: Не удалось обновить элемент outbox", sErr)
	}
	return false
}
