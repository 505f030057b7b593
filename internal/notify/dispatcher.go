package notify

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/task"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TaskReader interface {
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
}

type ActorReader interface {
	GetByID(context.Context, uuid.UUID) (*actor.Actor, error)
}

type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher принимает события из ядра и доставляет их в фоне.
// Publish никогда не блокирует: при переполненной очереди событие уходит в outbox.
type Dispatcher struct {
	queue   chan events.Event
	tasks   TaskReader
	actors  ActorReader
	senders map[Channel]Sender
	outbox  *Outbox
	cfg     Config

	dropped atomic.Int64
}

func NewDispatcher(tasks TaskReader, actors ActorReader, outbox *Outbox, cfg Config, senders ...Sender) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan events.Event, cfg.QueueSize),
		tasks:   tasks,
		actors:  actors,
		senders: make(map[Channel]Sender),
		outbox:  outbox,
		cfg:     cfg,
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

func (d *Dispatcher) Publish(ctx context.Context, ev events.Event) {
	select {
	case d.queue <- ev:
	default:
		logger.Warn("Notify: Очередь переполнена",
			zap.String("kind", string(ev.Kind)),
			zap.String("task_id", ev.TaskID.String()))
		d.park(Item{Event: &ev})
	}
}

// Dropped - сколько событий потеряно без возможности сохранить.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run запускает воркеры и блокируется до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Info("Notify: Диспетчер запущен", zap.Int("workers", d.cfg.Workers), zap.Int("queue", d.cfg.QueueSize))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case ev := <-d.queue:
					d.process(gctx, ev)
				case <-gctx.Done():
					return nil
				}
			}
		})
	}
	err := g.Wait()

	// неотправленное сохраняем до следующего запуска
	for {
		select {
		case ev := <-d.queue:
			d.park(Item{Event: &ev})
		default:
			logger.Info("Notify: Диспетчер остановлен")
			return err
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, ev events.Event) {
	failed, err := d.dispatch(ctx, ev)
	if err != nil {
		logger.Warn("Notify: Не удалось подготовить уведомление",
			zap.String("kind", string(ev.Kind)),
			zap.String("task_id", ev.TaskID.String()),
			zap.Error(err))
		// событие целиком уходит на повтор
		d.park(Item{Event: &ev})
		return
	}
	for _, msg := range failed {
		msg := msg
		d.park(Item{Message: &msg})
	}
}

// dispatch собирает сообщения и отправляет их; возвращает те, что не ушли.
func (d *Dispatcher) dispatch(ctx context.Context, ev events.Event) ([]Message, error) {
	if ev.Kind != events.KindTaskAssigned && ev.Kind != events.KindDeadlineApproaching {
		return nil, nil
	}

	t, err := d.tasks.GetByID(ctx, ev.TaskID)
	if err != nil {
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	assignee, err := d.actors.GetByID(ctx, ev.AssigneeID)
	if err != nil {
		return nil, fmt.Errorf("получение исполнителя: %w", err)
	}

	failed := []Message{}
	for _, msg := range render(ev, t, assignee) {
		if err := d.deliver(ctx, msg); err != nil {
			logger.Warn("Notify: Ошибка доставки",
				zap.String("channel", string(msg.Channel)),
				zap.String("task_id", ev.TaskID.String()),
				zap.Error(err))
			failed = append(failed, msg)
		}
	}
	return failed, nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		logger.Debug("Notify: Канал не настроен", zap.String("channel", string(msg.Channel)))
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()
	return sender.Send(sendCtx, msg)
}

func (d *Dispatcher) park(item Item) {
	if d.outbox == nil {
		d.dropped.Add(1)
		return
	}
	if err := d.outbox.Enqueue(item); err != nil {
		d.dropped.Add(1)
		logger.Error("Notify: Не удалось сохранить в outbox", err)
	}
}
