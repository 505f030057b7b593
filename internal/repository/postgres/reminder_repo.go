package postgres

import (
	"context"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/reminder"
	repo "eofficeTracker/internal/repository"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// задачи напоминания собираются из таблицы связей в исходном порядке
const reminderSelect = `SELECT
				r.uuid,
				r.user_id,
				r.created_by,
				r.message,
				r.is_active,
				r.is_dismissed,
				r.created_at,
				COALESCE(
					array_agg(rt.task_id ORDER BY rt.position) FILTER (WHERE rt.task_id IS NOT NULL),
					'{}'::uuid[]
				)
				FROM reminders r
				LEFT JOIN reminder_tasks rt ON rt.reminder_id = r.uuid`

const reminderGroup = `
				GROUP BY r.uuid
				ORDER BY r.created_at, r.uuid`

type ReminderRepo struct {
	pool *pgxpool.Pool
}

// Create пишет напоминание и его связи с задачами в одной транзакции.
func (r *ReminderRepo) Create(ctx context.Context, rem *reminder.Reminder) error {
	start := time.Now()
	defer warnIfSlow("reminder_create", start)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO reminders (uuid, user_id, created_by, message, is_active, is_dismissed, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				RETURNING created_at`

	err = tx.QueryRow(ctx, query,
		rem.UUID,
		rem.UserID,
		rem.CreatedBy,
		rem.Message,
		rem.IsActive,
		rem.IsDismissed,
	).Scan(&rem.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось добавить напоминание", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление напоминания: %w", err)
	}

	batch := &pgx.Batch{}
	for i, taskID := range rem.TaskIDs {
		batch.Queue(`INSERT INTO reminder_tasks (reminder_id, task_id, position) VALUES ($1, $2, $3)`, rem.UUID, taskID, i)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			logger.Error("Repository: Не удалось связать напоминание с задачами", err)
			return fmt.Errorf("связь напоминания с задачами: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

// Update меняет только флаги: набор задач фиксируется при создании
func (r *ReminderRepo) Update(ctx context.Context, rem *reminder.Reminder) error {
	defer warnIfSlow("reminder_update", time.Now())

	query := `UPDATE reminders
			SET is_active = $1,
				is_dismissed = $2
			WHERE uuid = $3`

	tag, err := r.pool.Exec(ctx, query, rem.IsActive, rem.IsDismissed, rem.UUID)
	if err != nil {
		logger.Error("Repository: Не удалось обновить напоминание", err)
		return fmt.Errorf("обновление напоминания: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReminderRepo) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	found, err := r.list(ctx, reminderSelect+`
				WHERE r.uuid = $1`+reminderGroup, id)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, repo.ErrNotFound
	}
	return found[0], nil
}

func (r *ReminderRepo) FindActiveForUser(ctx context.Context, userID uuid.UUID) ([]*reminder.Reminder, error) {
	return r.list(ctx, reminderSelect+`
				WHERE r.user_id = $1 AND r.is_active AND NOT r.is_dismissed`+reminderGroup, userID)
}

func (r *ReminderRepo) FindActiveByTask(ctx context.Context, taskID uuid.UUID) ([]*reminder.Reminder, error) {
	return r.list(ctx, reminderSelect+`
				WHERE r.is_active
				AND EXISTS (SELECT 1 FROM reminder_tasks x WHERE x.reminder_id = r.uuid AND x.task_id = $1)`+reminderGroup, taskID)
}

// ListActive отдаёт активные напоминания в порядке (created_at, uuid) строго после after.
func (r *ReminderRepo) ListActive(ctx context.Context, after reminder.Cursor, limit int) ([]*reminder.Reminder, error) {
	where := `
				WHERE r.is_active`
	args := []any{}
	if !after.IsZero() {
		where += `
				AND (r.created_at, r.uuid) > ($1, $2)`
		args = append(args, after.CreatedAt, after.UUID)
	}
	query := reminderSelect + where + reminderGroup
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(`
				LIMIT $%d`, len(args))
	}
	return r.list(ctx, query, args...)
}

func (r *ReminderRepo) list(ctx context.Context, query string, args ...any) ([]*reminder.Reminder, error) {
	start := time.Now()
	defer warnIfSlow("reminder_list", start)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить напоминания", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение напоминаний: %w", err)
	}
	defer rows.Close()

	res := []*reminder.Reminder{}
	for rows.Next() {
		rem := &reminder.Reminder{}
		if err := rows.Scan(
			&rem.UUID,
			&rem.UserID,
			&rem.CreatedBy,
			&rem.Message,
			&rem.IsActive,
			&rem.IsDismissed,
			&rem.CreatedAt,
			&rem.TaskIDs,
		); err != nil {
			logger.Warn("Repository: Ошибка сканирования напоминания", zap.Error(err))
			continue
		}
		res = append(res, rem)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}
