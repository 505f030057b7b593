package postgres

import (
	"context"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/task"
	repo "eofficeTracker/internal/repository"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `uuid,
				title,
				description,
				status,
				deadline,
				assignee_id,
				created_by,
				is_archived,
				file_ref,
				created_at,
				updated_at,
				version`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func (r *TaskRepo) HealthCheck(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("task_create", start)

	query := `INSERT INTO tasks
				(uuid, title, description, status, deadline, assignee_id, created_by, is_archived, file_ref, created_at, version)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), 1)
				RETURNING created_at, version`

	err := r.pool.QueryRow(ctx, query,
		taskToCreate.UUID,
		taskToCreate.Title,
		taskToCreate.Description,
		string(taskToCreate.Status),
		taskToCreate.Deadline,
		taskToCreate.AssigneeID,
		taskToCreate.CreatedBy,
		taskToCreate.IsArchived,
		taskToCreate.FileRef,
	).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)

	if err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

// Update - одна инструкция с проверкой версии.
func (r *TaskRepo) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer warnIfSlow("task_update", start)

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				status = $3,
				deadline = $4,
				assignee_id = $5,
				is_archived = $6,
				file_ref = $7,
				version = version + 1,
				updated_at = NOW()
			WHERE uuid = $8 AND version = $9
			RETURNING updated_at, version`

	err := r.pool.QueryRow(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		string(taskToUpdate.Status),
		taskToUpdate.Deadline,
		taskToUpdate.AssigneeID,
		taskToUpdate.IsArchived,
		taskToUpdate.FileRef,
		taskToUpdate.UUID,
		taskToUpdate.Version,
	).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := r.exists(ctx, taskToUpdate.UUID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return repo.ErrNotFound
			}
			logger.Warn("Repository: Конфликт версий при обновлении задачи",
				zap.String("task_id", taskToUpdate.UUID.String()),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

func (r *TaskRepo) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE uuid = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("проверка задачи: %w", err)
	}
	return exists, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("task_get", start)

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE uuid = $1`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

// Find исполняет task.Query одним SELECT в порядке создания.
func (r *TaskRepo) Find(ctx context.Context, q task.Query) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow("task_find", start)

	where, args := buildWhere(q)
	query := `SELECT ` + taskColumns + `
				FROM tasks` + where + `
				ORDER BY created_at, uuid`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// buildWhere переводит предикат в условие с позиционными параметрами.
func buildWhere(q task.Query) (string, []any) {
	conds := []string{}
	args := []any{}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if q.Archived != nil {
		add("is_archived = $%d", *q.Archived)
	}
	if q.AssigneeID != nil {
		add("assignee_id = $%d", *q.AssigneeID)
	}
	if q.Status != nil {
		add("status = $%d", string(*q.Status))
	}
	if q.ExcludeStatus != nil {
		add("status <> $%d", string(*q.ExcludeStatus))
	}
	if q.DeadlineBefore != nil {
		add("deadline < $%d", *q.DeadlineBefore)
	}
	if q.DeadlineAfter != nil {
		add("deadline >= $%d", *q.DeadlineAfter)
	}
	if len(q.IDs) > 0 {
		add("uuid = ANY($%d)", q.IDs)
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\n\t\t\t\tWHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var status string
	err := row.Scan(
		&t.UUID,
		&t.Title,
		&t.Description,
		&status,
		&t.Deadline,
		&t.AssigneeID,
		&t.CreatedBy,
		&t.IsArchived,
		&t.FileRef,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
