package postgres

import (
	"context"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	repo "eofficeTracker/internal/repository"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const actorSelect = `SELECT
				a.id,
				a.username,
				a.email,
				a.is_superuser,
				a.created_at,
				p.is_manager,
				p.phone_number
				FROM actors a
				LEFT JOIN profiles p ON p.actor_id = a.id`

type ActorRepo struct {
	pool *pgxpool.Pool
}

// Save создаёт или заменяет пользователя. Профиль без записи означает "не руководитель".
func (r *ActorRepo) Save(ctx context.Context, a *actor.Actor) error {
	start := time.Now()
	defer warnIfSlow("actor_save", start)

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO actors (id, username, email, is_superuser, created_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE
				SET username = EXCLUDED.username,
					email = EXCLUDED.email,
					is_superuser = EXCLUDED.is_superuser`

	if _, err := tx.Exec(ctx, query, a.ID, a.Username, a.Email, a.IsSuperuser, a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repo.ErrDuplicate
		}
		logger.Error("Repository: Не удалось сохранить пользователя", err, zap.String("username", a.Username))
		return fmt.Errorf("сохранение пользователя: %w", err)
	}

	if a.Profile == nil {
		_, err = tx.Exec(ctx, `DELETE FROM profiles WHERE actor_id = $1`, a.ID)
	} else {
		_, err = tx.Exec(ctx, `INSERT INTO profiles (actor_id, is_manager, phone_number)
				VALUES ($1, $2, $3)
				ON CONFLICT (actor_id) DO UPDATE
				SET is_manager = EXCLUDED.is_manager,
					phone_number = EXCLUDED.phone_number`,
			a.ID, a.Profile.IsManager, a.Profile.PhoneNumber)
	}
	if err != nil {
		return fmt.Errorf("сохранение профиля: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

func (r *ActorRepo) GetByID(ctx context.Context, id uuid.UUID) (*actor.Actor, error) {
	defer warnIfSlow("actor_get", time.Now())
	return r.getOne(ctx, actorSelect+`
				WHERE a.id = $1`, id)
}

func (r *ActorRepo) GetByUsername(ctx context.Context, username string) (*actor.Actor, error) {
	defer warnIfSlow("actor_get_by_username", time.Now())
	return r.getOne(ctx, actorSelect+`
				WHERE LOWER(a.username) = LOWER($1)`, username)
}

func (r *ActorRepo) getOne(ctx context.Context, query string, arg any) (*actor.Actor, error) {
	var (
		a         actor.Actor
		isManager *bool
		phone     *string
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.IsSuperuser,
		&a.CreatedAt,
		&isManager,
		&phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if isManager != nil {
		a.Profile = &actor.Profile{IsManager: *isManager}
		if phone != nil {
			a.Profile.PhoneNumber = *phone
		}
	}
	return &a, nil
}
