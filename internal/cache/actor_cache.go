// Package cache - кэш пользователей в Redis поверх основного хранилища.
package cache

import (
	"context"
	"encoding/json"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	keyByID       = "actor:id:"
	keyByUsername = "actor:username:"
)

type ActorSource interface {
	GetByID(context.Context, uuid.UUID) (*actor.Actor, error)
	GetByUsername(context.Context, string) (*actor.Actor, error)
}

// ActorCache читает пользователей через Redis. Промахи схлопываются singleflight,
// ошибки Redis не мешают чтению из источника.
type ActorCache struct {
	rdb    *redis.Client
	source ActorSource
	ttl    time.Duration
	sf     singleflight.Group
}

func NewActorCache(rdb *redis.Client, source ActorSource, ttl time.Duration) *ActorCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ActorCache{rdb: rdb, source: source, ttl: ttl}
}

func NewClient(ctx context.Context, url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("разбор адреса redis: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("проверка redis: %w", err)
	}

	logger.Info("Cache: Подключение к Redis установлено", zap.String("addr", opts.Addr))
	return client, nil
}

func (c *ActorCache) GetByID(ctx context.Context, id uuid.UUID) (*actor.Actor, error) {
	return c.load(ctx, keyByID+id.String(), func(ctx context.Context) (*actor.Actor, error) {
		return c.source.GetByID(ctx, id)
	})
}

func (c *ActorCache) GetByUsername(ctx context.Context, username string) (*actor.Actor, error) {
	return c.load(ctx, keyByUsername+normalize(username), func(ctx context.Context) (*actor.Actor, error) {
		return c.source.GetByUsername(ctx, username)
	})
}

// Invalidate убирает оба ключа пользователя после его изменения.
func (c *ActorCache) Invalidate(ctx context.Context, a *actor.Actor) error {
	if a == nil {
		return nil
	}
	return c.rdb.Del(ctx, keyByID+a.ID.String(), keyByUsername+normalize(a.Username)).Err()
}

func (c *ActorCache) load(ctx context.Context, key string, fetch func(context.Context) (*actor.Actor, error)) (*actor.Actor, error) {
	if a, err := c.get(ctx, key); err != nil {
		logger.Warn("Cache: Ошибка чтения из Redis", zap.String("key", key), zap.Error(err))
	} else if a != nil {
		return a, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// загрузка общая, отмена первого вызывающего не должна обрывать остальных
		shared := context.WithoutCancel(ctx)
		a, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := c.set(shared, key, a); err != nil {
			logger.Warn("Cache: Ошибка записи в Redis", zap.String("key", key), zap.Error(err))
		}
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	// результат singleflight общий для всех ожидающих
	return v.(*actor.Actor).Clone(), nil
}

func (c *ActorCache) get(ctx context.Context, key string) (*actor.Actor, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a actor.Actor
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *ActorCache) set(ctx context.Context, key string, a *actor.Actor) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

func normalize(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}
