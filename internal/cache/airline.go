// Package cache содержит кэш справочника авиакомпаний поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const (
	airlineKeyPrefix = "milesmarket:airline:"
	airlinesListKey  = "milesmarket:airlines"

	// DefaultTTL задаёт время жизни записей справочника в кэше.
	DefaultTTL = 10 * time.Minute
)

// AirlineSource описывает источник справочника авиакомпаний.
type AirlineSource interface {
	GetAirline(ctx context.Context, id int64) (*model.Airline, error)
	ListAirlines(ctx context.Context) ([]model.Airline, error)
}

// AirlineCache читает справочник через Redis и обращается к источнику при промахе.
// Ошибки Redis не прерывают запрос: кэш просто пропускается.
type AirlineCache struct {
	client *redis.Client
	next   AirlineSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewAirlineCache создаёт кэш справочника поверх источника next.
func NewAirlineCache(client *redis.Client, next AirlineSource, ttl time.Duration, logger *zap.Logger) *AirlineCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AirlineCache{client: client, next: next, ttl: ttl, logger: logger}
}

// NewRedisClient подключается к Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// GetAirline возвращает авиакомпанию по идентификатору.
func (c *AirlineCache) GetAirline(ctx context.Context, id int64) (*model.Airline, error) {
	key := airlineKeyPrefix + strconv.FormatInt(id, 10)

	var a model.Airline
	if c.load(ctx, key, &a) {
		return &a, nil
	}

	res, err := c.next.GetAirline(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, res)
	return res, nil
}

// ListAirlines возвращает весь справочник.
func (c *AirlineCache) ListAirlines(ctx context.Context) ([]model.Airline, error) {
	var list []model.Airline
	if c.load(ctx, airlinesListKey, &list) {
		return list, nil
	}

	res, err := c.next.ListAirlines(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, airlinesListKey, res)
	return res, nil
}

func (c *AirlineCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("airline cache read failed", zap.Error(err), zap.String("key", key))
		}
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("airline cache entry is corrupted", zap.Error(err), zap.String("key", key))
		return false
	}
	return true
}

func (c *AirlineCache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("airline cache write failed", zap.Error(err), zap.String("key", key))
	}
}
