package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// mealCacheTTL bounds how long cached meals live without a revocation. One
// day: meal content is immutable per plan, but a bounded TTL keeps a missed
// flush from serving stale data forever.
const mealCacheTTL = 24 * time.Hour

// redisMealCache implements mealCache on Redis. Lookup failures degrade to a
// cache miss (the engine refetches); only FlushPlan reports errors, because a
// revocation is incomplete until the plan's cached meals are gone.
type redisMealCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func newRedisMealCache(addr, password string, db int, log *zap.Logger) *redisMealCache {
	return &redisMealCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		log: log,
	}
}

func mealKey(planID string, dayOfWeek int) string {
	return fmt.Sprintf("minuta:meals:%s:%d", planID, dayOfWeek)
}

func (c *redisMealCache) GetMeals(ctx context.Context, planID string, dayOfWeek int) ([]meal, bool) {
	raw, err := c.rdb.Get(ctx, mealKey(planID, dayOfWeek)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("meal cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var meals []meal
	if err := json.Unmarshal([]byte(raw), &meals); err != nil {
		c.log.Warn("meal cache held unreadable entry", zap.Error(err))
		return nil, false
	}
	return meals, true
}

func (c *redisMealCache) SetMeals(ctx context.Context, planID string, dayOfWeek int, meals []meal) {
	raw, err := json.Marshal(meals)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, mealKey(planID, dayOfWeek), raw, mealCacheTTL).Err(); err != nil {
		c.log.Warn("meal cache write failed", zap.Error(err))
	}
}

// FlushPlan removes every cached day for the plan. Day keys are enumerable
// (1–7) so a deterministic DEL beats a SCAN.
func (c *redisMealCache) FlushPlan(ctx context.Context, planID string) error {
	keys := make([]string, 0, 7)
	for day := 1; day <= 7; day++ {
		keys = append(keys, mealKey(planID, day))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("flush cached meals: %w", err)
	}
	return nil
}

// noopMealCache is used when no Redis address is configured (local dev).
// Every lookup misses and flushes trivially succeed.
type noopMealCache struct{}

func (noopMealCache) GetMeals(context.Context, string, int) ([]meal, bool) { return nil, false }
func (noopMealCache) SetMeals(context.Context, string, int, []meal)       {}
func (noopMealCache) FlushPlan(context.Context, string) error             { return nil }
