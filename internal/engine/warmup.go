package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WarmupState прогрев общего состояния в Redis из локального.
// Если Redis-множество пустое, а локально есть что залить — заливаем под SetNX-блокировкой,
// чтобы при одновременном старте нескольких инстансов это сделал только один.
func WarmupState(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	ids []string,
	redisKey string,
	lockKey string,
) error {
	if len(ids) == 0 {
		return nil
	}

	// 1. Распределенная блокировка (SetNX)
	ok, err := rdb.SetNX(ctx, lockKey, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой уже греет кэш
	}

	// 2. Проверка наполненности Redis
	count, err := rdb.SCard(ctx, redisKey).Result()
	if err != nil {
		count = 0
		logger.Warn("could not check Redis set size, proceeding with warm-up",
			zap.String("key", redisKey), zap.Error(err))
	}
	if count > 0 {
		return nil
	}

	logger.Info("Redis state is empty, performing warm-up from local config...",
		zap.String("key", redisKey), zap.Int("count", len(ids)))

	pipe := rdb.Pipeline()
	for _, id := range ids {
		pipe.SAdd(ctx, redisKey, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}
