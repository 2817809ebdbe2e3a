package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
)

// RateCache stores parsed provider days. Past days are immutable, so a
// cache hit is as good as the provider's answer.
type RateCache struct {
	client *redis.Client
}

func NewRateCache(client *redis.Client) *RateCache {
	return &RateCache{client: client}
}

func (c *RateCache) GetDay(ctx context.Context, date string) (*domain.DailyRate, bool, error) {
	key := rateKey(date)

	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var rate domain.DailyRate
	if err := json.Unmarshal([]byte(raw), &rate); err != nil {
		return nil, false, err
	}

	return &rate, true, nil
}

func (c *RateCache) SetDay(ctx context.Context, date string, rate *domain.DailyRate, ttl time.Duration) error {
	payload, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateKey(date), payload, ttl).Err()
}

func rateKey(date string) string {
	return fmt.Sprintf("rates:%s", date)
}
