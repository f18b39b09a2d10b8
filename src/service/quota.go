package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// QuotaChecker limits how often a sender can be sponsored. Exhausted quota is
// a decline, not an error.
type QuotaChecker interface {
	Allow(ctx context.Context, sender common.Address) (bool, error)
}

// RedisQuota counts sponsorships per sender per UTC day. The counter key
// expires on its own, so no cleanup job is needed.
type RedisQuota struct {
	client   *redis.Client
	dailyCap int64
}

func NewRedisQuota(client *redis.Client, dailyCap int64) *RedisQuota {
	return &RedisQuota{client: client, dailyCap: dailyCap}
}

func (q *RedisQuota) key(sender common.Address) string {
	return fmt.Sprintf("pm:quota:%s:%s", sender.Hex(), time.Now().UTC().Format("2006-01-02"))
}

// Allow increments the sender's daily counter and reports whether it is still
// within the cap. Redis outages fail open: sponsorship availability must not
// depend on the quota store.
func (q *RedisQuota) Allow(ctx context.Context, sender common.Address) (bool, error) {
	if q.dailyCap <= 0 {
		return true, nil
	}

	key := q.key(sender)
	count, err := q.client.Incr(ctx, key).Result()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("quota check failed, allowing request")
		return true, nil
	}
	if count == 1 {
		q.client.Expire(ctx, key, 24*time.Hour)
	}
	return count <= q.dailyCap, nil
}
