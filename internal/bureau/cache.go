package bureau

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "burogate/internal/platform/redis"
	id "burogate/pkg/domain"
)

// CachedClient puts a short-TTL Redis cache in front of the bureau. Bureau
// data changes slowly relative to query traffic, and repeated queries for the
// same subject inside one consent window are common. Cache failures degrade
// to direct fetches; they are logged, never surfaced.
type CachedClient struct {
	inner  Client
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedClient(inner Client, redisClient *platformredis.Client, ttl time.Duration, logger *slog.Logger) *CachedClient {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{inner: inner, redis: redisClient, ttl: ttl, logger: logger}
}

func (c *CachedClient) Summary(ctx context.Context, taxID id.TaxID) (*Summary, error) {
	return cached(ctx, c, "buro", taxID, c.inner.Summary)
}

func (c *CachedClient) PaymentStats(ctx context.Context, taxID id.TaxID) (*PaymentStats, error) {
	return cached(ctx, c, "estadisticas", taxID, c.inner.PaymentStats)
}

func (c *CachedClient) ObligationDetails(ctx context.Context, taxID id.TaxID) ([]Obligation, error) {
	return cached(ctx, c, "obligaciones", taxID, c.inner.ObligationDetails)
}

func (c *CachedClient) Payments(ctx context.Context, taxID id.TaxID) ([]Payment, error) {
	return cached(ctx, c, "pagos", taxID, c.inner.Payments)
}

func (c *CachedClient) PendingPayments(ctx context.Context, taxID id.TaxID) ([]PendingPayment, error) {
	return cached(ctx, c, "pendientes", taxID, c.inner.PendingPayments)
}

func cached[T any](ctx context.Context, c *CachedClient, dataset string, taxID id.TaxID, fetch func(context.Context, id.TaxID) (T, error)) (T, error) {
	var zero T
	if c.redis == nil {
		return fetch(ctx, taxID)
	}
	key := "bureau:" + dataset + ":" + string(taxID)

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		// Poisoned entry; fall through and overwrite.
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "bureau cache read failed", "key", key, "error", err.Error())
	}

	value, err := fetch(ctx, taxID)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err == nil {
		if err := c.redis.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "bureau cache write failed", "key", key, "error", err.Error())
		}
	}
	return value, nil
}
