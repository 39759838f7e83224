package authcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"docportal/internal/backend"
	"docportal/internal/logger"
	"docportal/internal/metrics"
	"docportal/internal/models"

	"go.uber.org/zap"
)

const (
	EndpointGetUser    = "getUser"
	EndpointGetSession = "getSession"

	DefaultInterval = time.Second
	DefaultTTL      = 60 * time.Second
)

// Client — чтения identity, которые оборачивает кэш.
type Client interface {
	GetUser(ctx context.Context, accessToken string) (*models.AuthUser, error)
	GetSession(ctx context.Context, accessToken string) (*models.Session, error)
}

type Options struct {
	Interval time.Duration
	TTL      time.Duration
	// Now — часы для свежести кэша (в тестах подменяются).
	Now func() time.Time
}

// IdentityCache дросселирует и кэширует GetUser/GetSession.
// Создаётся вместе с auth-клиентом и чистится при выходе пользователя.
type IdentityCache struct {
	client    Client
	throttler *Throttler
	users     *Cache[*models.AuthUser]
	sessions  *Cache[*models.Session]
}

func New(client Client, opts Options) *IdentityCache {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &IdentityCache{
		client:    client,
		throttler: NewThrottler(NewLimiter(opts.Interval)),
		users:     NewCache[*models.AuthUser](opts.TTL, opts.Now),
		sessions:  NewCache[*models.Session](opts.TTL, opts.Now),
	}
}

// GetUser — пользователь по токену. При 429 отдаёт кэш (даже устаревший)
// или nil без ошибки. Пустой токен означает анонимного пользователя.
func (c *IdentityCache) GetUser(ctx context.Context, accessToken string) (*models.AuthUser, error) {
	if accessToken == "" {
		return nil, nil
	}
	return lookup(ctx, c.throttler, c.users, EndpointGetUser, accessToken, c.client.GetUser)
}

func (c *IdentityCache) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	return lookup(ctx, c.throttler, c.sessions, EndpointGetSession, accessToken, c.client.GetSession)
}

// Invalidate забывает всё, что закэшировано для токена.
func (c *IdentityCache) Invalidate(accessToken string) {
	suffix := ":" + tokenHash(accessToken)
	c.users.DeleteSuffix(suffix)
	c.sessions.DeleteSuffix(suffix)
}

func (c *IdentityCache) Clear() {
	c.users.Clear()
	c.sessions.Clear()
}

func lookup[V any](
	ctx context.Context,
	t *Throttler,
	cache *Cache[V],
	endpoint, token string,
	call func(context.Context, string) (V, error),
) (V, error) {
	var zero V
	key := endpoint + ":" + tokenHash(token)

	if v, ok := cache.Fresh(key); ok {
		metrics.AuthCacheHits.WithLabelValues(endpoint).Inc()
		return v, nil
	}
	metrics.AuthCacheMisses.WithLabelValues(endpoint).Inc()

	res, err := t.Do(ctx, key, func(ctx context.Context) (any, error) {
		v, err := call(ctx, token)
		metrics.AuthCalls.WithLabelValues(endpoint, callStatus(err)).Inc()
		if err != nil {
			return nil, err
		}
		cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		if !backend.IsRateLimited(err) {
			return zero, err
		}
		if v, ok := cache.Get(key); ok {
			metrics.AuthFallbacks.WithLabelValues(endpoint, "stale").Inc()
			logger.WithCtx(ctx).Debug("auth: лимит запросов, отдаём кэш", zap.String("endpoint", endpoint))
			return v, nil
		}
		metrics.AuthFallbacks.WithLabelValues(endpoint, "empty").Inc()
		logger.WithCtx(ctx).Warn("auth: лимит запросов, кэша нет", zap.String("endpoint", endpoint))
		return zero, nil
	}

	v, _ := res.(V)
	return v, nil
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case backend.IsRateLimited(err):
		return "rate_limited"
	default:
		return "error"
	}
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
