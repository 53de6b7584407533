package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tenantcore/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService is the durable client-storage side of the session model plus
// the tenant resolver's read cache and the login rate limiter.
type CacheService interface {
	// Session storage: two keys per session, token and serialized principal.
	// Both must exist and agree with the identity store copy.
	SetSession(ctx context.Context, tokenID, token string, principal *models.Principal, ttl time.Duration) error
	GetSessionToken(ctx context.Context, tokenID string) (string, error)
	GetSessionPrincipal(ctx context.Context, tokenID string) (*models.Principal, error)
	GetRawSessionPrincipal(ctx context.Context, tokenID string) (string, error)
	DeleteSession(ctx context.Context, tokenID string) error

	// Tenant resolution cache
	GetTenantByOrigin(ctx context.Context, subdomain string) (*models.Tenant, error)
	SetTenantByOrigin(ctx context.Context, subdomain string, tenant *models.Tenant, ttl time.Duration) error
	InvalidateTenantOrigin(ctx context.Context, subdomain string) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService connects a redis-backed cache service.
func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func sessionTokenKey(tokenID string) string {
	return fmt.Sprintf("tenantcore:session:token:%s", tokenID)
}

func sessionPrincipalKey(tokenID string) string {
	return fmt.Sprintf("tenantcore:session:principal:%s", tokenID)
}

func (r *redisCacheService) SetSession(ctx context.Context, tokenID, token string, principal *models.Principal, ttl time.Duration) error {
	data, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionTokenKey(tokenID), token, ttl).Err(); err != nil {
		return err
	}
	return r.client.Set(ctx, sessionPrincipalKey(tokenID), data, ttl).Err()
}

func (r *redisCacheService) GetSessionToken(ctx context.Context, tokenID string) (string, error) {
	val, err := r.client.Get(ctx, sessionTokenKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", models.ErrSessionNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) GetSessionPrincipal(ctx context.Context, tokenID string) (*models.Principal, error) {
	data, err := r.client.Get(ctx, sessionPrincipalKey(tokenID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}

	var principal models.Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, models.ErrSessionCorrupted
	}
	return &principal, nil
}

func (r *redisCacheService) GetRawSessionPrincipal(ctx context.Context, tokenID string) (string, error) {
	val, err := r.client.Get(ctx, sessionPrincipalKey(tokenID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", models.ErrSessionNotFound
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) DeleteSession(ctx context.Context, tokenID string) error {
	return r.client.Del(ctx, sessionTokenKey(tokenID), sessionPrincipalKey(tokenID)).Err()
}

func (r *redisCacheService) GetTenantByOrigin(ctx context.Context, subdomain string) (*models.Tenant, error) {
	key := fmt.Sprintf("tenantcore:tenant:origin:%s", subdomain)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var tenant models.Tenant
	if err := json.Unmarshal(data, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *redisCacheService) SetTenantByOrigin(ctx context.Context, subdomain string, tenant *models.Tenant, ttl time.Duration) error {
	key := fmt.Sprintf("tenantcore:tenant:origin:%s", subdomain)
	data, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCacheService) InvalidateTenantOrigin(ctx context.Context, subdomain string) error {
	key := fmt.Sprintf("tenantcore:tenant:origin:%s", subdomain)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("tenantcore:ratelimit:%s", key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return true, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
