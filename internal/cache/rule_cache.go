package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"procurement-service/internal/models"
)

// RuleCache caches active approval rules per tenant and category in
// Redis. Rule matching runs on every workflow start, so the rule set is
// served from cache between matrix mutations.
type RuleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRuleCache creates a new rule cache instance
func NewRuleCache(addr, password string, db int, ttlSeconds int) (*RuleCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Degrade to no caching when Redis is unreachable
		return &RuleCache{
			client: nil,
			ttl:    time.Duration(ttlSeconds) * time.Second,
		}, nil
	}

	return &RuleCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func (c *RuleCache) cacheKey(tenantID string, category models.DocumentCategory) string {
	return fmt.Sprintf("rules:%s:%s", tenantID, category)
}

// Get retrieves cached rules for a tenant and category. A nil slice
// with nil error means cache miss or cache unavailable.
func (c *RuleCache) Get(ctx context.Context, tenantID string, category models.DocumentCategory) ([]models.ApprovalRule, error) {
	if c.client == nil {
		return nil, nil
	}

	key := c.cacheKey(tenantID, category)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rules []models.ApprovalRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// Set caches the active rules for a tenant and category
func (c *RuleCache) Set(ctx context.Context, tenantID string, category models.DocumentCategory, rules []models.ApprovalRule) error {
	if c.client == nil {
		return nil
	}

	key := c.cacheKey(tenantID, category)
	data, err := json.Marshal(rules)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate removes cached rules for a tenant and category. Called on
// every rule mutation so readers never see a stale matrix past one write.
func (c *RuleCache) Invalidate(ctx context.Context, tenantID string, category models.DocumentCategory) error {
	if c.client == nil {
		return nil
	}

	key := c.cacheKey(tenantID, category)
	return c.client.Del(ctx, key).Err()
}

// Close closes the Redis connection
func (c *RuleCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
