package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/redis/go-redis/v9"
)

const itemKeyPrefix = "item:"

type itemCache struct {
	client *redis.Client
}

func NewItemCache(client *redis.Client) repository.ItemCache {
	return &itemCache{client: client}
}

func itemKey(itemID string) string {
	return itemKeyPrefix + itemID
}

func (c *itemCache) Get(ctx context.Context, itemID string) (*entity.Item, error) {
	val, err := c.client.Get(ctx, itemKey(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item %s from redis: %w", itemID, err)
	}

	var item entity.Item
	if err = json.Unmarshal(val, &item); err != nil {
		_ = c.Delete(ctx, itemID)
		return nil, fmt.Errorf("failed to unmarshal cached item %s: %w", itemID, err)
	}
	return &item, nil
}

func (c *itemCache) Set(ctx context.Context, item *entity.Item, ttl time.Duration) error {
	if item == nil || item.ID == "" {
		return errors.New("cannot cache nil item or item with empty ID")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item %s: %w", item.ID, err)
	}
	if err = c.client.Set(ctx, itemKey(item.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache item %s in redis: %w", item.ID, err)
	}
	return nil
}

func (c *itemCache) Delete(ctx context.Context, itemID string) error {
	if err := c.client.Del(ctx, itemKey(itemID)).Err(); err != nil {
		return fmt.Errorf("failed to evict item %s from redis: %w", itemID, err)
	}
	return nil
}
