package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/showdown-bot/internal/model"
)

// usageKey is a hash of unit name -> UsageStats JSON for one format.
func usageKey(format string) string { return "usage:" + format }

// GetUsage returns the usage entry for a unit, or nil when it has none.
func (c *Client) GetUsage(ctx context.Context, format, unit string) (*model.UsageStats, error) {
	data, err := c.rdb.HGet(ctx, usageKey(format), unit).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage: %w", err)
	}
	var stats model.UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode usage for %s: %w", unit, err)
	}
	return &stats, nil
}

// SetUsage replaces the usage table for a format in a single transaction.
func (c *Client) SetUsage(ctx context.Context, format string, table model.UsageTable) error {
	fields := make(map[string]any, len(table))
	for unit, stats := range table {
		b, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("encode usage for %s: %w", unit, err)
		}
		fields[unit] = b
	}

	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, usageKey(format))
	if len(fields) > 0 {
		pipe.HSet(ctx, usageKey(format), fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set usage: %w", err)
	}
	return nil
}

// UsageCount returns how many units have usage entries for a format.
func (c *Client) UsageCount(ctx context.Context, format string) (int64, error) {
	n, err := c.rdb.HLen(ctx, usageKey(format)).Result()
	if err != nil {
		return 0, fmt.Errorf("usage count: %w", err)
	}
	return n, nil
}
