package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/minexpert/bidwar/anonymity"
	"github.com/minexpert/bidwar/expertise"
)

// redisClient connects to the configured Redis, or returns nil when none is set.
func (a *app) redisClient(ctx context.Context) (*redis.Client, error) {
	if !a.cfg.Redis.Enabled() {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", a.cfg.Redis.Address, err)
	}
	return client, nil
}

// anonymizer builds the anonymous ID generator from config. extra specializations
// take precedence over configured ones and consultant IDs match regardless of case.
// A non-nil client adds the Redis cache.
func (a *app) anonymizer(extra map[string]string, client *redis.Client) (*anonymity.Generator, error) {
	scheme, err := a.cfg.Anonymity.NewScheme()
	if err != nil {
		return nil, err
	}

	merged := make(map[string]string, len(a.cfg.Expertise.Consultants)+len(extra))
	for id, spec := range a.cfg.Expertise.Consultants {
		merged[strings.ToLower(id)] = spec
	}
	for id, spec := range extra {
		merged[strings.ToLower(id)] = spec
	}
	table := expertise.NewFoldedDirectory(merged)

	var dir expertise.Directory = table
	if client != nil {
		dir = expertise.NewCachedDirectory(client, table, a.cfg.Redis.ExpertiseTTL, a.log)
	}
	return anonymity.NewGenerator(dir, scheme, a.log), nil
}
