package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"pickup-dispatch-service/internal/domain"
	"pickup-dispatch-service/internal/platform/obs"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "route:"

// RedisRouteCache keeps recently used routes in Redis with a TTL. It is the
// hot tier in front of SQLRouteCache.
type RedisRouteCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisRouteCache(client redis.Cmdable, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{client: client, ttl: ttl}
}

// OpenRedis parses url and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("open redis: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open redis: ping: %w", err)
	}
	return client, nil
}

type redisRoute struct {
	Start           [2]float64   `json:"start"`
	End             [2]float64   `json:"end"`
	DistanceMeters  float64      `json:"distance"`
	DurationSeconds float64      `json:"duration"`
	Steps           []storedStep `json:"steps"`
	Waypoints       [][2]float64 `json:"waypoints"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (c *RedisRouteCache) GetRoute(ctx context.Context, key string) (_ *domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.redis.Get")(&err)

	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get redis route %q: %w", key, err)
	}

	var rr redisRoute
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, false, fmt.Errorf("decode redis route %q: %w", key, err)
	}

	r := &domain.Route{
		Key:             key,
		Start:           domain.Coordinates{Lon: rr.Start[0], Lat: rr.Start[1]},
		End:             domain.Coordinates{Lon: rr.End[0], Lat: rr.End[1]},
		DistanceMeters:  rr.DistanceMeters,
		DurationSeconds: rr.DurationSeconds,
		CreatedAt:       rr.CreatedAt,
	}
	for _, st := range rr.Steps {
		r.Steps = append(r.Steps, domain.RouteStep(st))
	}
	for _, w := range rr.Waypoints {
		r.Waypoints = append(r.Waypoints, domain.Coordinates{Lon: w[0], Lat: w[1]})
	}
	return r, true, nil
}

func (c *RedisRouteCache) PutRoute(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "route.cache.redis.Put")(&err)

	rr := redisRoute{
		Start:           [2]float64{route.Start.Lon, route.Start.Lat},
		End:             [2]float64{route.End.Lon, route.End.Lat},
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		Steps:           make([]storedStep, 0, len(route.Steps)),
		Waypoints:       make([][2]float64, 0, len(route.Waypoints)),
		CreatedAt:       route.CreatedAt,
	}
	for _, st := range route.Steps {
		rr.Steps = append(rr.Steps, storedStep(st))
	}
	for _, w := range route.Waypoints {
		rr.Waypoints = append(rr.Waypoints, [2]float64{w.Lon, w.Lat})
	}

	raw, err := json.Marshal(rr)
	if err != nil {
		return fmt.Errorf("encode redis route %q: %w", route.Key, err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+route.Key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set redis route %q: %w", route.Key, err)
	}
	return nil
}
