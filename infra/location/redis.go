// Package location provides a Redis-backed implementation of the driver
// location store, bucketed by geohash cell so radius queries stay cheap.
package location

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/mmcloughlin/geohash"

	"github.com/medride/dispatch/core/geo"
	corelocation "github.com/medride/dispatch/core/location"
	"github.com/medride/dispatch/core/model"
)

// Same precision as the in-memory index: precision 4 cells comfortably
// cover the dispatch radius when combined with their neighbors.
const indexPrecision = 4

const (
	recordKeyPrefix = "last_seen:"
	cellKeyPrefix   = "drivers:"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RedisStore implements location.Store on a Redis instance.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Update stores the record under last_seen:<uid> and moves the uid between
// geohash cell sets when the cell changed.
func (s *RedisStore) Update(ctx context.Context, uid string, rec model.LocationRecord) error {
	cell := geohash.EncodeWithPrecision(rec.Latitude, rec.Longitude, indexPrecision)

	if prev, err := s.rdb.HGet(ctx, recordKeyPrefix+uid, "cell").Result(); err == nil && prev != cell {
		if err := s.rdb.SRem(ctx, cellKeyPrefix+prev, uid).Err(); err != nil {
			return fmt.Errorf("remove from cell %s: %w", prev, err)
		}
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, recordKeyPrefix+uid, "rec", body, "cell", cell)
	pipe.SAdd(ctx, cellKeyPrefix+cell, uid)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store location: %w", err)
	}
	return nil
}

// Snapshot scans every last_seen key. Intended for admin views and tests;
// the dispatch path uses Near.
func (s *RedisStore) Snapshot(ctx context.Context) (map[string]model.LocationRecord, error) {
	out := make(map[string]model.LocationRecord)
	iter := s.rdb.Scan(ctx, 0, recordKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		uid := key[len(recordKeyPrefix):]
		rec, err := s.load(ctx, uid)
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		out[uid] = rec
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan locations: %w", err)
	}
	return out, nil
}

// Near unions the member sets of the origin cell and its neighbors and
// applies the exact distance filter.
func (s *RedisStore) Near(ctx context.Context, origin model.Coord, radiusKm float64) (map[string]model.LocationRecord, error) {
	center := geohash.EncodeWithPrecision(origin.Lat, origin.Lng, indexPrecision)
	cells := append(geohash.Neighbors(center), center)

	keys := make([]string, len(cells))
	for i, c := range cells {
		keys[i] = cellKeyPrefix + c
	}
	uids, err := s.rdb.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cell lookup: %w", err)
	}

	out := make(map[string]model.LocationRecord)
	for _, uid := range uids {
		rec, err := s.load(ctx, uid)
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}
		if geo.DistanceKm(rec.Latitude, rec.Longitude, origin.Lat, origin.Lng) <= radiusKm {
			out[uid] = rec
		}
	}
	return out, nil
}

func (s *RedisStore) load(ctx context.Context, uid string) (model.LocationRecord, error) {
	body, err := s.rdb.HGet(ctx, recordKeyPrefix+uid, "rec").Result()
	if err != nil {
		return model.LocationRecord{}, err
	}
	var rec model.LocationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return model.LocationRecord{}, fmt.Errorf("decode record for %s: %w", uid, err)
	}
	return rec, nil
}

var _ corelocation.Store = (*RedisStore)(nil)
