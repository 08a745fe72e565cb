package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Mirror is a read-side copy of current locations. A nil snapshot with a
// nil error is a miss.
//
// Store never replaces a snapshot with an older UpdatedAt. Fill only writes
// when the route has no snapshot at all; Pull uses it to backfill from a
// database read that a concurrent push may already have superseded.
type Mirror interface {
	Store(ctx context.Context, snap Snapshot) error
	Fill(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, routeID uint) (*Snapshot, error)
	Delete(ctx context.Context, routeID uint) error
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logrus.WithField("addr", addr).Info("Connected to Redis successfully.")
	return rdb, nil
}

type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror keeps snapshots for ttl; zero means no expiry.
func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func mirrorKey(routeID uint) string {
	return fmt.Sprintf("bus_location:%d", routeID)
}

func stampKey(routeID uint) string {
	return fmt.Sprintf("bus_location:%d:updated_us", routeID)
}

// KEYS: snapshot, stamp. ARGV: json, updated_at in microseconds, ttl ms.
var storeNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
  redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

var fillAbsent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
  redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[1])
  redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`)

func (m *RedisMirror) run(ctx context.Context, script *redis.Script, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	keys := []string{mirrorKey(snap.RouteID), stampKey(snap.RouteID)}
	return script.Run(ctx, m.client, keys, string(b), snap.UpdatedAt.UnixMicro(), m.ttl.Milliseconds()).Err()
}

func (m *RedisMirror) Store(ctx context.Context, snap Snapshot) error {
	return m.run(ctx, storeNewer, snap)
}

func (m *RedisMirror) Fill(ctx context.Context, snap Snapshot) error {
	return m.run(ctx, fillAbsent, snap)
}

func (m *RedisMirror) Load(ctx context.Context, routeID uint) (*Snapshot, error) {
	b, err := m.client.Get(ctx, mirrorKey(routeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *RedisMirror) Delete(ctx context.Context, routeID uint) error {
	return m.client.Del(ctx, mirrorKey(routeID), stampKey(routeID)).Err()
}
