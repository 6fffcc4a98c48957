package provision

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims a resource key across service instances so only one of them
// sends the start request.
type Guard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type localGuard struct{}

// LocalGuard always grants the claim; deduplication stays in-process.
func LocalGuard() Guard {
	return localGuard{}
}

func (localGuard) Acquire(context.Context, string) (bool, error) { return true, nil }

func (localGuard) Release(context.Context, string) error { return nil }

const lockPrefix = "provision:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type redisGuard struct {
	client *redis.Client
	ttl    time.Duration
	owner  string
}

// NewGuard returns a Redis-backed guard, or LocalGuard when client is nil.
// owner identifies this instance in the lock value.
func NewGuard(client *redis.Client, ttl time.Duration, owner string) Guard {
	if client == nil {
		return LocalGuard()
	}
	return &redisGuard{client: client, ttl: ttl, owner: owner}
}

func (g *redisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, lockPrefix+key, g.owner, g.ttl).Result()
}

// Release drops the claim only while this instance still owns it.
func (g *redisGuard) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, g.client, []string{lockPrefix + key}, g.owner).Err()
}
