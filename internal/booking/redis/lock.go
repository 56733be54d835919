package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"ms-booking/internal/models"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	mutationLockKey = "booking_mutex"
	ledgerCacheKey  = "seat_ledger"
)

type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getLockTTL returns the mutation lock TTL from the environment or the
// default. The TTL is a safety net against a crashed holder, not a lease
// mutations are expected to run up against.
func (r *Redis) getLockTTL() time.Duration {
	defaultTTL := 30 * time.Second

	ttlStr := os.Getenv("BOOKING_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return defaultTTL
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid BOOKING_LOCK_TTL_SECONDS value '" + ttlStr + "', using default 30 seconds")
		return defaultTTL
	}
	return time.Duration(ttlSec) * time.Second
}

// Acquire claims the store-wide mutation lock for owner. All booking-store
// mutations funnel through this single lock so that a paid toggle can never
// interleave with a movie delete or another toggle. Retries briefly before
// giving up.
func (r *Redis) Acquire(owner string) (bool, error) {
	ctx := context.Background()
	ttl := r.getLockTTL()

	deadline := time.Now().Add(5 * time.Second)
	for {
		ok, err := r.Client.SetNX(ctx, mutationLockKey, owner, ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Release frees the mutation lock, but only if owner still holds it.
// Releasing someone else's lock after our TTL expired would let two
// mutations run unserialized.
func (r *Redis) Release(owner string) error {
	ctx := context.Background()
	val, err := r.Client.Get(ctx, mutationLockKey).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		_, err := r.Client.Del(ctx, mutationLockKey).Result()
		return err
	}
	return nil
}

// IsLocked reports whether any owner currently holds the mutation lock.
func (r *Redis) IsLocked() (bool, error) {
	ctx := context.Background()
	_, err := r.Client.Get(ctx, mutationLockKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StoreLedger caches the freshly reconciled ledger so browse endpoints can
// serve availability without a database round trip. The cache is replaced
// as a whole on every reconcile, mirroring how the ledger itself is written.
func (r *Redis) StoreLedger(cells []models.SeatCell) error {
	data, err := json.Marshal(cells)
	if err != nil {
		return err
	}
	return r.Client.Set(context.Background(), ledgerCacheKey, data, 0).Err()
}

// FetchLedger returns the cached ledger snapshot, or ok=false on a miss.
func (r *Redis) FetchLedger() ([]models.SeatCell, bool, error) {
	data, err := r.Client.Get(context.Background(), ledgerCacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var cells []models.SeatCell
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, false, fmt.Errorf("corrupt ledger cache: %w", err)
	}
	return cells, true, nil
}
