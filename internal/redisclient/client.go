package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	vendorSnapshotKey = "vendors:snapshot"
	recalcLockKey     = "lock:score-recalc"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetVendorSnapshot returns the cached vendor list, or (nil, false) on a
// miss. The snapshot is shared across users: the supplier directory is
// the same for every authorized session.
func (c *Client) GetVendorSnapshot(ctx context.Context) ([]models.Vendor, bool, error) {
	data, err := c.rdb.Get(ctx, vendorSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read vendor snapshot: %w", err)
	}

	var vendors []models.Vendor
	if err := json.Unmarshal(data, &vendors); err != nil {
		return nil, false, fmt.Errorf("failed to decode vendor snapshot: %w", err)
	}
	return vendors, true, nil
}

// SetVendorSnapshot caches the vendor list with a TTL.
func (c *Client) SetVendorSnapshot(ctx context.Context, vendors []models.Vendor, ttl time.Duration) error {
	data, err := json.Marshal(vendors)
	if err != nil {
		return fmt.Errorf("failed to encode vendor snapshot: %w", err)
	}
	return c.rdb.Set(ctx, vendorSnapshotKey, data, ttl).Err()
}

// InvalidateVendorSnapshot drops the cached vendor list.
func (c *Client) InvalidateVendorSnapshot(ctx context.Context) error {
	return c.rdb.Del(ctx, vendorSnapshotKey).Err()
}

func dismissedKey(userID int64) string {
	return fmt.Sprintf("notifications:dismissed:%d", userID)
}

// DismissNotification hides a notification for one user. The backend
// record is left untouched.
func (c *Client) DismissNotification(ctx context.Context, userID, notificationID int64) error {
	return c.rdb.SAdd(ctx, dismissedKey(userID), notificationID).Err()
}

// DismissedNotifications returns the set of locally hidden notification
// IDs for a user.
func (c *Client) DismissedNotifications(ctx context.Context, userID int64) (map[int64]bool, error) {
	members, err := c.rdb.SMembers(ctx, dismissedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dismissed notifications: %w", err)
	}

	dismissed := make(map[int64]bool, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		dismissed[id] = true
	}
	return dismissed, nil
}

// AcquireRecalcLock deduplicates concurrent recalculation triggers.
func (c *Client) AcquireRecalcLock(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, recalcLockKey, "1", ttl).Result()
}

// ReleaseRecalcLock releases the recalculation lock.
func (c *Client) ReleaseRecalcLock(ctx context.Context) error {
	return c.rdb.Del(ctx, recalcLockKey).Err()
}
