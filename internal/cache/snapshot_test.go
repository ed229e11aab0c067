package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisSnapshotStore_ReportsUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})

	var store SnapshotStore = NewRedisSnapshotStore(client, time.Minute)
	defer store.Close()

	_, err := store.Load(context.Background(), "process")
	assert.ErrorContains(t, err, "redis get failed")

	err = store.Save(context.Background(), "process", &Entry{FetchedAt: time.Now()})
	assert.ErrorContains(t, err, "redis set failed")
}
