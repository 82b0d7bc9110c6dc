package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-stock-exchange/internal/domain"
)

func TestRedisPublisher_SnapshotAndPublish(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, "prices.STMP")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(rdb, time.Hour)
	require.NoError(t, pub.Notify(ctx, sampleReport()))

	raw, err := mr.Get("stock:STMP")
	require.NoError(t, err)

	var snap PriceUpdate
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, int64(110), snap.NewPrice)
	assert.Equal(t, time.Hour, mr.TTL("stock:STMP"))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "prices.STMP", msg.Channel)
		assert.JSONEq(t, raw, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	assert.True(t, mr.Exists("stock:GEAR"))
}

func TestRedisPublisher_EmptyReport(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pub := NewRedisPublisher(rdb, 0)
	require.NoError(t, pub.Notify(context.Background(), domain.NewTickReport(time.Now(), nil)))
	assert.Empty(t, mr.Keys())
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	pub := NewRedisPublisher(rdb, time.Minute)
	assert.Error(t, pub.Notify(context.Background(), sampleReport()))
}
