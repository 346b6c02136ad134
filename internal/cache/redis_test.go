package cache

import (
	"context"
	"testing"
	"time"

	"kitchen-orders/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	store := NewRedisStore(client, zerolog.Nop())
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	res := store.Get(ctx, "orders:1")
	assert.False(t, res.Hit)
	assert.NoError(t, res.Err)

	require.True(t, store.Set(ctx, "orders:1", []byte(`{"id":1}`), time.Minute).OK())

	res = store.Get(ctx, "orders:1")
	assert.True(t, res.Hit)
	assert.Equal(t, `{"id":1}`, string(res.Value))
	assert.Equal(t, time.Minute, mr.TTL("orders:1"))

	require.True(t, store.Delete(ctx, "orders:1", "orders:2").OK())
	assert.False(t, store.Get(ctx, "orders:1").Hit)
	assert.True(t, store.Delete(ctx).OK())
}

func TestRedisStore_EntriesExpire(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, "products:all", []byte(`[]`), 10*time.Second).OK())
	mr.FastForward(11 * time.Second)

	assert.False(t, store.Get(ctx, "products:all").Hit)
}

func TestRedisStore_InvalidateTags(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	tag := CategoryTag(3)
	require.True(t, store.Set(ctx, ProductKey(1), []byte(`1`), time.Minute, tag).OK())
	require.True(t, store.Set(ctx, ProductsByCategoryKey(3), []byte(`[]`), time.Minute, tag).OK())
	require.True(t, store.Set(ctx, ProductKey(2), []byte(`2`), time.Minute, CategoryTag(4)).OK())

	members, err := mr.Members(tag)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ProductKey(1), ProductsByCategoryKey(3)}, members)

	require.True(t, store.InvalidateTags(ctx, tag).OK())

	assert.False(t, store.Get(ctx, ProductKey(1)).Hit)
	assert.False(t, store.Get(ctx, ProductsByCategoryKey(3)).Hit)
	assert.True(t, store.Get(ctx, ProductKey(2)).Hit)
	assert.False(t, mr.Exists(tag))
}

func TestRedisStore_Sweep(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 250; i++ {
		require.True(t, store.Set(ctx, ProductKey(i), []byte(`{}`), time.Minute).OK())
	}
	require.True(t, store.Set(ctx, CategoriesAllKey, []byte(`[]`), time.Minute).OK())

	require.True(t, store.Sweep(ctx, ProductsPattern).OK())

	assert.False(t, store.Get(ctx, ProductKey(1)).Hit)
	assert.False(t, store.Get(ctx, ProductKey(250)).Hit)
	assert.True(t, store.Get(ctx, CategoriesAllKey).Hit)
}

func TestRedisStore_Fill(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	seen := store.Get(ctx, OrderKey(1), OrderListsTag)
	require.False(t, seen.Hit)

	out := store.Fill(ctx, OrderKey(1), seen.Version, []byte(`{"id":1}`), time.Minute, OrderListsTag)
	require.True(t, out.OK())
	assert.False(t, out.Stale)
	assert.Equal(t, time.Minute, mr.TTL(OrderKey(1)))
	members, err := mr.Members(OrderListsTag)
	require.NoError(t, err)
	assert.Equal(t, []string{OrderKey(1)}, members)

	seen = store.Get(ctx, OrderKey(2))
	require.True(t, store.Delete(ctx, OrderKey(2)).OK())
	out = store.Fill(ctx, OrderKey(2), seen.Version, []byte(`{"id":2}`), time.Minute)
	assert.True(t, out.OK())
	assert.True(t, out.Stale)
	assert.False(t, mr.Exists(OrderKey(2)))

	// A read after the invalidation carries the new generation.
	seen = store.Get(ctx, OrderKey(2))
	assert.False(t, store.Fill(ctx, OrderKey(2), seen.Version, []byte(`{"id":2}`), time.Minute).Stale)
	assert.True(t, mr.Exists(OrderKey(2)))
}

func TestRedisStore_SweepMovesGenerations(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, ProductKey(1), []byte(`{}`), time.Minute).OK())
	seen := store.Get(ctx, ProductKey(1))
	require.True(t, seen.Hit)

	require.True(t, store.Sweep(ctx, ProductsPattern).OK())

	assert.True(t, store.Fill(ctx, ProductKey(1), seen.Version, []byte(`{}`), time.Minute).Stale)
}

func TestRedisStore_FailsOpenWhenRedisIsDown(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()
	mr.Close()

	res := store.Get(ctx, "orders:1")
	assert.False(t, res.Hit)
	assert.Error(t, res.Err)

	assert.Error(t, store.Set(ctx, "orders:1", []byte(`{}`), time.Minute).Err)
	assert.Error(t, store.Fill(ctx, "orders:1", res.Version, []byte(`{}`), time.Minute).Err)
	assert.Error(t, store.Delete(ctx, "orders:1").Err)
	assert.Error(t, store.InvalidateTags(ctx, OrderListsTag).Err)
	assert.Error(t, store.Sweep(ctx, ProductsPattern).Err)
}

func TestNopStore(t *testing.T) {
	store := NewNopStore()
	ctx := context.Background()

	assert.True(t, store.Set(ctx, "k", []byte("v"), time.Minute, "tag").OK())
	assert.False(t, store.Get(ctx, "k").Hit)
	assert.True(t, store.Fill(ctx, "k", Version{}, []byte("v"), time.Minute).OK())
	assert.True(t, store.Delete(ctx, "k").OK())
	assert.True(t, store.InvalidateTags(ctx, "tag").OK())
	assert.True(t, store.Sweep(ctx, "*").OK())
	assert.NoError(t, store.Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "orders:42", OrderKey(42))
	assert.Equal(t, "orders:list:all:10:1", OrderListKey("", 10, 1))
	assert.Equal(t, "orders:list:ready:20:2", OrderListKey("ready", 20, 2))
	assert.Equal(t, "products:7", ProductKey(7))
	assert.Equal(t, "products:category:3", ProductsByCategoryKey(3))
	assert.Equal(t, "categories:3", CategoryKey(3))
	assert.Equal(t, "tag:category:3", CategoryTag(3))
	assert.Equal(t, "finance:today", FinanceKey("today"))
	assert.Equal(t, "finance:monthly:2024-05:cash", FinanceKey("monthly", "2024-05", "cash"))
	assert.Equal(t, "clients:1155550000", ClientKey("1155550000"))
}
