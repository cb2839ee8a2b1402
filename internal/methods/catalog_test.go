package methods

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/resilience"
	"github.com/noah-isme/backend-pos/internal/store"
	"github.com/noah-isme/backend-pos/internal/tender"
)

type fakeLister struct {
	methods []store.Method
	err     error
	calls   int
}

func (f *fakeLister) ListEnabledMethods(_ context.Context) ([]store.Method, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.methods, nil
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestAvailableRefreshesAndCaches(t *testing.T) {
	lister := &fakeLister{methods: []store.Method{
		{Kind: tender.MethodCash, Label: "Tiền mặt"},
		{Kind: tender.MethodTransfer, Label: "Chuyển khoản"},
	}}
	catalog := New(lister, testRedis(t), nil)

	listed, err := catalog.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, tender.MethodCash, listed[0].Kind)

	// second read is served from cache
	_, err = catalog.Available(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, lister.calls)
}

func TestAvailableServesStaleOnStoreFailure(t *testing.T) {
	lister := &fakeLister{methods: []store.Method{{Kind: tender.MethodCash, Label: "Tiền mặt"}}}
	catalog := New(lister, nil, nil)

	_, err := catalog.Available(context.Background())
	require.NoError(t, err)

	lister.err = errors.New("db down")
	listed, err := catalog.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestAvailableUnavailableWhenColdAndBroken(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	catalog := New(lister, nil, nil)

	_, err := catalog.Available(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestAvailableRespectsOpenBreaker(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	breaker.Report(false)

	lister := &fakeLister{methods: []store.Method{{Kind: tender.MethodCash, Label: "Tiền mặt"}}}
	catalog := New(lister, nil, breaker)

	_, err := catalog.Available(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, 0, lister.calls)
}

func TestLookup(t *testing.T) {
	lister := &fakeLister{methods: []store.Method{{Kind: tender.MethodCard, Label: "Thẻ"}}}
	catalog := New(lister, testRedis(t), nil)

	m, ok, err := catalog.Lookup(context.Background(), tender.MethodCard)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Thẻ", m.Label)

	_, ok, err = catalog.Lookup(context.Background(), tender.MethodCOD)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidateDropsCache(t *testing.T) {
	lister := &fakeLister{methods: []store.Method{{Kind: tender.MethodCash, Label: "Tiền mặt"}}}
	catalog := New(lister, testRedis(t), nil)

	_, err := catalog.Available(context.Background())
	require.NoError(t, err)
	catalog.Invalidate(context.Background())

	_, err = catalog.Available(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, lister.calls)
}
