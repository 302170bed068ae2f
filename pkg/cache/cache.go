package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is a JSON value cache.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

var loads singleflight.Group

// LoadTimeout bounds a shared load once it is detached from the caller that started it.
var LoadTimeout = 30 * time.Second

// GetOrLoad reads key into a T, calling load on a miss and storing its result.
// Concurrent misses on one key share a single load. The load does not inherit the
// cancellation of the caller that started it; each caller stops waiting when its own
// ctx is done. Cache errors other than a miss are ignored so the cache never fails a read.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var v T
	if c != nil {
		if err := c.Get(ctx, key, &v); err == nil {
			return v, true, nil
		}
	}

	ch := loads.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		v, err := load(lctx)
		if err != nil {
			return v, err
		}
		if c != nil {
			_ = c.Set(lctx, key, v, ttl)
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// Key joins a namespace and its parts with ':'.
func Key(namespace string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}
