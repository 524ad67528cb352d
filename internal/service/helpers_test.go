package service

import (
	"context"
	"errors"
	"time"
)

var errStoreDown = errors.New("store unavailable")

// brokenStore fails every operation
type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, key string, dest any) error { return errStoreDown }

func (brokenStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	return errStoreDown
}

func (brokenStore) TTL(ctx context.Context, key string) (time.Duration, error) { return 0, errStoreDown }

func (brokenStore) Delete(ctx context.Context, key string) error { return errStoreDown }

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
