package material

import (
	"context"
	"time"
)

// SetRandFloat replaces the random source of element placement.
func SetRandFloat(f func() float64) (restore func()) {
	orig := randFloat
	randFloat = f
	return func() { randFloat = orig }
}

// SetSleep replaces the retry backoff sleep.
func SetSleep(f func(ctx context.Context, d time.Duration) error) (restore func()) {
	orig := sleepFunc
	sleepFunc = f
	return func() { sleepFunc = orig }
}

var DocumentKey = documentKey

// HeldLocks is the number of materials with a live edit lock.
func (svc *Service) HeldLocks() int { return svc.locks.len() }
