package cryptox

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Hasher runs password hashing and verification on at most `workers`
// goroutines at a time. Callers block, honouring ctx, until a slot frees up.
type Hasher struct {
	params Params
	sem    *semaphore.Weighted
	dummy  string
}

// ErrHashPanicked is returned when the hashing function panics.
var ErrHashPanicked = errors.New("password hashing panicked")

// NewHasher returns a Hasher with the given concurrency. workers <= 0 means
// runtime.NumCPU().
func NewHasher(workers int, params Params) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(workers)),
		dummy:  HashPassword("dummy-password", params),
	}
}

// Hash returns an Argon2id PHC string for password with a unique salt.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	return run(ctx, h.sem, func() (string, error) {
		return HashPassword(password, h.params), nil
	})
}

// Verify reports whether password matches the stored PHC string.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	return run(ctx, h.sem, func() (bool, error) {
		return VerifyPassword(password, encoded)
	})
}

// VerifyDummy spends the same work as Verify against a throwaway hash, so a
// lookup miss costs as much as a wrong password.
func (h *Hasher) VerifyDummy(ctx context.Context, password string) error {
	_, err := h.Verify(ctx, password, h.dummy)
	return err
}

type result[T any] struct {
	v   T
	err error
}

// run executes fn once a slot is acquired. If ctx ends first the caller gets
// ctx.Err(); fn still completes in the background and releases its slot.
func run[T any](ctx context.Context, sem *semaphore.Weighted, fn func() (T, error)) (T, error) {
	var zero T
	if err := sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	go func() {
		defer sem.Release(1)
		defer func() {
			if p := recover(); p != nil {
				done <- result[T]{err: fmt.Errorf("%w: %v", ErrHashPanicked, p)}
			}
		}()
		v, err := fn()
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
