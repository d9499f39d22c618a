package actorutil

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a blocking call outside the actor goroutine and
// sends the outcome back as a message. The call receives a context that is
// cancelled once the timeout elapses.
type SafeBackgroundTask[T any] struct {
	system  *actor.ActorSystem
	fn      func(context.Context) (T, error)
	timeout time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func(context.Context) (T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		system: ctx.ActorSystem(),
		fn:     fn,
	}
}

func (t *SafeBackgroundTask[T]) WithTimeout(timeout time.Duration) *SafeBackgroundTask[T] {
	t.timeout = timeout
	return t
}

// Recover converts a failure, timeout or panic into a message. Without it
// failures are dropped.
func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	go func() {
		if value, ok := t.Run(); ok {
			t.system.Root.Send(pid, value)
		}
	}()
}

// Run executes the task on the calling goroutine.
func (t *SafeBackgroundTask[T]) Run() (value T, ok bool) {
	callCtx, cancel := context.Background(), context.CancelFunc(func() {})
	if t.timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, t.timeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			value, ok = t.recovered(fmt.Errorf("background task panic: %v", r))
		}
	}()

	task := io.Eval(func() (T, error) {
		return t.fn(callCtx)
	})
	if t.timeout > 0 {
		task = io.WithTimeout[T](t.timeout)(task)
	}
	result := io.RunSync(task)
	if result.Error != nil {
		return t.recovered(result.Error)
	}
	return result.Value, true
}

func (t *SafeBackgroundTask[T]) recovered(err error) (T, bool) {
	if t.recover == nil {
		var zero T
		return zero, false
	}
	return t.recover(err), true
}

// MapBackgroundTask transforms the successful result of a task. Timeout is
// kept, recovery is not.
func MapBackgroundTask[T, T2 any](bgt *SafeBackgroundTask[T], mapFn func(T) T2) *SafeBackgroundTask[T2] {
	return &SafeBackgroundTask[T2]{
		system:  bgt.system,
		timeout: bgt.timeout,
		fn: func(ctx context.Context) (T2, error) {
			r, err := bgt.fn(ctx)
			if err != nil {
				var zero T2
				return zero, err
			}
			return mapFn(r), nil
		},
	}
}
