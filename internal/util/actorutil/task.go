package actorutil

import (
	"time"

	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a blocking call with an optional timeout. Panics and
// timeouts surface as errors.
type SafeBackgroundTask struct {
	fn      func() error
	timeout *time.Duration
	onError func(error)
}

func NewBackgroundTaskErr(fn func() error) *SafeBackgroundTask {
	return &SafeBackgroundTask{fn: fn}
}

func (t *SafeBackgroundTask) WithTimeout(timeout time.Duration) *SafeBackgroundTask {
	t.timeout = &timeout
	return t
}

func (t *SafeBackgroundTask) OnError(fn func(error)) *SafeBackgroundTask {
	t.onError = fn
	return t
}

// Run evaluates the task synchronously inside the actor, so the actor handles
// no other message until it returns.
func (t *SafeBackgroundTask) Run() {
	bg := io.Eval(func() (struct{}, error) {
		return struct{}{}, t.fn()
	})
	if t.timeout != nil {
		bg = io.WithTimeout[struct{}](*t.timeout)(bg)
	}
	result := io.RunSync(bg)
	if result.Error != nil && t.onError != nil {
		t.onError(result.Error)
	}
}
