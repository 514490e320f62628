package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe runs fn and turns a panic into an error.
func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

// SafeContext is Safe for functions taking a context.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Go runs fn in a new goroutine and reports a panic through onPanic instead
// of crashing the process.
func Go(fn func(), onPanic func(error)) {
	go func() {
		if err := Safe(func() error { fn(); return nil })(); err != nil && onPanic != nil {
			onPanic(err)
		}
	}()
}
