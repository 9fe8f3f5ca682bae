package async

import "context"

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}

// Await runs f in a goroutine and returns its result. If ctx is done first, onDone is called (e.g. to stop
// listening for further signals) and Await keeps waiting, since f is expected to see the same cancellation and
// return shortly.
func Await[T any](ctx context.Context, f func() T, onDone func()) T {
	result := Run(f)
	select {
	case value := <-result:
		return value
	case <-ctx.Done():
		if onDone != nil {
			onDone()
		}
		return <-result
	}
}
