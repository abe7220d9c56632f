package async

// Run will run a function in a goroutine, returning its result via a channel.
// It lets a main function select between the function finishing and a signal
// context being cancelled.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}
