package generic

// Unwrap returns the value from a (T, error) pair, panicking on error. Useful
// for calls that cannot fail in practice but still return an error.
func Unwrap[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// Unwrap_ is like Unwrap, but for calls that only return an error.
func Unwrap_(err error) {
	if err != nil {
		panic(err)
	}
}
