package manager

// ptr returns a pointer to v.
// It is used for const and untyped values, which cannot take their address directly.
func ptr[T any](v T) *T {
	return &v
}
