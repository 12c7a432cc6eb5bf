package testutils

// NewMutator returns a function producing a fresh base value with fn applied.
// Table tests use it to derive invalid variants from one valid fixture.
func NewMutator[T any](base func() T) func(fn func(*T)) T {
	return func(fn func(*T)) T {
		v := base()
		fn(&v)

		return v
	}
}
