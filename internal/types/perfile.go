package types

// PerFile carries batch-ingestion metadata that callers may send either as
// a single scalar (applied to every file in the batch) or as a sequence
// positionally aligned with the files. Both forms are long-standing client
// behavior and both must keep working, so the ambiguity is modeled once
// here instead of type-sniffed at every call site.
type PerFile[T any] struct {
	scalar *T
	values []T
}

// Scalar builds a broadcast value applied to every file index.
func Scalar[T any](v T) PerFile[T] {
	return PerFile[T]{scalar: &v}
}

// PerEach builds a positional value sequence.
func PerEach[T any](vs []T) PerFile[T] {
	return PerFile[T]{values: vs}
}

// Resolve returns the value for file index i. A scalar resolves for every
// index; a sequence resolves positionally and yields the zero value past
// its end, mirroring how a short form field list has always behaved.
func (p PerFile[T]) Resolve(i int) T {
	var zero T
	if p.scalar != nil {
		return *p.scalar
	}
	if i >= 0 && i < len(p.values) {
		return p.values[i]
	}
	return zero
}

// IsZero reports whether no value was supplied at all.
func (p PerFile[T]) IsZero() bool {
	return p.scalar == nil && p.values == nil
}

// PerFileStrings maps repeated multipart form values onto a PerFile: one
// value broadcasts, several are positional.
func PerFileStrings(vs []string) PerFile[string] {
	switch len(vs) {
	case 0:
		return PerFile[string]{}
	case 1:
		return Scalar(vs[0])
	default:
		return PerEach(vs)
	}
}
