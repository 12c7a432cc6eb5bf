package base62

import "errors"

var (
	ErrEmptyInput     = errors.New("base62 input cannot be empty")
	ErrDecoding       = errors.New("error decoding base62 value")
	ErrRandomLength   = errors.New("random value length must be positive")
	ErrReadingEntropy = errors.New("error reading random bytes")
)
