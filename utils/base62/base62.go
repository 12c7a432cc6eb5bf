package base62

import (
	"crypto/rand"

	"github.com/jxskiss/base62"

	"github.com/openkcm/compliance-hub/internal/errs"
)

// Encode returns the base62 form of b. The alphabet is safe for DSN
// values, SQL literals and log lines.
func Encode(b []byte) string {
	return base62.EncodeToString(b)
}

func Decode(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrEmptyInput
	}

	decoded, err := base62.DecodeString(encoded)
	if err != nil {
		return nil, errs.Wrap(ErrDecoding, err)
	}

	return decoded, nil
}

// RandomString draws n bytes from crypto/rand and returns them base62 encoded.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", ErrRandomLength
	}

	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		return "", errs.Wrap(ErrReadingEntropy, err)
	}

	return Encode(buf), nil
}
