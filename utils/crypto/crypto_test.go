package crypto_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/utils/crypto"
)

var testKey = bytes.Repeat([]byte{7}, 32)

func TestSealOpen(t *testing.T) {
	sealer, err := crypto.NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("s3cret"))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "s3cret")

	again, err := sealer.Seal([]byte("s3cret"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", string(plain))
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	sealer, err := crypto.NewSealer(testKey)
	require.NoError(t, err)

	other, err := crypto.NewSealer(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("s3cret"))
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.ErrorIs(t, err, crypto.ErrOpening)
}

func TestNewSealerRejectsShortKey(t *testing.T) {
	_, err := crypto.NewSealer([]byte("short"))
	assert.ErrorIs(t, err, crypto.ErrInvalidKey)
}

func TestNewSealerFromSourceRef(t *testing.T) {
	t.Run("base64 key", func(t *testing.T) {
		_, err := crypto.NewSealerFromSourceRef(commoncfg.SourceRef{
			Source: commoncfg.EmbeddedSourceValue,
			Value:  base64.StdEncoding.EncodeToString(testKey),
		})
		assert.NoError(t, err)
	})

	t.Run("raw key", func(t *testing.T) {
		_, err := crypto.NewSealerFromSourceRef(commoncfg.SourceRef{
			Source: commoncfg.EmbeddedSourceValue,
			Value:  string(testKey),
		})
		assert.NoError(t, err)
	})
}

func TestGenerateCredential(t *testing.T) {
	sealer, err := crypto.NewSealer(testKey)
	require.NoError(t, err)

	plain, sealed, err := crypto.GenerateCredential(sealer)
	require.NoError(t, err)
	assert.NotEmpty(t, plain)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, string(opened))
}
