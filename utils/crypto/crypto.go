package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/utils/base62"
)

var (
	ErrInvalidKey      = errors.New("credential key must be 32 bytes")
	ErrLoadingKey      = errors.New("error loading credential key")
	ErrSealing         = errors.New("error sealing credential")
	ErrOpening         = errors.New("error opening sealed credential")
	ErrSealedTooShort  = errors.New("sealed credential is too short")
	ErrGeneratingNonce = errors.New("error generating nonce")
)

// CredentialLength is the number of random bytes in a generated password.
const CredentialLength = 24

// Sealer encrypts credentials at rest. Sealed values are printable and
// carry their own nonce.
type Sealer interface {
	Seal(plain []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

// AEADSealer seals with XChaCha20-Poly1305.
type AEADSealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*AEADSealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errs.Wrap(ErrInvalidKey, err)
	}

	return &AEADSealer{aead: aead}, nil
}

// NewSealerFromSourceRef loads the process wide key. The referenced value is
// either the raw 32 bytes or their standard base64 form.
func NewSealerFromSourceRef(ref commoncfg.SourceRef) (*AEADSealer, error) {
	raw, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return nil, errs.Wrap(ErrLoadingKey, err)
	}

	if len(raw) != chacha20poly1305.KeySize {
		decoded, decodeErr := base64.StdEncoding.DecodeString(string(raw))
		if decodeErr == nil {
			raw = decoded
		}
	}

	return NewSealer(raw)
}

func (s *AEADSealer) Seal(plain []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())

	_, err := rand.Read(nonce)
	if err != nil {
		return "", errs.Wrap(ErrGeneratingNonce, err)
	}

	return base62.Encode(s.aead.Seal(nonce, nonce, plain, nil)), nil
}

func (s *AEADSealer) Open(sealed string) ([]byte, error) {
	raw, err := base62.Decode(sealed)
	if err != nil {
		return nil, errs.Wrap(ErrOpening, err)
	}

	if len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrSealedTooShort
	}

	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errs.Wrap(ErrOpening, err)
	}

	return plain, nil
}

// GenerateCredential returns a new random password and its sealed form.
func GenerateCredential(s Sealer) (plain string, sealed string, err error) {
	plain, err = base62.RandomString(CredentialLength)
	if err != nil {
		return "", "", errs.Wrap(ErrSealing, err)
	}

	sealed, err = s.Seal([]byte(plain))
	if err != nil {
		return "", "", errs.Wrap(ErrSealing, err)
	}

	return plain, sealed, nil
}
