package authz

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/compliance-hub/internal/errs"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrNoCredentials   = errors.New("no bearer token on request")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrLoadSigningKey  = errors.New("failed to load token signing key")
	ErrEmptySigningKey = errors.New("token signing key is empty")
)

const bearerPrefix = "Bearer "

// PrincipalExtractor authenticates the caller of a request.
type PrincipalExtractor interface {
	Extract(r *http.Request) (*hubcontext.Principal, error)
}

// Claims is the token payload understood by JWTExtractor.
type Claims struct {
	Email       string `json:"email,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`

	jwt.RegisteredClaims
}

// JWTExtractor verifies HS256 bearer tokens.
type JWTExtractor struct {
	key    []byte
	parser *jwt.Parser
}

var _ PrincipalExtractor = (*JWTExtractor)(nil)

func NewJWTExtractor(key []byte) (*JWTExtractor, error) {
	if len(key) == 0 {
		return nil, ErrEmptySigningKey
	}

	return &JWTExtractor{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

func NewJWTExtractorFromSourceRef(ref commoncfg.SourceRef) (*JWTExtractor, error) {
	key, err := commoncfg.LoadValueFromSourceRef(ref)
	if err != nil {
		return nil, errs.Wrap(ErrLoadSigningKey, err)
	}

	return NewJWTExtractor(key)
}

func (e *JWTExtractor) Extract(r *http.Request) (*hubcontext.Principal, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, ErrNoCredentials
	}

	claims := &Claims{}

	_, err := e.parser.ParseWithClaims(strings.TrimPrefix(header, bearerPrefix), claims,
		func(*jwt.Token) (any, error) { return e.key, nil })
	if err != nil {
		return nil, errs.Wrap(ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, errs.Wrapf(ErrInvalidToken, "token has no subject")
	}

	return &hubcontext.Principal{
		UserID:      claims.Subject,
		Email:       claims.Email,
		IsSuperuser: claims.IsSuperuser,
	}, nil
}
