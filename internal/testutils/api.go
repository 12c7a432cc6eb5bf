package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TestHost = "hub.test"

// TestSigningKey signs bearer tokens in HTTP tests.
var TestSigningKey = []byte("compliance-hub-test-signing-key")

type RequestOptions struct {
	Method  string // HTTP Method, GET when empty
	Path    string
	Host    string    // Host header, TestHost when empty
	Body    io.Reader // Only need to be set for POST/PATCH Methods. Used with the WithJSON method
	Headers map[string]string
}

// WithJSON is a helper function that marshals an object to JSON and returns an io.Reader.
// It is intended to be used as the Body field in RequestOptions when making HTTP requests in tests.
func WithJSON(tb testing.TB, i any) io.Reader {
	tb.Helper()

	bs, err := json.Marshal(i)
	assert.NoError(tb, err)

	return bytes.NewReader(bs)
}

// WithString wraps a raw body, for payloads that must not be valid JSON of the target type.
func WithString(body string) io.Reader {
	return strings.NewReader(body)
}

// GetJSONBody is used to get a response out of an HTTP Body encoded as JSON
// For error responses use write.ErrorMessage as it's type
func GetJSONBody[t any](tb testing.TB, w *httptest.ResponseRecorder) t {
	tb.Helper()

	var typ t

	err := json.Unmarshal(w.Body.Bytes(), &typ)
	assert.NoError(tb, err)

	return typ
}

// NewHTTPRequest builds an HTTP Request it sets default content-types for certain Methods
func NewHTTPRequest(tb testing.TB, opt RequestOptions) *http.Request {
	tb.Helper()

	if opt.Method == "" {
		opt.Method = http.MethodGet
	}

	host := opt.Host
	if host == "" {
		host = TestHost
	}

	r := httptest.NewRequestWithContext(tb.Context(), opt.Method, "http://"+host+opt.Path, opt.Body)

	switch opt.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		r.Header.Set("Content-Type", "application/json")
	}

	for k, v := range opt.Headers {
		r.Header.Add(k, v)
	}

	return r
}

// MakeHTTPRequest creates an HTTP method and gets its response for it
func MakeHTTPRequest(tb testing.TB, handler http.Handler, opt RequestOptions) *httptest.ResponseRecorder {
	tb.Helper()

	req := NewHTTPRequest(tb, opt)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	return w
}

// BearerToken returns an Authorization header value for subject signed
// with TestSigningKey.
func BearerToken(tb testing.TB, subject string, superuser bool) string {
	tb.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          subject,
		"email":        subject + "@hub.test",
		"is_superuser": superuser,
		"exp":          time.Now().Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString(TestSigningKey)
	require.NoError(tb, err)

	return "Bearer " + signed
}
