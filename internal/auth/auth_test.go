package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atmx/offer-engine/internal/identity"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(string(hash), "test-signing-key", time.Hour)
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestService(t)

	token, expires, err := s.Issue("cli", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expires.After(time.Now()))

	subject, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "cli", subject)
}

func TestIssue_WrongPassword(t *testing.T) {
	s := newTestService(t)
	_, _, err := s.Issue("cli", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssue_Disabled(t *testing.T) {
	s := NewService("", "key", time.Hour)
	_, _, err := s.Issue("cli", "anything")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestVerify_Expired(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := s.Issue("cli", "s3cret")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongKey(t *testing.T) {
	s := newTestService(t)
	token, _, err := s.Issue("cli", "s3cret")
	require.NoError(t, err)

	other := NewService(string(s.passwordHash), "another-key", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t)
	var sawAPICaller bool
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAPICaller = identity.IsAPICaller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/api/v1/offers", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := s.Issue("cli", "s3cret")
	require.NoError(t, err)
	req = httptest.NewRequest("GET", "/api/v1/offers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, sawAPICaller)
}

func TestMiddleware_DisabledPassesThrough(t *testing.T) {
	s := NewService("", "", 0)
	called := false
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.False(t, identity.IsAPICaller(r.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	assert.True(t, called)
}
