package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret-with-enough-entropy")

func TestIssuer_Validation(t *testing.T) {
	_, err := NewIssuer("", "root", secret, 0)
	assert.Error(t, err)
	_, err = NewIssuer("root-bot", "root", nil, 0)
	assert.Error(t, err)

	i, err := NewIssuer("root-bot", "root", secret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, i.ttl)
}

func TestIssueAndVerify(t *testing.T) {
	i, err := NewIssuer("root-bot", "skillbridge-root", secret, time.Minute)
	require.NoError(t, err)
	v, err := NewVerifier(secret, "skillbridge-root", "weather-app")
	require.NoError(t, err)

	tok, err := i.Token("weather-app")
	require.NoError(t, err)

	claims, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "root-bot", claims.AppID)
	assert.Equal(t, "skillbridge-root", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"weather-app"}, claims.Audience)
}

func TestVerify_Rejects(t *testing.T) {
	i, err := NewIssuer("root-bot", "skillbridge-root", secret, time.Minute)
	require.NoError(t, err)

	expired, err := NewIssuer("root-bot", "skillbridge-root", secret, time.Minute)
	require.NoError(t, err)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }

	other, err := NewIssuer("root-bot", "skillbridge-root", []byte("another-secret"), time.Minute)
	require.NoError(t, err)

	v, err := NewVerifier(secret, "skillbridge-root", "weather-app")
	require.NoError(t, err)

	wrongAudience, _ := i.Token("calendar-app")
	expiredTok, _ := expired.Token("weather-app")
	forged, _ := other.Token("weather-app")
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AppID: "root-bot"})
	noneTok, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"wrong audience": wrongAudience,
		"expired":        expiredTok,
		"wrong secret":   forged,
		"alg none":       noneTok,
		"garbage":        "not-a-jwt",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerify_MissingAppID(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString(secret)
	require.NoError(t, err)

	v, err := NewVerifier(secret, "", "")
	require.NoError(t, err)
	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	i, err := NewIssuer("root-bot", "skillbridge-root", secret, time.Minute)
	require.NoError(t, err)
	v, err := NewVerifier(secret, "skillbridge-root", "weather-app")
	require.NoError(t, err)

	var seen *Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(v, []string{"/health"}, nil)(inner)

	t.Run("skip path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities/a1", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "AUTHENTICATION")
	})

	t.Run("wrong audience", func(t *testing.T) {
		tok, _ := i.Token("calendar-app")
		r := httptest.NewRequest(http.MethodPost, "/activities/a1", nil)
		SetBearer(r, tok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, _ := i.Token("weather-app")
		r := httptest.NewRequest(http.MethodPost, "/activities/a1", nil)
		SetBearer(r, tok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "root-bot", seen.AppID)
	})
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Basic abc")
	_, ok = BearerToken(r)
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc")
	tok, ok := BearerToken(r)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
}
