package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/comicink/backend-tees/internal/common"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, mutate func(b *jwt.Builder)) string {
	t.Helper()
	b := jwt.NewBuilder().
		Subject("user-1").
		Issuer("comicink").
		Audience([]string{"comicink-api"}).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Claim("role", "customer")
	if mutate != nil {
		mutate(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	require.NoError(t, err)
	return string(signed)
}

func testVerifier() Verifier {
	return Verifier{
		Secret:   testSecret,
		Issuer:   "comicink",
		Audience: "comicink-api",
	}
}

func TestParseAccessToken(t *testing.T) {
	claims, err := testVerifier().ParseAccessToken(signToken(t, nil))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "customer", claims.Role)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token := signToken(t, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-time.Hour))
	})
	_, err := testVerifier().ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, func(b *jwt.Builder) {
		b.Issuer("somebody-else")
	})
	_, err := testVerifier().ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongKey(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("user-1").Expiration(time.Now().Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("another-secret-another-secret-00")))
	require.NoError(t, err)
	_, err = testVerifier().ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	v := testVerifier()
	_, err := v.ParseAccessToken("")
	require.Error(t, err)
	_, err = v.ParseAccessToken("not.a.token")
	require.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	mw := Middleware{Verifier: testVerifier()}
	var gotUser string
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := common.UserID(r.Context())
		gotUser = uid
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, nil))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", gotUser)
}

func TestRequireAdminMiddleware(t *testing.T) {
	mw := Middleware{Verifier: testVerifier()}
	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin := signToken(t, func(b *jwt.Builder) {
		b.Claim("role", common.RoleAdmin)
	})
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
