package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/comicink/backend-tees/internal/common"
)

// Claims is what the rest of the service needs from a verified token.
// Account management lives in a separate identity service; this side
// only validates the tokens it mints.
type Claims struct {
	UserID string
	Role   string
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func unauthorized(msg string, err error) error {
	return common.NewAppError("UNAUTHORIZED", msg, http.StatusUnauthorized, err)
}

// ParseAccessToken verifies signature, algorithm, and temporal claims,
// and extracts the subject and role.
func (v Verifier) ParseAccessToken(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, unauthorized("missing token", nil)
	}
	alg, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}
	if alg != jwa.HS256 {
		return Claims{}, unauthorized("invalid token", errors.New("unexpected token algorithm"))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(jwa.HS256, v.Secret))
	if err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	if err := jwt.Validate(parsed, options...); err != nil {
		return Claims{}, unauthorized("invalid token", err)
	}

	claims := Claims{UserID: parsed.Subject()}
	if raw, ok := parsed.Get("role"); ok {
		if role, ok := raw.(string); ok {
			claims.Role = role
		}
	}
	if claims.UserID == "" {
		return Claims{}, unauthorized("invalid token", errors.New("token has no subject"))
	}
	return claims, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" {
		return "", errors.New("auth: token missing algorithm")
	}
	if alg == jwa.NoSignature {
		return "", errors.New("auth: token uses none algorithm")
	}
	return alg, nil
}
