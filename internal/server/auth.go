package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload accepted by the API. user_id may be encoded as a
// number or a numeric string.
type Claims struct {
	UserID OwnerClaim `json:"user_id"`
	jwt.RegisteredClaims
}

// OwnerClaim is a user id that unmarshals from a JSON number or string.
type OwnerClaim int64

func (o *OwnerClaim) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return errors.New("user_id must be an integer")
	}
	*o = OwnerClaim(id)
	return nil
}

type principalKey struct{}

// principal identifies the caller. Owner is zero for the static token, which
// may act on any user's records.
type principal struct {
	Owner int64
}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// mayAccess reports whether the caller may act on userID's records.
func mayAccess(ctx context.Context, userID int64) bool {
	p, ok := principalFrom(ctx)
	if !ok || p.Owner == 0 {
		return true
	}
	return p.Owner == userID
}

type authenticator struct {
	token  string
	secret []byte
}

func newAuthenticator(token, secret string) *authenticator {
	a := &authenticator{token: strings.TrimSpace(token)}
	if secret = strings.TrimSpace(secret); secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

func (a *authenticator) enabled() bool {
	return a != nil && (a.token != "" || len(a.secret) > 0)
}

// authenticate validates the Authorization header.
func (a *authenticator) authenticate(header string) (principal, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return principal{}, errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if a.token != "" && raw == a.token {
		return principal{}, nil
	}
	if len(a.secret) == 0 {
		return principal{}, errors.New("invalid token")
	}
	claims, err := a.parseJWT(raw)
	if err != nil {
		return principal{}, err
	}
	if claims.UserID <= 0 {
		return principal{}, errors.New("token has no user_id")
	}
	return principal{Owner: int64(claims.UserID)}, nil
}

func (a *authenticator) parseJWT(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// middleware validates bearer credentials. When neither a static token
// nor a JWT secret is configured, all requests pass through.
func (a *authenticator) middleware(next http.Handler) http.Handler {
	if !a.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.authenticate(r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}
