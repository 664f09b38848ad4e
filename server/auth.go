package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// roleClaims mirrors the shape the original LTA REST server expects from its
// OpenID tokens: a nested "long-term-archive" claim carrying the caller's
// role, read the same way authn.Token carries role/cluster claims in the
// teacher's authn package.
type roleClaims struct {
	jwt.RegisteredClaims
	LongTermArchive struct {
		Role string `json:"role"`
	} `json:"long-term-archive"`
}

// AuthConfig carries the shared secret and algorithm used to validate
// inbound bearer tokens.
type AuthConfig struct {
	Secret    string
	Algorithm string
}

var errNoAuth = errors.New("missing or malformed Authorization header")
var errRoleMismatch = errors.New("authorization failed: role not permitted")

// authorize extracts and validates the bearer token on r, then checks its
// embedded role claim against allowed. An empty allowed list means any
// authenticated caller is permitted.
func (s *Server) authorize(r *http.Request, allowed []string) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errNoAuth
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	claims := &roleClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != s.auth.Algorithm {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.auth.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errNoAuth, err)
	}

	role := claims.LongTermArchive.Role
	if len(allowed) == 0 {
		return role, nil
	}
	for _, a := range allowed {
		if a == role {
			return role, nil
		}
	}
	return "", errRoleMismatch
}
