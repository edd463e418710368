package token

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// UserID tolerates both string and numeric encodings; the backend has
// emitted either depending on the issuing endpoint.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*u = UserID(n.String())
	return nil
}

// Claims is the decoded payload segment of a bearer token. Only the fields
// the client consumes are modeled; iat/exp come from the registered claims.
type Claims struct {
	UserID UserID `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Decode splits a bearer token into its three segments and decodes the
// payload without verifying the signature; the server is trusted to reject
// tampered tokens on use. Returns nil for anything malformed: wrong segment
// count, invalid base64url, or a payload that is not JSON.
func Decode(raw string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil
	}
	return claims
}

// IsExpired reports whether the claims have expired relative to now. Expiry
// is evaluated at every call site against wall-clock time, never cached.
// Claims without an exp are treated as expired.
func IsExpired(claims *Claims, now time.Time) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(now)
}
