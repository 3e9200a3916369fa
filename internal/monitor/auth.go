package monitor

import (
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenGuard gates the monitor endpoints behind a shared token. Only the
// bcrypt hash of the token lives in the environment; the plaintext is
// presented by viewers per request. An empty hash leaves the monitor open,
// which is the expected setup on a single-user machine.
type TokenGuard struct {
	hash []byte
}

// NewTokenGuardFromEnv reads MONITOR_TOKEN_HASH.
func NewTokenGuardFromEnv() *TokenGuard {
	return NewTokenGuard(strings.TrimSpace(os.Getenv("MONITOR_TOKEN_HASH")))
}

func NewTokenGuard(bcryptHash string) *TokenGuard {
	if bcryptHash == "" {
		return &TokenGuard{}
	}
	return &TokenGuard{hash: []byte(bcryptHash)}
}

// Allow checks the token from the Authorization bearer header or the
// "token" query parameter (WebSocket clients cannot always set headers).
func (g *TokenGuard) Allow(r *http.Request) bool {
	if len(g.hash) == 0 {
		return true
	}
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(g.hash, []byte(token)) == nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// HashToken derives the environment value for a chosen token. Exposed for
// the setup path in the command harness.
func HashToken(token string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
