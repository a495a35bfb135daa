package webhook

import (
	"crypto/subtle"
	"net/http"
	"unicode/utf8"

	"github.com/goliatone/go-topgg/core"
)

const AuthorizationHeader = "Authorization"

// Authenticator admits requests whose Authorization header equals the shared
// secret exactly. No scheme prefix is expected.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) (Authenticator, error) {
	if secret == "" {
		return Authenticator{}, core.BadInput("webhook: shared secret is required", nil)
	}
	return Authenticator{secret: []byte(secret)}, nil
}

func (a Authenticator) Authenticate(headers http.Header) error {
	if len(a.secret) == 0 {
		return core.Unauthorized("webhook: authenticator has no secret", nil)
	}
	values := headers.Values(AuthorizationHeader)
	if len(values) == 0 {
		return core.Unauthorized("webhook: authorization header is required", nil)
	}
	actual := values[0]
	if !utf8.ValidString(actual) {
		return core.Unauthorized("webhook: authorization header is required", nil)
	}
	if subtle.ConstantTimeCompare([]byte(actual), a.secret) != 1 {
		return core.Unauthorized("webhook: authorization mismatch", nil)
	}
	return nil
}
