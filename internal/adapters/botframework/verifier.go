package botframework

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("malformed authorization header")
)

// Verifier authenticates inbound activities signed by the Bot Framework.
type Verifier struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
	parser   *jwt.Parser
}

// FetchJWKS loads the signing keys and keeps them refreshed in the
// background. Callers own the returned JWKS and should EndBackground it.
func FetchJWKS(jwksURL string, onError func(error)) (*keyfunc.JWKS, error) {
	return keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:     24 * time.Hour,
		RefreshRateLimit:    5 * time.Minute,
		RefreshTimeout:      10 * time.Second,
		RefreshUnknownKID:   true,
		RefreshErrorHandler: onError,
	})
}

// NewVerifier checks tokens against jwks. audience is the bot app id.
func NewVerifier(jwks *keyfunc.JWKS, audience, issuer string) *Verifier {
	return &Verifier{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// Verify validates the bearer token sent with act.
func (v *Verifier) Verify(authHeader string, act *Activity) error {
	if authHeader == "" {
		return errMissingAuthorization
	}
	scheme, raw, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return errBadAuthorization
	}

	token, err := v.parser.Parse(strings.TrimSpace(raw), v.jwks.Keyfunc)
	if err != nil {
		return fmt.Errorf("parse bot token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}

	if !claims.VerifyAudience(v.audience, true) {
		return errors.New("invalid audience")
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return errors.New("invalid issuer")
	}
	if su, ok := claims["serviceurl"].(string); ok && act != nil && su != act.ServiceURL {
		return errors.New("service url does not match token")
	}
	return nil
}
