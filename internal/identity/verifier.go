// Package identity verifies access tokens issued by the hosted identity
// provider and exposes the caller's stable identity key to handlers.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/elevenplus/tutor/internal/config"
)

const defaultLeeway = 30 * time.Second

var (
	ErrTokenInvalid    = errors.New("token_invalid")
	ErrTokenMissingSub = errors.New("token_missing_subject")
)

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	// Key is the provider-issued subject. It is the stable identity key
	// a profile is looked up by and never changes for a given account.
	Key   string
	Email string
}

// TokenVerifier validates a bearer token and extracts the caller identity.
type TokenVerifier interface {
	Verify(tokenString string) (Identity, error)
}

// Verifier validates bearer tokens against the provider's JWKS endpoint.
type Verifier struct {
	issuer   string
	audience string
	keyfunc  keyfunc.Keyfunc
	parser   *jwt.Parser
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	issuer := normalizeIssuer(cfg.IdentityIssuer)
	if issuer == "" {
		return nil, errors.New("identity issuer must be set")
	}
	if cfg.IdentityAudience == "" {
		return nil, errors.New("identity audience must be set")
	}

	jwksURL := cfg.IdentityJWKSURL
	if jwksURL == "" {
		jwksURL = issuer + ".well-known/jwks.json"
	}

	keyProvider, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("init JWKS keyfunc: %w", err)
	}

	parser := jwt.NewParser(
		jwt.WithIssuer(issuer),
		jwt.WithAudience(cfg.IdentityAudience),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name}),
	)

	return &Verifier{
		issuer:   issuer,
		audience: cfg.IdentityAudience,
		keyfunc:  keyProvider,
		parser:   parser,
	}, nil
}

// Verify parses and validates a bearer token, returning the caller identity.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := v.parser.Parse(tokenString, v.keyfunc.Keyfunc)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return Identity{}, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrTokenInvalid
	}

	id := Identity{
		Key:   readString(mapClaims, "sub"),
		Email: readString(mapClaims, "email"),
	}
	if id.Key == "" {
		return Identity{}, ErrTokenMissingSub
	}
	return id, nil
}

func normalizeIssuer(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return ""
	}
	if !strings.HasSuffix(issuer, "/") {
		issuer += "/"
	}
	return issuer
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
