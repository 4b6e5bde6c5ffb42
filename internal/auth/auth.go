// Package auth verifies bearer tokens and resolves them to a principal.
package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/technopolitica/fleet-live/internal/domain"
)

type claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

type Verifier interface {
	Verify(token string) (domain.AuthInfo, error)
}

// JWTVerifier accepts RSA-signed tokens carrying a subject and a role.
type JWTVerifier struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

func NewJWTVerifier(publicKey *rsa.PublicKey, issuer string) *JWTVerifier {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name}),
	}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}
	return &JWTVerifier{
		publicKey: publicKey,
		parser:    jwt.NewParser(parserOpts...),
	}
}

func (v *JWTVerifier) Verify(bearerToken string) (authInfo domain.AuthInfo, err error) {
	var tokenClaims claims
	authToken, err := v.parser.ParseWithClaims(bearerToken, &tokenClaims, func(t *jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	})
	if err != nil {
		err = fmt.Errorf("invalid auth token (%s): %w", err, domain.ErrUnauthenticated)
		return
	}
	if !authToken.Valid {
		err = fmt.Errorf("invalid auth token: %w", domain.ErrUnauthenticated)
		return
	}
	if tokenClaims.Subject == "" {
		err = fmt.Errorf("auth token has no subject: %w", domain.ErrUnauthenticated)
		return
	}
	authInfo = domain.AuthInfo{
		PrincipalID: tokenClaims.Subject,
		Role:        tokenClaims.Role,
	}
	return
}

func ParseBearerToken(r *http.Request) (bearerToken string, err error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		err = fmt.Errorf("missing required Authorization header: %w", domain.ErrUnauthenticated)
		return
	}
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		err = fmt.Errorf("unsupported or malformed Authorization header (only Bearer scheme is supported): %w", domain.ErrUnauthenticated)
		return
	}
	bearerToken = strings.TrimSpace(token)
	if bearerToken == "" {
		err = fmt.Errorf("malformed Authorization header missing bearer token: %w", domain.ErrUnauthenticated)
	}
	return
}

// Authenticate resolves the principal behind the request's bearer token.
func Authenticate(r *http.Request, verifier Verifier) (authInfo domain.AuthInfo, err error) {
	bearerToken, err := ParseBearerToken(r)
	if err != nil {
		return
	}
	authInfo, err = verifier.Verify(bearerToken)
	return
}

// LoadPublicKey reads a PKCS1 RSA public key. Only file:// URLs are supported.
func LoadPublicKey(rawURL string) (publicKey *rsa.PublicKey, err error) {
	publicKeyURL, err := url.Parse(rawURL)
	if err != nil {
		err = fmt.Errorf("failed to parse public key as URL: %w", err)
		return
	}
	switch publicKeyURL.Scheme {
	case "file":
		if publicKeyURL.Path == "" {
			err = fmt.Errorf("public key url cannot have an empty path")
			return
		}
		var pemBytes []byte
		pemBytes, err = os.ReadFile(publicKeyURL.Path)
		if err != nil {
			return
		}
		pemBlock, _ := pem.Decode(pemBytes)
		if pemBlock == nil {
			err = fmt.Errorf("no PEM data found in %s", publicKeyURL.Path)
			return
		}
		if pemBlock.Type != "RSA PUBLIC KEY" {
			err = fmt.Errorf("invalid public key of type %s", pemBlock.Type)
			return
		}
		publicKey, err = x509.ParsePKCS1PublicKey(pemBlock.Bytes)
		return
	default:
		err = fmt.Errorf("unsupported public key source: %s", publicKeyURL.Scheme)
		return
	}
}
