// Package security holds the cryptographic primitives of the auth subsystem:
// the JWT token provider, password hashing, PEM key loading, and the opaque
// refresh-token scheme.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, unsigned by us, or expired.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims carried by an access token: identity, roles,
// and the compressed menu-permission snapshot.
type AccessClaims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	MenuPerms   string   `json:"menu_perms,omitempty"`
	MenuHash    string   `json:"menu_hash,omitempty"`
	PermVersion string   `json:"perm_version,omitempty"`
}

// UserID returns the numeric user id from the subject claim, or 0 if unset or
// not numeric.
func (c *AccessClaims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// TokenProvider mints and parses signed access tokens using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
}

// NewTokenProvider returns a TokenProvider signing with privateKey (RSA or
// ECDSA). issuer and audience are stamped on every token and validated on parse.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
	}
}

// AccessTTL returns the configured access-token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// MintAccess issues an access token for the user with the given display name,
// role ids, session id, and permission claims (menu_perms/menu_hash/perm_version
// from the permission encoder). Returns the signed token and its expiry.
func (p *TokenProvider) MintAccess(userID int64, name string, roles []string, sessionID string, permClaims map[string]string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:        name,
		Roles:       roles,
		SessionID:   sessionID,
		MenuPerms:   permClaims["menu_perms"],
		MenuHash:    permClaims["menu_hash"],
		PermVersion: permClaims["perm_version"],
	}
	token, err := p.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ParseAccess verifies the token signature, issuer, audience, and expiry, and
// returns its claims. Returns ErrInvalidToken on any validation failure.
func (p *TokenProvider) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		default:
			return nil, ErrInvalidToken
		}
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseUnverified decodes the token claims without checking the signature or
// expiry. The sliding-session middleware uses it on tokens the authentication
// stage has already verified; callers must not trust unverified claims for
// authorization decisions.
func ParseUnverified(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}
