package token

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/signing"
)

// ErrExpired is an exported constant or variable used by the session engine.
var ErrExpired = errors.New("access token expired")

// ErrBadSignature is an exported constant or variable used by the session engine.
var ErrBadSignature = errors.New("access token signature invalid")

// ErrMalformed is an exported constant or variable used by the session engine.
var ErrMalformed = errors.New("access token malformed")

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL    time.Duration
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
}

// AccessClaims is the wire shape of a minted access token: subject id,
// display name, email, role claims, unique jti, plus the registered set.
type AccessClaims struct {
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	TenantID string   `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

// Subject carries the identity fields embedded into an access token.
type Subject struct {
	UserID   string
	TenantID string
	Name     string
	Email    string
	Roles    []string
}

// Manager mints and parses access tokens using material served by a
// signing.Holder, so key rotation at the provider is picked up without
// rebuilding the manager.
type Manager struct {
	holder *signing.Holder
	config Config
}

// NewManager validates cfg and binds the manager to a signing holder.
func NewManager(holder *signing.Holder, cfg Config) (*Manager, error) {
	if holder == nil {
		return nil, errors.New("signing holder required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}

	return &Manager{holder: holder, config: cfg}, nil
}

// Issue signs a new access token for the subject. The returned jti is the
// token's unique ID, recorded alongside the paired refresh token.
func (m *Manager) Issue(ctx context.Context, sub Subject) (token string, jti string, expiresAt time.Time, err error) {
	material, err := m.holder.Current(ctx)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: %v", signing.ErrUnavailable, err)
	}

	now := time.Now()
	expiresAt = now.Add(m.config.AccessTTL)
	jti = uuid.NewString()

	claims := AccessClaims{
		Name:     sub.Name,
		Email:    sub.Email,
		Roles:    sub.Roles,
		TenantID: sub.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			ID:        jti,
			Issuer:    material.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if material.Audience != "" {
		claims.Audience = jwt.ClaimStrings{material.Audience}
	}

	tok := jwt.NewWithClaims(method(material.Method), claims)
	if material.KeyID != "" {
		tok.Header["kid"] = material.KeyID
	}

	signKey, err := signKey(material)
	if err != nil {
		return "", "", time.Time{}, err
	}

	signed, err := tok.SignedString(signKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, expiresAt, nil
}

// Parse verifies signature, issuer, audience, and expiry, and classifies
// failures so callers can react differently to Expired vs BadSignature.
func (m *Manager) Parse(ctx context.Context, tokenStr string) (*AccessClaims, error) {
	material, err := m.holder.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", signing.ErrUnavailable, err)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method(material.Method).Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if material.Issuer != "" {
		options = append(options, jwt.WithIssuer(material.Issuer))
	}
	if material.Audience != "" {
		options = append(options, jwt.WithAudience(material.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != method(material.Method).Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if material.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != "" && kid != material.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return verifyKey(material)
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := tok.Claims.(*AccessClaims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(time.Now().Add(m.config.MaxFutureIAT)) {
			return nil, ErrMalformed
		}
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func method(m signing.Method) jwt.SigningMethod {
	switch m {
	case signing.MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func signKey(material signing.Material) (interface{}, error) {
	switch material.Method {
	case signing.MethodHS256:
		return material.PrivateKey, nil
	default:
		return parseEdPrivateKey(material.PrivateKey)
	}
}

func verifyKey(material signing.Material) (interface{}, error) {
	switch material.Method {
	case signing.MethodHS256:
		return material.PrivateKey, nil
	default:
		return parseEdPublicKey(material.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
