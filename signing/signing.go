// Package signing supplies access-token signing material. A Provider is the
// external secret-management collaborator; Holder caches its answer behind a
// TTL so token operations do not hit the secret store on every request.
package signing

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no valid signing material can be obtained.
var ErrUnavailable = errors.New("signing material unavailable")

// Method identifies the signature algorithm carried by Material.
type Method string

const (
	// MethodHS256 is an exported constant or variable used by the session engine.
	MethodHS256 Method = "hs256"
	// MethodEd25519 is an exported constant or variable used by the session engine.
	MethodEd25519 Method = "ed25519"
)

// Material is one immutable snapshot of signing configuration. Holders swap
// whole snapshots; nothing ever mutates a Material in place.
type Material struct {
	Method     Method
	KeyID      string
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
}

// Valid reports whether the snapshot can sign and verify tokens.
func (m Material) Valid() bool {
	switch m.Method {
	case MethodHS256:
		return len(m.PrivateKey) >= 32
	case MethodEd25519:
		return len(m.PrivateKey) > 0 && len(m.PublicKey) > 0
	default:
		return false
	}
}

// Provider is the secret-management collaborator contract.
type Provider interface {
	SigningMaterial(ctx context.Context) (Material, error)
}

// StaticProvider returns a fixed Material. Useful for tests and for
// deployments that mount key bytes at startup.
type StaticProvider struct {
	material Material
}

// NewStaticProvider wraps a fixed Material in a Provider.
func NewStaticProvider(m Material) *StaticProvider {
	return &StaticProvider{material: m}
}

func (p *StaticProvider) SigningMaterial(context.Context) (Material, error) {
	if !p.material.Valid() {
		return Material{}, ErrUnavailable
	}
	return p.material, nil
}
