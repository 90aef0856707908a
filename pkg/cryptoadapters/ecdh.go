package cryptoadapters

import (
	"errors"
	"io"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/zmap/zcrypto/ecdh"
)

// curveFor maps the RFC 4492 named-curve ids this engine negotiates onto
// zcrypto/ecdh's curve implementations. The standard library's
// crypto/elliptic only carries P224/P256/P384/P521 (its "P224" is
// secp224r1 but it has no secp192r1 at all), which is the grounded reason
// this package reaches for zcrypto instead, per DESIGN.md.
func curveFor(g handshake.NamedGroup) (ecdh.Curve, bool) {
	switch g {
	case handshake.GroupSecp192r1:
		return ecdh.P192r1(), true
	case handshake.GroupSecp224r1:
		return ecdh.P224r1(), true
	case handshake.GroupSecp256r1:
		return ecdh.P256r1(), true
	case handshake.GroupSecp384r1:
		return ecdh.P384r1(), true
	case handshake.GroupSecp521r1:
		return ecdh.P521r1(), true
	default:
		return nil, false
	}
}

// ECDHGroups adapts zcrypto/ecdh to handshake.ECDHProvider.
type ECDHGroups struct{}

func (ECDHGroups) SupportedGroups() []handshake.NamedGroup {
	return []handshake.NamedGroup{
		handshake.GroupSecp192r1,
		handshake.GroupSecp224r1,
		handshake.GroupSecp256r1,
		handshake.GroupSecp384r1,
		handshake.GroupSecp521r1,
	}
}

func (ECDHGroups) MakeParams(group handshake.NamedGroup, rng io.Reader) (handshake.ECDHContext, error) {
	curve, ok := curveFor(group)
	if !ok {
		return handshake.ECDHContext{}, errors.New("cryptoadapters: unsupported EC group")
	}
	priv, pub, err := curve.GenerateKey(rng)
	if err != nil {
		return handshake.ECDHContext{}, err
	}
	return handshake.ECDHContext{
		Group: group,
		D:     append([]byte(nil), priv.D...),
		Q:     curve.Marshal(pub, false),
	}, nil
}

func (ECDHGroups) ReadPublic(ctx *handshake.ECDHContext, peerPoint []byte) error {
	curve, ok := curveFor(ctx.Group)
	if !ok {
		return errors.New("cryptoadapters: unsupported EC group")
	}
	if _, ok := curve.Unmarshal(peerPoint); !ok {
		return errors.New("cryptoadapters: malformed peer EC point")
	}
	ctx.Qp = peerPoint
	return nil
}

func (ECDHGroups) ComputeSecret(ctx *handshake.ECDHContext) error {
	curve, ok := curveFor(ctx.Group)
	if !ok {
		return errors.New("cryptoadapters: unsupported EC group")
	}
	pub, ok := curve.Unmarshal(ctx.Qp)
	if !ok {
		return errors.New("cryptoadapters: malformed peer EC point")
	}
	priv := &ecdh.ECDHPrivateKey{D: ctx.D}
	secret, err := curve.GenerateSharedSecret(priv, pub)
	if err != nil {
		return err
	}
	ctx.Z = secret
	return nil
}
