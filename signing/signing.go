// Package signing implements the Signature Service: ECDSA-P256 sign/verify
// over a transaction's canonical preimage, with keys persisted as a PKCS#8
// document (private) and a raw SEC1 point (public), both hex-encoded.
// Signing is randomized, not deterministic: signing the same preimage twice
// yields two different signatures, each of which verifies. It is grounded on
// the original implementation's use of
// fixed-format (r||s, not ASN.1) ECDSA-P256-SHA256 signatures; Go's
// crypto/ecdsa and crypto/x509 are the standard library's own complete
// implementation of that exact primitive, so there is no third-party
// replacement to reach for here (see DESIGN.md).
package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"math/big"
)

const signatureLen = 64 // r (32 bytes) || s (32 bytes), fixed-format

// Preimage builds the canonical ASCII message signed for a transaction.
func Preimage(from, to string, amount int64) []byte {
	return []byte(fmt.Sprintf("%s|%s|%d", from, to, amount))
}

// GenerateKeyPair creates a fresh P-256 keypair.
func GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

// PublicKeyHex hex-encodes the uncompressed SEC1 point (0x04 || X || Y) of
// an ECDSA public key, the same raw-bytes form the original implementation
// persists.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(elliptic.Marshal(elliptic.P256(), pub.X, pub.Y))
}

// ParsePublicKeyHex decodes the hex form produced by PublicKeyHex.
func ParsePublicKeyHex(pubKeyHex string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, err
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), raw)
	if x == nil {
		return nil, fmt.Errorf("signing: invalid P-256 public key point")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// PrivateKeyHex hex-encodes the PKCS#8 DER document of a private key.
func PrivateKeyHex(priv *ecdsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}

// ParsePrivateKeyHex decodes the hex PKCS#8 form produced by PrivateKeyHex.
func ParsePrivateKeyHex(privKeyHex string) (*ecdsa.PrivateKey, error) {
	der, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	ecKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing: PKCS8 document does not hold an ECDSA key")
	}
	return ecKey, nil
}

// Sign signs the (from, to, amount) preimage with priv, returning the
// hex-encoded fixed-format signature.
func Sign(priv *ecdsa.PrivateKey, from, to string, amount int64) (string, error) {
	hash := sha256.Sum256(Preimage(from, to, amount))
	r, s, err := ecdsa.Sign(rand.Reader, priv, hash[:])
	if err != nil {
		return "", err
	}

	sig := make([]byte, signatureLen)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signatureHex is a valid signature over the
// (from, to, amount) preimage under pubKeyHex. Any decoding failure of the
// hex inputs or any cryptographic failure returns false; it never panics.
func Verify(pubKeyHex, from, to string, amount int64, signatureHex string) bool {
	pub, err := ParsePublicKeyHex(pubKeyHex)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil || len(sigBytes) != signatureLen {
		return false
	}

	r := new(big.Int).SetBytes(sigBytes[:32])
	s := new(big.Int).SetBytes(sigBytes[32:])
	hash := sha256.Sum256(Preimage(from, to, amount))
	return ecdsa.Verify(pub, hash[:], r, s)
}
