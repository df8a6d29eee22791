package utils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// The device signs SHA-256 over the scheme tag, the challenge identity,
// and the raw nonce. The tag is versioned so a future scheme can be
// introduced without ambiguity about what a signature covers.
const signingSchemeTag = "campuskit/attend/v1"

// ParseDevicePublicKey decodes a PEM-encoded PKIX public key and
// requires it to be ECDSA on P-256. Anything else is rejected up front
// so registration never stores material the verifier cannot use.
func ParseDevicePublicKey(pemData string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("public key is not valid PEM")
	}
	pubIfc, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing PKIX public key: %w", err)
	}
	ecdsaPub, ok := pubIfc.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ECDSA")
	}
	if ecdsaPub.Curve != elliptic.P256() {
		return nil, errors.New("public key must use curve P-256")
	}
	return ecdsaPub, nil
}

// ChallengeDigest computes the digest a device must sign for the given
// challenge. The binding context (challenge id, user id, device id)
// is part of the digest so a signature cannot be replayed against a
// different challenge or a different device.
func ChallengeDigest(challengeID, userID, deviceID string, nonce []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(signingSchemeTag))
	h.Write([]byte("|"))
	h.Write([]byte(challengeID))
	h.Write([]byte("|"))
	h.Write([]byte(userID))
	h.Write([]byte("|"))
	h.Write([]byte(deviceID))
	h.Write([]byte("|"))
	h.Write(nonce)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyChallengeSignature checks an ASN.1 DER-encoded ECDSA signature
// over ChallengeDigest against the device's public key.
func VerifyChallengeSignature(pub *ecdsa.PublicKey, challengeID, userID, deviceID string, nonce, signature []byte) bool {
	digest := ChallengeDigest(challengeID, userID, deviceID, nonce)
	return ecdsa.VerifyASN1(pub, digest[:], signature)
}

// SignChallenge produces the ASN.1 DER signature a real device would
// send. Server code never calls this; it exists for tests and the dev
// client tooling.
func SignChallenge(priv *ecdsa.PrivateKey, challengeID, userID, deviceID string, nonce []byte) ([]byte, error) {
	digest := ChallengeDigest(challengeID, userID, deviceID, nonce)
	return ecdsa.SignASN1(rand.Reader, priv, digest[:])
}

// EncodeDevicePublicKey renders an ECDSA public key as PEM PKIX, the
// wire format register-key accepts. Counterpart to ParseDevicePublicKey.
func EncodeDevicePublicKey(pub *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}
