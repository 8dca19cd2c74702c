package ledger

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Key material travels as hex strings: public keys in PKIX/DER form, private
// keys in PKCS#1 DER form, signatures as raw PKCS#1 v1.5 bytes over a SHA-256
// digest of the canonical payload.

const keyBits = 2048

// AddressLength is the fixed length of a wallet address in hex characters.
const AddressLength = 40

var addressPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// KeyPair holds a freshly generated wallet key pair in its wire encoding.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// GenerateKeyPair creates a new RSA key pair for a wallet.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("encode public key: %w", err)
	}

	return KeyPair{
		PublicKey:  hex.EncodeToString(pubDER),
		PrivateKey: hex.EncodeToString(x509.MarshalPKCS1PrivateKey(priv)),
	}, nil
}

// DeriveAddress maps a public key to its wallet address: the first 40 hex
// characters of sha256 over the DER bytes. Deterministic; fails only on a
// public key that does not parse.
func DeriveAddress(publicKey string) (string, error) {
	der, err := hex.DecodeString(publicKey)
	if err != nil {
		return "", ErrMalformedKey
	}
	if _, err := x509.ParsePKIXPublicKey(der); err != nil {
		return "", ErrMalformedKey
	}

	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])[:AddressLength], nil
}

// ValidAddress reports whether s matches the fixed 40-hex address form.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// Sign produces a signature over payload with the given private key. Fails
// loud with ErrMalformedKey when the key does not parse.
func Sign(payload []byte, privateKey string) (string, error) {
	der, err := hex.DecodeString(privateKey)
	if err != nil {
		return "", ErrMalformedKey
	}
	priv, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return "", ErrMalformedKey
	}

	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signature is valid for payload under publicKey.
// Verification runs on untrusted input, so it is total: malformed keys or
// signatures yield false, never an error.
func Verify(payload []byte, signature, publicKey string) bool {
	der, err := hex.DecodeString(publicKey)
	if err != nil {
		return false
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return false
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(payload)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
