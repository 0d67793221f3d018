package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"
)

// addressPattern is the only wallet address shape the platform accepts.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// walletTokenFormat describes one recognized token shape: a fixed prefix and
// a payload grammar plus decoder. Tokens that match no format are rejected
// outright; a token is never treated as ambiguously valid.
type walletTokenFormat struct {
	prefix  string
	payload *regexp.Regexp
	decode  func(string) ([]byte, error)
}

var walletTokenFormats = []walletTokenFormat{
	{
		prefix:  "wsig1:",
		payload: regexp.MustCompile(`^[0-9a-f]{64}$`),
		decode:  hex.DecodeString,
	},
	{
		prefix:  "wsig2:",
		payload: regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`),
		decode:  base64.RawURLEncoding.DecodeString,
	},
}

// WalletVerifier validates proof that a caller holds a wallet address. The
// proof token is an HMAC over the normalized address, presented in one of
// the enumerated formats.
type WalletVerifier struct {
	secret []byte
}

// NewWalletVerifier constructs a verifier with the shared proof secret.
func NewWalletVerifier(secret string) *WalletVerifier {
	return &WalletVerifier{secret: []byte(secret)}
}

// NormalizeAddress lowercases a wallet address after validating its shape.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) {
		return "", ErrMalformedToken
	}
	return strings.ToLower(address), nil
}

// Verify checks the token format and the address binding. It returns the
// normalized address on success.
func (v *WalletVerifier) Verify(address, token string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	format, ok := matchTokenFormat(token)
	if !ok {
		return "", ErrMalformedToken
	}
	presented, err := format.decode(strings.TrimPrefix(token, format.prefix))
	if err != nil {
		return "", ErrMalformedToken
	}
	if !hmac.Equal(presented, v.mac(normalized)) {
		return "", ErrMalformedToken
	}
	return normalized, nil
}

// ProofToken produces a wallet proof for the given address in the primary
// format. Used by checkout clients and tests.
func (v *WalletVerifier) ProofToken(address string) (string, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	return "wsig1:" + hex.EncodeToString(v.mac(normalized)), nil
}

func (v *WalletVerifier) mac(address string) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(address))
	return h.Sum(nil)
}

func matchTokenFormat(token string) (walletTokenFormat, bool) {
	for _, format := range walletTokenFormats {
		if !strings.HasPrefix(token, format.prefix) {
			continue
		}
		if format.payload.MatchString(strings.TrimPrefix(token, format.prefix)) {
			return format, true
		}
		return walletTokenFormat{}, false
	}
	return walletTokenFormat{}, false
}
