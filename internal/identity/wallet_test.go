package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func TestNormalizeAddress(t *testing.T) {
	normalized, err := NormalizeAddress(testAddress)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(testAddress), normalized)

	// Whitespace is tolerated, shape violations are not.
	_, err = NormalizeAddress("  " + testAddress + "  ")
	assert.NoError(t, err)

	for _, bad := range []string{
		"",
		"Ab5801a7D398351b8bE11C439e05C5B3259aeC9B",     // missing prefix
		"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9",    // too short
		"0xAb5801a7D398351b8bE11C439e05C5B3259aeC9Bff", // too long
		"0xZZ5801a7D398351b8bE11C439e05C5B3259aeC9B",   // non-hex
	} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, ErrMalformedToken, "address %q", bad)
	}
}

func TestVerifyProofTokenRoundtrip(t *testing.T) {
	verifier := NewWalletVerifier("proof-secret")

	token, err := verifier.ProofToken(testAddress)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "wsig1:"))

	normalized, err := verifier.Verify(testAddress, token)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(testAddress), normalized)

	// The proof binds to the normalized address: any casing of the same
	// address verifies.
	_, err = verifier.Verify(strings.ToLower(testAddress), token)
	assert.NoError(t, err)
	_, err = verifier.Verify("0x"+strings.ToUpper(testAddress[2:]), token)
	assert.NoError(t, err)
}

func TestVerifySecondFormat(t *testing.T) {
	verifier := NewWalletVerifier("proof-secret")
	normalized := strings.ToLower(testAddress)

	mac := hmac.New(sha256.New, []byte("proof-secret"))
	mac.Write([]byte(normalized))
	token := "wsig2:" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	got, err := verifier.Verify(testAddress, token)
	require.NoError(t, err)
	assert.Equal(t, normalized, got)
}

func TestVerifyRejectsUnknownAndBrokenFormats(t *testing.T) {
	verifier := NewWalletVerifier("proof-secret")

	valid, err := verifier.ProofToken(testAddress)
	require.NoError(t, err)
	payload := strings.TrimPrefix(valid, "wsig1:")

	for name, token := range map[string]string{
		"unknown prefix":     "wsig9:" + payload,
		"no prefix":          payload,
		"empty":              "",
		"short hex payload":  "wsig1:" + payload[:32],
		"non-hex payload":    "wsig1:" + strings.Repeat("z", 64),
		"base64 under wsig1": "wsig1:" + base64.RawURLEncoding.EncodeToString([]byte(payload))[:43],
	} {
		_, err := verifier.Verify(testAddress, token)
		assert.ErrorIs(t, err, ErrMalformedToken, name)
	}
}

func TestVerifyRejectsForeignProof(t *testing.T) {
	verifier := NewWalletVerifier("proof-secret")
	other := NewWalletVerifier("different-secret")

	token, err := other.ProofToken(testAddress)
	require.NoError(t, err)

	_, err = verifier.Verify(testAddress, token)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestVerifyRejectsProofForOtherAddress(t *testing.T) {
	verifier := NewWalletVerifier("proof-secret")

	token, err := verifier.ProofToken("0x0000000000000000000000000000000000000001")
	require.NoError(t, err)

	_, err = verifier.Verify(testAddress, token)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
