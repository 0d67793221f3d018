package identity

import "strings"

// claimExtractor reads a wallet address from one historical claim location.
type claimExtractor func(*Claims) string

// walletClaimExtractors is ordered by precedence. New claim shapes are added
// here rather than branching in the resolver.
var walletClaimExtractors = []claimExtractor{
	func(c *Claims) string { return c.WalletAddress },
	func(c *Claims) string { return metadataString(c.UserMetadata, "wallet_address") },
	func(c *Claims) string { return metadataString(c.AppMetadata, "wallet_address") },
}

// walletFromClaims returns the first wallet address present in the claims,
// or empty if none of the known locations carry one.
func walletFromClaims(c *Claims) string {
	if c == nil {
		return ""
	}
	for _, extract := range walletClaimExtractors {
		if addr := strings.TrimSpace(extract(c)); addr != "" {
			return addr
		}
	}
	return ""
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key].(string)
	if !ok {
		return ""
	}
	return v
}
