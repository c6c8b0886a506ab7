// Package lynkco provides OAuth2 authentication functionality for the Lynk & Co
// cloud API. This package implements the complete OAuth2 flow with PKCE
// (Proof Key for Code Exchange), including token exchange, refresh, the CCC
// device-login exchange, and ID token claim decoding.
package lynkco

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCECodes holds the PKCE code verifier and challenge pair for OAuth2 flows.
type PKCECodes struct {
	// CodeVerifier is the cryptographically random string used to verify the authorization request.
	CodeVerifier string `json:"code_verifier"`
	// CodeChallenge is the SHA256-derived challenge sent with the authorization request.
	CodeChallenge string `json:"code_challenge"`
}

// CodeChallengeMethod identifies the challenge derivation sent to the
// authorization endpoint.
const CodeChallengeMethod = "S256"

// GeneratePKCECodes generates a new pair of PKCE (Proof Key for Code Exchange) codes.
// It creates a cryptographically random code verifier and its corresponding
// SHA256 code challenge, as specified in RFC 7636.
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: generateCodeChallenge(codeVerifier),
	}, nil
}

// generateCodeVerifier creates a cryptographically random string
// of 128 characters using URL-safe base64 encoding.
func generateCodeVerifier() (string, error) {
	// 96 random bytes encode to 128 base64 characters
	bytes := make([]byte, 96)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(bytes), nil
}

// generateCodeChallenge creates a SHA256 hash of the code verifier
// and encodes it using URL-safe base64 encoding without padding.
func generateCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:])
}
