package lynkco

import (
	"encoding/json"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// SnowflakeIDClaim is the ID token claim carrying the Lynk & Co user identifier.
const SnowflakeIDClaim = "snowflakeId"

// DecodeIDTokenClaims decodes the payload segment of a compact JWT into a
// claims mapping without verifying the signature, issuer, audience, or expiry.
// Transport-layer integrity is trusted instead; only the payload is consumed.
//
// Malformed input (wrong segment count, invalid base64url, invalid JSON)
// yields ErrMalformedToken, which is fatal to the current login attempt since
// the user identity cannot be determined without it.
func DecodeIDTokenClaims(idToken string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, NewAuthenticationError(ErrMalformedToken, err)
	}
	return claims, nil
}

// SnowflakeID extracts the user identifier claim from decoded ID token claims.
// The claim arrives as a string or a number depending on the token issuer
// version; both are normalized to a string. Returns "" when absent.
func SnowflakeID(claims jwt.MapClaims) string {
	switch v := claims[SnowflakeIDClaim].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
