package lynkco

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lynkco-community/lynkcloud/internal/config"
	"github.com/lynkco-community/lynkcloud/internal/util"
	log "github.com/sirupsen/logrus"
)

// OAuth configuration constants for the Lynk & Co cloud (Azure AD B2C).
const (
	// AuthURL is the authorization endpoint shown to the user in the browser.
	AuthURL = "https://login.lynkco.com/lynkcoprod.onmicrosoft.com/b2c_1a_signin_mfa/oauth2/v2.0/authorize"
	// TokenURL is the token endpoint for the authorization-code and refresh grants.
	TokenURL = "https://login.lynkco.com/lynkcoprod.onmicrosoft.com/b2c_1a_signin_mfa/oauth2/v2.0/token"
	// AppGatewayURL is the base URL of the vehicle app gateway.
	AppGatewayURL = "https://appgateway.lynkco.com"
	// ClientID is the mobile app's OAuth client identifier.
	ClientID = "c3c0b2f7-4c87-4c2a-97b7-7a31bd912522"
	// Scope lists the permissions requested during login.
	Scope = "openid profile offline_access"
	// RedirectURIPrefix is the registered msauth scheme prefix. Anything the
	// user pastes that does not start with this prefix is rejected before any
	// network call.
	RedirectURIPrefix = "msauth://prod.lynkco.app.crisp.prod/"
	// RedirectURI is the exact redirect URI registered for the mobile app.
	RedirectURI = RedirectURIPrefix + "LW9noh1BgPEHn5sxIbdFwkrzDk8%3D"
)

// TokenTriple is the direct result of the authorization-code exchange. The
// access and ID tokens are short-lived and consumed within the login flow;
// only the refresh token is persisted.
type TokenTriple struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
}

// tokenResponse represents the response structure from the B2C token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LynkAuth handles the Lynk & Co OAuth2 authentication flow.
// It provides methods for generating authorization URLs, exchanging pasted
// redirect URIs for tokens, refreshing tokens, and performing the CCC
// device-login exchange.
type LynkAuth struct {
	httpClient *http.Client

	// Endpoint overrides, settable in tests. Zero values fall back to the
	// production constants.
	tokenURL       string
	deviceLoginURL string
}

// NewLynkAuth creates a new Lynk & Co authentication service.
// It initializes the HTTP client with proxy settings from the provided configuration.
func NewLynkAuth(cfg *config.Config) *LynkAuth {
	return &LynkAuth{
		httpClient: util.SetProxy(cfg, &http.Client{}),
	}
}

func (a *LynkAuth) resolveTokenURL() string {
	if a.tokenURL != "" {
		return a.tokenURL
	}
	return TokenURL
}

// IsValidRedirectURI reports whether a pasted redirect URI carries the
// registered msauth scheme prefix.
func IsValidRedirectURI(redirectURI string) bool {
	return strings.HasPrefix(redirectURI, RedirectURIPrefix)
}

// GenerateAuthURL creates the OAuth authorization URL with PKCE.
//
// Parameters:
//   - state: A random state parameter for CSRF protection
//   - pkceCodes: The PKCE codes for secure code exchange
//
// Returns:
//   - string: The complete authorization URL
//   - error: An error if PKCE codes are missing
func (a *LynkAuth) GenerateAuthURL(state string, pkceCodes *PKCECodes) (string, error) {
	if pkceCodes == nil {
		return "", fmt.Errorf("PKCE codes are required")
	}

	params := url.Values{
		"client_id":             {ClientID},
		"response_type":         {"code"},
		"redirect_uri":          {RedirectURI},
		"scope":                 {Scope},
		"state":                 {state},
		"code_challenge":        {pkceCodes.CodeChallenge},
		"code_challenge_method": {CodeChallengeMethod},
	}

	return fmt.Sprintf("%s?%s", AuthURL, params.Encode()), nil
}

// parseAuthorizationCode extracts the authorization code from a pasted
// redirect URI. The mobile redirect carries the code in the query string.
func parseAuthorizationCode(redirectURI string) (string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URI: %w", err)
	}
	code := parsed.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URI carries no authorization code")
	}
	return code, nil
}

// ExchangeRedirectURI exchanges the authorization code carried by a pasted
// redirect URI for the access, refresh, and ID tokens. The redirect URI must
// already have passed the scheme-prefix check, and the PKCE codes must be the
// pair generated for this login attempt.
//
// The exchange is a single request with no retries: a failed exchange means
// the code/verifier pairing is likely already consumed server-side. Network
// failure, a non-success status, and a response missing any of the three
// tokens all yield ErrLoginFailed.
func (a *LynkAuth) ExchangeRedirectURI(ctx context.Context, redirectURI string, pkceCodes *PKCECodes) (*TokenTriple, error) {
	if pkceCodes == nil {
		return nil, NewAuthenticationError(ErrLoginFailed, fmt.Errorf("PKCE codes are required for token exchange"))
	}

	code, err := parseAuthorizationCode(redirectURI)
	if err != nil {
		return nil, NewAuthenticationError(ErrLoginFailed, err)
	}

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {ClientID},
		"scope":         {Scope},
		"code":          {code},
		"redirect_uri":  {RedirectURI},
		"code_verifier": {pkceCodes.CodeVerifier},
	}

	triple, err := a.requestTokens(ctx, data)
	if err != nil {
		return nil, NewAuthenticationError(ErrLoginFailed, err)
	}
	return triple, nil
}

// RefreshTokens refreshes the access token using the refresh token.
// This exchanges a valid refresh token for a new token set between full logins.
func (a *LynkAuth) RefreshTokens(ctx context.Context, refreshToken string) (*TokenTriple, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ClientID},
		"scope":         {Scope},
		"refresh_token": {refreshToken},
	}

	triple, err := a.requestTokens(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return triple, nil
}

// requestTokens performs a single POST against the token endpoint and requires
// all three tokens in the response.
func (a *LynkAuth) requestTokens(ctx context.Context, data url.Values) (*TokenTriple, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.resolveTokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("failed to close response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" || tokenResp.RefreshToken == "" || tokenResp.IDToken == "" {
		return nil, fmt.Errorf("token response is missing required tokens")
	}

	return &TokenTriple{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		IDToken:      tokenResp.IDToken,
	}, nil
}
