package lynkco

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// deviceLoginPath is the app-gateway endpoint that exchanges a B2C access
// token for the CCC service token.
const deviceLoginPath = "/idp/api/v1/login/device"

// deviceLoginResponse represents the app-gateway device login response.
type deviceLoginResponse struct {
	Data struct {
		CCCToken string `json:"cccToken"`
	} `json:"data"`
}

func (a *LynkAuth) resolveDeviceLoginURL() string {
	if a.deviceLoginURL != "" {
		return a.deviceLoginURL
	}
	return AppGatewayURL + deviceLoginPath
}

// DeviceLogin exchanges the short-lived access token for the longer-lived CCC
// service token required by the vehicle API.
//
// Failures (network error, non-success status, or a response without a token)
// are returned as ErrCCCUnavailable. Callers are expected to log the absence
// and continue the login flow, which then degrades to a no-vehicles abort
// rather than crashing.
func (a *LynkAuth) DeviceLogin(ctx context.Context, accessToken string) (string, error) {
	if accessToken == "" {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("access token is required"))
	}

	reqBody, err := json.Marshal(map[string]string{
		"deviceId": uuid.NewString(),
	})
	if err != nil {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("failed to marshal request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.resolveDeviceLoginURL(), strings.NewReader(string(reqBody)))
	if err != nil {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("failed to create device login request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("device login request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("failed to read device login response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("device login failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var loginResp deviceLoginResponse
	if err = json.Unmarshal(body, &loginResp); err != nil {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("failed to parse device login response: %w", err))
	}

	if loginResp.Data.CCCToken == "" {
		return "", NewAuthenticationError(ErrCCCUnavailable, fmt.Errorf("device login response carries no ccc token"))
	}

	return loginResp.Data.CCCToken, nil
}
