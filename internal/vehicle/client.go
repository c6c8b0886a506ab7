// Package vehicle provides the Lynk & Co app-gateway client for resolving the
// vehicles owned by an authenticated user.
package vehicle

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lynkco-community/lynkcloud/internal/auth/lynkco"
	"github.com/lynkco-community/lynkcloud/internal/config"
	"github.com/lynkco-community/lynkcloud/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Client queries the app gateway for vehicle data using the CCC service token.
type Client struct {
	httpClient *http.Client

	// baseURL overrides the production gateway in tests.
	baseURL string
}

// NewClient creates a vehicle API client with proxy settings from the configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: util.SetProxy(cfg, &http.Client{}),
	}
}

func (c *Client) resolveBaseURL() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return lynkco.AppGatewayURL
}

// GetUserVINs returns the VINs registered to the given user, in the order the
// gateway reports them. Transport and status failures are logged and returned
// as an empty slice: the caller treats "API error" and "genuinely zero
// vehicles" identically, aborting with a no-vehicles outcome either way.
func (c *Client) GetUserVINs(ctx context.Context, cccToken, userID string) []string {
	vins, err := c.fetchVINs(ctx, cccToken, userID)
	if err != nil {
		log.Errorf("vehicle lookup failed: %v", err)
		return nil
	}
	return vins
}

func (c *Client) fetchVINs(ctx context.Context, cccToken, userID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/vehicle/api/v1/users/%s/vehicles", c.resolveBaseURL(), userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vehicle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+cccToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vehicle request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vehicle response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vehicle request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var vins []string
	for _, result := range gjson.GetBytes(body, "data.#.vin").Array() {
		if vin := result.String(); vin != "" {
			vins = append(vins, vin)
		}
	}
	return vins, nil
}
