package entitlements

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hauswerk/hauswerk/internal/pkg/env"
)

const defaultSyncTimeout = 5 * time.Second

// TierSyncer pushes tier changes to the external entitlement service. The
// subscription tables stay the source of truth; this is a downstream cache
// update and callers treat failures as best-effort.
type TierSyncer interface {
	UpdateTier(ctx context.Context, userID string, tier Tier, billingCycle string) error
}

// Client talks to the identity service's internal entitlement API.
type Client struct {
	BaseURL      string
	ServiceToken string

	HTTPClient *http.Client
}

// NewClientFromEnv builds the entitlement client from environment config.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:      strings.TrimRight(env.GetEnv("ENTITLEMENT_API_URL", ""), "/"),
		ServiceToken: strings.TrimSpace(env.GetEnv("ENTITLEMENT_SERVICE_TOKEN", "")),
		HTTPClient: &http.Client{
			Timeout: defaultSyncTimeout,
		},
	}
}

type updateTierRequest struct {
	UserID       string `json:"user_id"`
	Tier         string `json:"tier"`
	BillingCycle string `json:"billing_cycle"`
}

// UpdateTier synchronizes a user's tier. The call is bounded by the client
// timeout; it never retries, redelivered provider events re-trigger it.
func (c *Client) UpdateTier(ctx context.Context, userID string, tier Tier, billingCycle string) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("ENTITLEMENT_API_URL is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}

	body, err := json.Marshal(updateTierRequest{
		UserID:       userID,
		Tier:         string(tier),
		BillingCycle: billingCycle,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/internal/entitlements/tier", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("entitlement sync failed: status=%d body=%s", resp.StatusCode, string(msg))
	}
	return nil
}
