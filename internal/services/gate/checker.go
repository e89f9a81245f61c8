package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPSubscriptionChecker calls the external FlyerService-style
// proof-of-subscription endpoint (§6 "Gate service"), the same opaque
// HTTP-adapter shape as the provider SDKs. A false result means the
// service has already rendered its own prompt to the user.
type HTTPSubscriptionChecker struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSubscriptionChecker(baseURL string) *HTTPSubscriptionChecker {
	return &HTTPSubscriptionChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (c *HTTPSubscriptionChecker) Check(ctx context.Context, userRef, languageTag string) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/subscription/check", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}

	query := url.Values{}
	query.Set("user_ref", userRef)
	query.Set("language", languageTag)
	req.URL.RawQuery = query.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("subscription checker returned status %d", resp.StatusCode)
	}

	var decoded checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, err
	}
	return decoded.Allowed, nil
}
