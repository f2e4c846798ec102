package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Caller places outbound calls through the gateway.
type Caller interface {
	// PlaceCall dials `to` and points the answered call at voiceURL; status
	// transitions are POSTed to statusURL. Returns the gateway's call
	// reference.
	PlaceCall(ctx context.Context, to, voiceURL, statusURL string) (string, error)
}

type restCaller struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewRESTCaller creates a Twilio REST API caller.
func NewRESTCaller(accountSID, authToken, from string) Caller {
	return &restCaller{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type callResource struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (c *restCaller) PlaceCall(ctx context.Context, to, voiceURL, statusURL string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Url", voiceURL)
	form.Set("Method", "POST")
	form.Set("StatusCallback", statusURL)
	form.Set("StatusCallbackMethod", "POST")
	for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
		form.Add("StatusCallbackEvent", ev)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call placement request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read call response: %w", err)
	}

	var call callResource
	if err := json.Unmarshal(bodyBytes, &call); err != nil {
		return "", fmt.Errorf("failed to decode call response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway returned status %d: %s (code %d)", resp.StatusCode, call.Message, call.Code)
	}
	if call.SID == "" {
		return "", fmt.Errorf("gateway returned no call sid")
	}

	return call.SID, nil
}
