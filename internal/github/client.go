// Package github implements the GitHub OAuth device-authorization flow
// and the identity lookup that follows it. The client is stateless over
// network I/O; it never touches local storage.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAuthBaseURL = "https://github.com"
	DefaultAPIBaseURL  = "https://api.github.com"

	// DefaultClientID identifies the gitsock OAuth app. Device-flow apps
	// are public clients; there is no secret to protect.
	DefaultClientID = "Ov23liGAAmFlb0WoAavT"

	acceptHeader = "application/vnd.github.v3+json"
	apiVersion   = "2022-11-28"
	userAgent    = "GitSock-CLI/1.0"

	// pendingSentinel is the one error code that means "keep polling".
	pendingSentinel = "authorization_pending"
)

// DefaultScopes covers profile reads and SSH key management.
var DefaultScopes = []string{"user", "admin:public_key"}

// ErrExpired is returned when the device code outlives the server-granted
// expires_in window before the user completes authorization.
var ErrExpired = errors.New("device authorization expired")

// Client talks to the GitHub OAuth and REST endpoints.
type Client struct {
	AuthBaseURL string
	APIBaseURL  string
	ClientID    string
	Scopes      []string
	HTTPClient  *http.Client

	// sleep is replaceable in tests to observe poll cadence.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a device-flow client with production defaults.
func NewClient() *Client {
	return &Client{
		AuthBaseURL: DefaultAuthBaseURL,
		APIBaseURL:  DefaultAPIBaseURL,
		ClientID:    DefaultClientID,
		Scopes:      DefaultScopes,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sleep: ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DeviceCode is the server's answer to a device-code request. Interval is
// the server-dictated poll cadence in seconds; ExpiresIn bounds how long
// the code stays redeemable.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	Interval        int    `json:"interval"`
	ExpiresIn       int    `json:"expires_in"`
}

type accessTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RequestDeviceCode starts the flow: it asks GitHub for a user code the
// operator will enter in a browser. Any non-success status aborts this
// attempt; the caller decides whether to restart the whole flow.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{
		"client_id": {c.ClientID},
		"scope":     {strings.Join(c.Scopes, " ")},
	}

	body, err := c.postForm(ctx, c.AuthBaseURL+"/login/device/code", form)
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", err)
	}

	var code DeviceCode
	if err := json.Unmarshal(body, &code); err != nil {
		return nil, fmt.Errorf("failed to parse device code response: %w", err)
	}
	if code.DeviceCode == "" {
		return nil, fmt.Errorf("device code response is missing device_code")
	}
	return &code, nil
}

// PollToken polls the token endpoint until the user authorizes the device
// or the server answers with a definitive failure. Each pending answer is
// followed by exactly one sleep of the server-dictated interval; polling
// faster risks rate limiting. When the server granted an expires_in
// window, the loop stops with ErrExpired once it closes.
func (c *Client) PollToken(ctx context.Context, code *DeviceCode) (string, error) {
	form := url.Values{
		"client_id":   {c.ClientID},
		"device_code": {code.DeviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}

	interval := time.Duration(code.Interval) * time.Second
	expiry := time.Duration(code.ExpiresIn) * time.Second
	var elapsed time.Duration

	for {
		body, err := c.postForm(ctx, c.AuthBaseURL+"/login/oauth/access_token", form)
		if err != nil {
			return "", fmt.Errorf("token poll failed: %w", err)
		}

		var resp accessTokenResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse token response: %w", err)
		}

		switch {
		case resp.AccessToken != "":
			return resp.AccessToken, nil
		case resp.Error == pendingSentinel:
			// keep polling
		default:
			if resp.ErrorDescription != "" {
				return "", fmt.Errorf("authorization failed: %s: %s", resp.Error, resp.ErrorDescription)
			}
			return "", fmt.Errorf("authorization failed: %s", resp.Error)
		}

		if expiry > 0 && elapsed+interval >= expiry {
			return "", ErrExpired
		}
		if err := c.sleep(ctx, interval); err != nil {
			return "", err
		}
		elapsed += interval
	}
}

// User is the authenticated user's profile as returned by the API.
type User struct {
	Login string `json:"login"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FetchUser resolves the profile behind an access token. The email may be
// empty when the user keeps it private; callers that need one must treat
// that as a failed precondition.
func (c *Client) FetchUser(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	if user.Login == "" {
		return nil, fmt.Errorf("user response is missing login")
	}
	return &user, nil
}

// postForm sends a form-encoded POST and returns the body of a successful
// response. Non-2xx statuses become errors carrying the response text.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// The OAuth endpoints answer form-encoded unless JSON is asked for.
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
