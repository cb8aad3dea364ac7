package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"dzfresh/internal/shared"
)

const connectBaseURL = "https://connect.deezer.com"

// authPerms are the permissions requested at enrollment. offline_access
// keeps the token valid between scheduled runs.
const authPerms = "basic_access,email,manage_library,manage_community,delete_library,listening_history,offline_access"

// OAuth drives the authorization-code flow against the connect host.
//
// Deezer's token endpoint predates RFC 6749's form-POST convention: it
// is a plain GET with app_id, secret and code as query parameters, and
// with output=json it answers {access_token, expires}.
type OAuth struct {
	appID       string
	secret      string
	redirectURI string
	baseURL     string
	httpClient  *http.Client
}

// NewOAuth creates an OAuth helper. baseURL and client fall back to the
// public connect host and [http.DefaultClient].
func NewOAuth(appID, secret, redirectURI, baseURL string, client *http.Client) *OAuth {
	if baseURL == "" {
		baseURL = connectBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &OAuth{
		appID:       appID,
		secret:      secret,
		redirectURI: redirectURI,
		baseURL:     baseURL,
		httpClient:  client,
	}
}

// AuthURL returns the user-facing authorization URL. state, when
// non-empty, is echoed back on the redirect for callback validation.
func (o *OAuth) AuthURL(state string) string {
	q := url.Values{}
	q.Set("app_id", o.appID)
	q.Set("redirect_uri", o.redirectURI)
	q.Set("perms", authPerms)
	if state != "" {
		q.Set("state", state)
	}
	return o.baseURL + "/oauth/auth.php?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (o *OAuth) ExchangeCode(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("app_id", o.appID)
	q.Set("secret", o.secret)
	q.Set("code", code)
	q.Set("output", "json")

	target := o.baseURL + "/oauth/access_token.php?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode}
	}

	// Rejected codes come back as a bare "wrong code" text body.
	var payload struct {
		AccessToken string `json:"access_token"`
		Expires     int64  `json:"expires"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: unexpected token response %q", shared.ErrAuthFailed, body)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", shared.ErrAuthFailed)
	}

	return payload.AccessToken, nil
}
