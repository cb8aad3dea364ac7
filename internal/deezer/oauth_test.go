package deezer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"dzfresh/internal/shared"
)

func TestOAuthAuthURL(t *testing.T) {
	oauth := NewOAuth("12345", "shhh", "http://localhost:8080/oauth/return", "", nil)

	raw := oauth.AuthURL("nonce-1")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL() produced an unparseable URL: %v", err)
	}

	if parsed.Host != "connect.deezer.com" || parsed.Path != "/oauth/auth.php" {
		t.Errorf("unexpected endpoint %s%s", parsed.Host, parsed.Path)
	}

	q := parsed.Query()
	if q.Get("app_id") != "12345" {
		t.Errorf("app_id = %q", q.Get("app_id"))
	}
	if q.Get("redirect_uri") != "http://localhost:8080/oauth/return" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("state") != "nonce-1" {
		t.Errorf("state = %q", q.Get("state"))
	}
	for _, perm := range []string{"manage_library", "listening_history", "offline_access"} {
		if !strings.Contains(q.Get("perms"), perm) {
			t.Errorf("perms missing %s: %q", perm, q.Get("perms"))
		}
	}

	if got := oauth.AuthURL(""); strings.Contains(got, "state=") {
		t.Errorf("empty state must be omitted, got %q", got)
	}
}

func TestOAuthExchangeCode(t *testing.T) {
	ctx := context.Background()

	t.Run("trades the code for a token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/oauth/access_token.php" {
				t.Errorf("expected token path, got %s", r.URL.Path)
			}

			q := r.URL.Query()
			if q.Get("app_id") != "12345" || q.Get("secret") != "shhh" {
				t.Errorf("expected app credentials in query, got %v", q)
			}
			if q.Get("code") != "auth-code" {
				t.Errorf("code = %q", q.Get("code"))
			}
			if q.Get("output") != "json" {
				t.Errorf("output = %q", q.Get("output"))
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "tok-99", "expires": 0}`))
		}))
		defer server.Close()

		oauth := NewOAuth("12345", "shhh", "http://localhost:8080/oauth/return", server.URL, nil)
		token, err := oauth.ExchangeCode(ctx, "auth-code")
		if err != nil {
			t.Fatalf("ExchangeCode() error: %v", err)
		}
		if token != "tok-99" {
			t.Errorf("token = %q, want tok-99", token)
		}
	})

	t.Run("rejected code surfaces as auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// The connect host answers invalid codes with a bare text body.
			w.Write([]byte("wrong code"))
		}))
		defer server.Close()

		oauth := NewOAuth("12345", "shhh", "http://localhost:8080/oauth/return", server.URL, nil)
		_, err := oauth.ExchangeCode(ctx, "bad-code")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("empty token is an auth failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "", "expires": 0}`))
		}))
		defer server.Close()

		oauth := NewOAuth("12345", "shhh", "http://localhost:8080/oauth/return", server.URL, nil)
		_, err := oauth.ExchangeCode(ctx, "auth-code")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("error status surfaces as HTTPError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		oauth := NewOAuth("12345", "shhh", "http://localhost:8080/oauth/return", server.URL, nil)
		_, err := oauth.ExchangeCode(ctx, "auth-code")

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected *HTTPError 502, got %v", err)
		}
	})
}
