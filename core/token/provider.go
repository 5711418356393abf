package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// AuthError marks a credential acquisition or validation failure.
type AuthError struct {
	// Status is the HTTP status returned by the auth endpoint, or zero when
	// the request itself failed.
	Status int

	// Err is the underlying cause.
	Err error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("auth failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Provider acquires, caches and invalidates the bearer token.
// Safe for concurrent use; only one fetch is in flight at a time.
type Provider struct {
	authURL string
	secret  string
	static  string
	client  *http.Client

	mu    sync.Mutex
	token string
}

// NewProvider creates a token provider. authURL is the credential endpoint;
// secret is sent as X-Auth-Secret when set. staticToken, when non-empty,
// bypasses the endpoint entirely (local development setups).
func NewProvider(authURL, secret, staticToken string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Provider{
		authURL: authURL,
		secret:  secret,
		static:  staticToken,
		client:  &http.Client{Timeout: timeout},
	}
}

// Token returns the cached bearer token, fetching it first if the cache is
// empty. Failures are returned as *AuthError.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p.static != "" {
		return p.static, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" {
		return p.token, nil
	}

	tok, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	p.token = tok
	return tok, nil
}

// Invalidate clears the cached token so the next Token call re-fetches.
// Called after the remote endpoint rejects the credential.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	if p.authURL == "" {
		return "", &AuthError{Err: fmt.Errorf("no auth endpoint configured and no static token set")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL, nil)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if p.secret != "" {
		req.Header.Set("X-Auth-Secret", p.secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &AuthError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Status: resp.StatusCode, Err: fmt.Errorf("token endpoint rejected request")}
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if body.Token == "" {
		return "", &AuthError{Err: fmt.Errorf("token endpoint returned an empty token")}
	}

	return body.Token, nil
}
