package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultGigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	defaultGigaChatScope    = "GIGACHAT_API_PERS"

	gigaChatTokenLifetime = 30 * time.Minute
	gigaChatRefreshMargin = 5 * time.Minute
)

// TokenSource yields a bearer token valid for at least one request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenCache holds refreshed credentials keyed by the credential that
// obtained them. It is constructed once per process and shared across
// providers; it is never package-level state.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]cachedToken),
		now:    time.Now,
	}
}

// Get returns the cached token for key, calling fetch only when the
// cached one is missing or inside the refresh margin.
func (c *TokenCache) Get(ctx context.Context, key string, fetch func(ctx context.Context) (string, time.Time, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[key]; ok && c.now().Before(tok.expiresAt.Add(-gigaChatRefreshMargin)) {
		return tok.value, nil
	}

	value, expiresAt, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	if expiresAt.IsZero() {
		expiresAt = c.now().Add(gigaChatTokenLifetime)
	}
	c.tokens[key] = cachedToken{value: value, expiresAt: expiresAt}
	return value, nil
}

// GigaChatTokens exchanges a GigaChat authorization key for short-lived
// access tokens via the Sber OAuth endpoint.
type GigaChatTokens struct {
	AuthKey  string
	Scope    string
	OAuthURL string
	Cache    *TokenCache
	HTTP     *http.Client
}

func NewGigaChatTokens(authKey string, cache *TokenCache) *GigaChatTokens {
	return &GigaChatTokens{
		AuthKey:  authKey,
		Scope:    defaultGigaChatScope,
		OAuthURL: defaultGigaChatOAuthURL,
		Cache:    cache,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GigaChatTokens) Token(ctx context.Context) (string, error) {
	return g.Cache.Get(ctx, g.AuthKey, g.fetch)
}

func (g *GigaChatTokens) fetch(ctx context.Context) (string, time.Time, error) {
	form := url.Values{"scope": {g.Scope}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+g.AuthKey)
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", time.Time{}, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &UnavailableError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", time.Time{}, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", time.Time{}, &RateLimitError{Status: resp.StatusCode}
	case resp.StatusCode >= 500:
		return "", time.Time{}, &UnavailableError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return "", time.Time{}, fmt.Errorf("oauth status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"` // unix millis
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", time.Time{}, fmt.Errorf("decode oauth response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("oauth response missing access_token")
	}

	var expiresAt time.Time
	if parsed.ExpiresAt > 0 {
		expiresAt = time.UnixMilli(parsed.ExpiresAt)
	}
	return parsed.AccessToken, expiresAt, nil
}
