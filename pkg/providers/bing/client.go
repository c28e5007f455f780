// Package bing talks to the Microsoft Cognitive Services speech and image
// search APIs.
package bing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/ankihorse/pkg/media"
)

const (
	DefaultTokenURL       = "https://api.cognitive.microsoft.com/sts/v1.0/issueToken"
	DefaultSpeechURL      = "https://speech.platform.bing.com/synthesize"
	DefaultImageSearchURL = "https://api.cognitive.microsoft.com/bing/v5.0/images/search"

	// TokenTTL is how long an issued token is reused. Tokens are valid for
	// ten minutes.
	TokenTTL = 9 * time.Minute

	UserAgent = "ankihorse"

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

var (
	namespace = uuid.NewMD5(uuid.NameSpaceURL, []byte("https://github.com/aretw0/ankihorse"))

	// AppID identifies the application to the speech service. It is stable
	// across runs.
	AppID = uuid.NewMD5(namespace, []byte("autovoice"))
)

// Client issues and caches access tokens for a subscription key.
type Client struct {
	APIKey   string
	TokenURL string
	HTTP     *http.Client

	// ClientID identifies this installation run to the speech service.
	ClientID uuid.UUID

	mu     sync.Mutex
	token  string
	issued time.Time
	now    func() time.Time
}

// NewClient creates a client for apiKey. httpClient may be nil.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: media.DefaultTimeout}
	}
	return &Client{
		APIKey:   apiKey,
		TokenURL: DefaultTokenURL,
		HTTP:     httpClient,
		ClientID: uuid.New(),
		now:      time.Now,
	}
}

// Token returns a cached token, issuing a new one when it is older than
// TokenTTL.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Sub(c.issued) < TokenTTL {
		return c.token, nil
	}

	token, err := c.issue(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.issued = c.now()
	return token, nil
}

// Invalidate drops the cached token so the next call to Token issues a new one.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *Client) issue(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(""))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(subscriptionKeyHeader, c.APIKey)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", media.NewHTTPError(resp.StatusCode, c.TokenURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("token endpoint returned an empty body")
	}
	return token, nil
}

// authorized runs fn with a token. If fn fails with 401 or 403 the token is
// re-issued and fn runs once more.
func authorized[T any](ctx context.Context, c *Client, fn func(token string) (T, error)) (T, error) {
	token, err := c.Token(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	out, err := fn(token)
	if status := media.StatusCode(err); status != http.StatusUnauthorized && status != http.StatusForbidden {
		return out, err
	}

	c.Invalidate()
	token, err = c.Token(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(token)
}
