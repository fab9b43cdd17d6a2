// Package translate calls the Google Cloud Translation v2 REST API.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"mycelium/internal/discovery"
	"net/http"
	"net/url"
	"time"
)

// DefaultEndpoint is the public Translation v2 endpoint.
const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config configures a Client.
type Config struct {
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements discovery.Translator.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ discovery.Translator = (*Client)(nil)

// New builds a Client. Without an API key every call fails with
// discovery.ErrTranslationUnavailable.
func New(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: endpoint, apiKey: cfg.APIKey, http: hc}
}

type request struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type response struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate renders text in the target language.
func (c *Client) Translate(ctx context.Context, text, target string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no api key", discovery.ErrTranslationUnavailable)
	}
	body, err := json.Marshal(request{Q: text, Target: target, Format: "text"})
	if err != nil {
		return "", err
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("translate: endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", discovery.ErrTranslationUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("translate: decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", discovery.ErrTranslationUnavailable, resp.StatusCode, msg)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: empty response", discovery.ErrTranslationUnavailable)
	}
	return html.UnescapeString(out.Data.Translations[0].TranslatedText), nil
}
