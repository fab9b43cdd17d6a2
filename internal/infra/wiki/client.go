// Package wiki is a minimal MediaWiki client: category listings through the
// action API and page summaries through the REST API.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mycelium/internal/discovery"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config configures a Client.
type Config struct {
	// EndpointTemplate is the site root; a %s verb receives the language code.
	EndpointTemplate string
	Timeout          time.Duration
	UserAgent        string
	// HTTPClient overrides the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

// Client implements discovery.KnowledgeSource.
type Client struct {
	template  string
	userAgent string
	http      *http.Client
}

var _ discovery.KnowledgeSource = (*Client)(nil)

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.EndpointTemplate == "" {
		return nil, fmt.Errorf("wiki: endpoint template required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{template: cfg.EndpointTemplate, userAgent: cfg.UserAgent, http: hc}, nil
}

func (c *Client) base(lang string) string {
	if strings.Contains(c.template, "%s") {
		return strings.TrimRight(fmt.Sprintf(c.template, lang), "/")
	}
	return strings.TrimRight(c.template, "/")
}

type categoryResponse struct {
	Query struct {
		CategoryMembers []struct {
			NS    int    `json:"ns"`
			Title string `json:"title"`
		} `json:"categorymembers"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// CategoryMembers lists up to limit article titles in category.
func (c *Client) CategoryMembers(ctx context.Context, lang, category string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "categorymembers")
	q.Set("cmtitle", category)
	q.Set("cmnamespace", "0")
	q.Set("cmlimit", strconv.Itoa(limit))
	q.Set("format", "json")
	var out categoryResponse
	if err := c.getJSON(ctx, c.base(lang)+"/w/api.php?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("wiki: %s: %s", out.Error.Code, out.Error.Info)
	}
	titles := make([]string, 0, len(out.Query.CategoryMembers))
	for _, m := range out.Query.CategoryMembers {
		if m.NS == 0 && m.Title != "" {
			titles = append(titles, m.Title)
		}
	}
	return titles, nil
}

type summaryResponse struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Summary fetches the lead extract and thumbnail of a page.
func (c *Client) Summary(ctx context.Context, lang, title string) (discovery.Summary, error) {
	path := url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	var out summaryResponse
	if err := c.getJSON(ctx, c.base(lang)+"/api/rest_v1/page/summary/"+path, &out); err != nil {
		return discovery.Summary{}, err
	}
	s := discovery.Summary{Title: out.Title, Extract: out.Extract, PageURL: out.ContentURLs.Desktop.Page}
	if out.Thumbnail != nil {
		s.ImageURL = out.Thumbnail.Source
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("wiki: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("wiki: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("wiki: %s: status %d", req.URL.Path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("wiki: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
