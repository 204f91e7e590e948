// Package pds is a small XRPC client for the account's data server.
package pds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const maxResponseBytes = 8 << 20

// Error is a non-2xx XRPC response.
type Error struct {
	Status  int
	Name    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("xrpc: http %d", e.Status)
	}
	return fmt.Sprintf("xrpc: http %d: %s: %s", e.Status, e.Name, e.Message)
}

// Client calls XRPC methods on base with hc, which is expected to attach
// credentials.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimSuffix(base, "/"), hc: hc}
}

type RepoDescription struct {
	DID             string   `json:"did"`
	Handle          string   `json:"handle"`
	HandleIsCorrect bool     `json:"handleIsCorrect"`
	Collections     []string `json:"collections"`
}

func (c *Client) DescribeRepo(ctx context.Context, repo string) (*RepoDescription, error) {
	var out RepoDescription
	if err := c.query(ctx, "com.atproto.repo.describeRepo", url.Values{"repo": {repo}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type FeedPost struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Author struct {
		DID string `json:"did"`
	} `json:"author"`
	Record json.RawMessage `json:"record"`
}

type FeedItem struct {
	Post FeedPost `json:"post"`
}

// AuthorFeed returns the most recent feed items of actor, reposts included.
func (c *Client) AuthorFeed(ctx context.Context, actor string, limit int) ([]FeedItem, error) {
	var out struct {
		Feed []FeedItem `json:"feed"`
	}
	params := url.Values{"actor": {actor}, "limit": {strconv.Itoa(limit)}}
	if err := c.query(ctx, "app.bsky.feed.getAuthorFeed", params, &out); err != nil {
		return nil, err
	}
	return out.Feed, nil
}

func (c *Client) query(ctx context.Context, method string, params url.Values, out any) error {
	u := c.base + "/xrpc/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode/100 != 2 {
		xe := &Error{Status: resp.StatusCode}
		_ = json.NewDecoder(body).Decode(xe)
		return xe
	}
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}
