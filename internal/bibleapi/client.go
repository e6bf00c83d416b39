// Package bibleapi is the HTTP verse source backed by a bible-api.com
// compatible chapter endpoint.
package bibleapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
)

// DefaultBaseURL is the public chapter endpoint.
const DefaultBaseURL = "https://bible-api.com"

const (
	sourceName      = "bible-api"
	maxResponseSize = 4 << 20

	// defaultFetchTimeout bounds a shared fetch when the HTTP client has no
	// timeout of its own.
	defaultFetchTimeout = 30 * time.Second
)

// ChapterResponse is the JSON body returned for a chapter query.
type ChapterResponse struct {
	Reference       string       `json:"reference"`
	Verses          []VerseEntry `json:"verses"`
	Text            string       `json:"text,omitempty"`
	TranslationID   string       `json:"translation_id,omitempty"`
	TranslationName string       `json:"translation_name,omitempty"`
}

// VerseEntry is one element of ChapterResponse.Verses.
type VerseEntry struct {
	BookID   string `json:"book_id,omitempty"`
	BookName string `json:"book_name"`
	Chapter  int    `json:"chapter"`
	Verse    int    `json:"verse"`
	Text     string `json:"text"`
}

// ToVerses converts the response to trimmed verses in response order.
func (r *ChapterResponse) ToVerses() []verse.Verse {
	out := make([]verse.Verse, 0, len(r.Verses))
	for _, e := range r.Verses {
		out = append(out, verse.Verse{Number: e.Verse, Text: CleanText(e.Text)})
	}
	return out
}

// CleanText trims the text and collapses internal runs of whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CatalogName converts a display book name such as "Song of Solomon"
// into its catalog name "songofsolomon".
func CatalogName(bookName string) string {
	return strings.ToLower(strings.Join(strings.Fields(bookName), ""))
}

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Translation is sent as ?translation= when set.
	Translation string
	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client
	// UserAgent defaults to "birthdayverse/1.0".
	UserAgent string
}

// Client fetches whole chapters over HTTP.
// Identical concurrent fetches share one request.
type Client struct {
	baseURL     string
	translation string
	httpClient  *http.Client
	userAgent   string
	group       singleflight.Group
}

// New creates a client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		translation: opts.Translation,
		httpClient:  opts.HTTPClient,
		userAgent:   opts.UserAgent,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if c.userAgent == "" {
		c.userAgent = "birthdayverse/1.0"
	}
	return c
}

// ChapterURL returns the request URL for book and chapter.
func (c *Client) ChapterURL(book string, chapter int) string {
	u := c.baseURL + "/" + url.PathEscape(book+" "+strconv.Itoa(chapter))
	if c.translation != "" {
		u += "?translation=" + url.QueryEscape(c.translation)
	}
	return u
}

// FetchChapter implements verse.Lookup.
//
// A 404 response or an empty verse list is reported as not found. Network
// failures, other non-2xx statuses and malformed bodies are transport
// errors.
//
// The shared request is detached from ctx, so one caller giving up does
// not fail the others waiting on the same chapter. Each caller still
// returns as soon as its own ctx is done.
func (c *Client) FetchChapter(ctx context.Context, book string, chapter int) ([]verse.Verse, error) {
	u := c.ChapterURL(book, chapter)

	ch := c.group.DoChan(u, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		return c.get(fetchCtx, u, book, chapter)
	})

	select {
	case <-ctx.Done():
		return nil, errors.NewTransport(sourceName, "fetch chapter", 0, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]verse.Verse)
		return append([]verse.Verse(nil), shared...), nil
	}
}

func (c *Client) fetchTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultFetchTimeout
}

func (c *Client) get(ctx context.Context, u, book string, chapter int) ([]verse.Verse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.NewTransport(sourceName, "create request", 0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransport(sourceName, "fetch chapter", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, errors.NewNotFound("chapter", fmt.Sprintf("%s %d", book, chapter))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewTransport(sourceName, "fetch chapter", resp.StatusCode, nil)
	}

	var body ChapterResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, errors.NewTransport(sourceName, "decode chapter", resp.StatusCode, err)
	}

	if len(body.Verses) == 0 {
		return nil, errors.NewNotFound("chapter", fmt.Sprintf("%s %d", book, chapter))
	}
	return body.ToVerses(), nil
}

var _ verse.Lookup = (*Client)(nil)
