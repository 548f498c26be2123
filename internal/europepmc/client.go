// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package europepmc resolves PMIDs, PMCIDs, DOIs and titles against the
// Europe PMC REST service (https://europepmc.org/RestfulWebService).
package europepmc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/europe-pmc/internal/httputil"
	"github.com/pdiddy/europe-pmc/pkg/types"
)

const (
	// DefaultBaseURL is the Europe PMC REST base URL.
	DefaultBaseURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"
	// DefaultRenderURL serves the PDF of an open-access article by PMCID.
	DefaultRenderURL = "https://europepmc.org/backend/ptpmcrender.fcgi"
	// DefaultUserAgent identifies this tool to Europe PMC.
	DefaultUserAgent = "europe-pmc/0.1"
	// DefaultRateLimit is the default number of requests per second.
	DefaultRateLimit = 10

	// SourceMED is the PubMed/MEDLINE content source.
	// See https://europepmc.org/Help#contentsources.
	SourceMED = "MED"
)

// Lookup errors. Both are wrapped in a *LookupError.
var (
	ErrNoResult  = errors.New("no result found")
	ErrAmbiguous = errors.New("ambiguous query")
)

// LookupError reports a query that did not resolve to exactly one record.
type LookupError struct {
	Query string
	Count int
	Err   error
}

func (e *LookupError) Error() string {
	if errors.Is(e.Err, ErrAmbiguous) {
		return fmt.Sprintf("%d results found: %s", e.Count, e.Query)
	}
	return fmt.Sprintf("no result found: %s", e.Query)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Client queries the Europe PMC REST service. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	RenderURL  string
	UserAgent  string
	MaxRetries int
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the REST base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.BaseURL = u
		}
	}
}

// WithRenderURL sets the PDF render endpoint.
func WithRenderURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.RenderURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// WithRateLimit sets the maximum requests per second. Zero or negative
// removes the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.Limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithMaxRetries sets the number of retries on HTTP 429.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.MaxRetries = n }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		BaseURL:   DefaultBaseURL,
		RenderURL: DefaultRenderURL,
		UserAgent: DefaultUserAgent,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		Limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		Logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from lookup settings.
func NewClientFromConfig(cfg types.LookupConfig, logger zerolog.Logger) *Client {
	opts := []Option{
		WithBaseURL(cfg.APIURL),
		WithRenderURL(cfg.RenderURL),
		WithUserAgent(cfg.UserAgent),
		WithMaxRetries(cfg.MaxRetries),
		WithLogger(logger),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.RateLimit != 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimit))
	}
	return NewClient(opts...)
}

// Fetch classifies term and resolves it to a single record: PMIDs through
// the article endpoint, everything else through a typed search. When the
// record has a PMCID, pdf_url is set to the render URL.
func (c *Client) Fetch(ctx context.Context, term string) (Record, error) {
	termType := Classify(term)
	c.Logger.Debug().Str("type", termType.String()).Str("term", term).Msg("search")

	var (
		rec Record
		err error
	)
	if termType == TermPMID {
		rec, err = c.Article(ctx, term, SourceMED)
	} else {
		rec, err = c.Search(ctx, termType.String()+":"+term)
	}
	if err != nil {
		return nil, err
	}

	rec[KeySearch] = fmt.Sprintf("%s[%s]", term, termType)
	if pmcid := rec.PMCID(); pmcid != "" {
		rec[KeyPDFURL] = c.PDFURL(pmcid)
	}
	return rec, nil
}

// PDFURL returns the render URL for a PMCID.
func (c *Client) PDFURL(pmcid string) string {
	params := url.Values{
		"accid":    {pmcid},
		"blobtype": {"pdf"},
	}
	return c.RenderURL + "?" + params.Encode()
}

type searchResponse struct {
	HitCount   int `json:"hitCount"`
	ResultList struct {
		Result []Record `json:"result"`
	} `json:"resultList"`
}

// Search runs a query such as "doi:10.1007/s13205-018-1330-z" and returns
// the single matching record. Zero hits wrap ErrNoResult; more than one
// wraps ErrAmbiguous.
func (c *Client) Search(ctx context.Context, query string) (Record, error) {
	params := url.Values{
		"query":    {query},
		"format":   {"json"},
		"pageSize": {"1"},
	}

	var sr searchResponse
	if err := c.getJSON(ctx, "search", params, &sr); err != nil {
		return nil, err
	}

	switch {
	case sr.HitCount == 0 || (sr.HitCount == 1 && len(sr.ResultList.Result) == 0):
		return nil, &LookupError{Query: query, Err: ErrNoResult}
	case sr.HitCount == 1:
		return sr.ResultList.Result[0], nil
	default:
		return nil, &LookupError{Query: query, Count: sr.HitCount, Err: ErrAmbiguous}
	}
}

type articleResponse struct {
	Result Record `json:"result"`
}

// Article fetches a record directly by identifier from a content source
// (SourceMED when empty).
func (c *Client) Article(ctx context.Context, id, source string) (Record, error) {
	if source == "" {
		source = SourceMED
	}
	params := url.Values{
		"format":   {"json"},
		"pageSize": {"1"},
	}

	var ar articleResponse
	endpoint, err := url.JoinPath("article", source, id)
	if err != nil {
		return nil, fmt.Errorf("building article path: %w", err)
	}
	if err := c.getJSON(ctx, endpoint, params, &ar); err != nil {
		return nil, err
	}
	if len(ar.Result) == 0 {
		return nil, &LookupError{Query: fmt.Sprintf("%s [%s]", id, source), Err: ErrNoResult}
	}
	return ar.Result, nil
}

// getJSON performs a rate-limited GET against endpoint and decodes the JSON
// body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return fmt.Errorf("building URL: %w", err)
	}
	fullURL := u + "?" + params.Encode()

	if err := c.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(c.Logger.WithContext(ctx), c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("Europe PMC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("Europe PMC returned HTTP %d for %s", resp.StatusCode, endpoint)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parsing Europe PMC response: %w", err)
	}
	return nil
}
