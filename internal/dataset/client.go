// Package dataset loads geometry and price statistics from the price API and
// joins them into region collections.
package dataset

import (
	"context"
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/smartmap-fr/smartmap/internal/fetcher"
	"github.com/smartmap-fr/smartmap/internal/region"
)

// YearsPath lists the years with price data.
const YearsPath = "/api/years/"

// PreferredYear is selected by default when the API offers it.
const PreferredYear = 2024

// Client talks to the price API.
type Client struct {
	baseURL string
	f       fetcher.Fetcher
}

// NewClient returns a Client rooted at baseURL.
func NewClient(baseURL string, f fetcher.Fetcher) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), f: f}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

type yearsResponse struct {
	Years []int `json:"years"`
}

// Years returns the available years in ascending order.
func (c *Client) Years(ctx context.Context) ([]int, error) {
	resp, err := fetcher.GetJSON[yearsResponse](ctx, c.f, c.url(YearsPath, nil))
	if err != nil {
		return nil, eris.Wrap(err, "dataset: fetch years")
	}
	years := slices.Clone(resp.Years)
	slices.Sort(years)
	return slices.Compact(years), nil
}

// GeometryRaw returns the undecoded geometry collection of p.
func (c *Client) GeometryRaw(ctx context.Context, p region.Profile) ([]byte, error) {
	body, err := c.f.Download(ctx, c.url(p.GeometryPath, nil))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: fetch %s geometry", p.Granularity)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s geometry", p.Granularity)
	}
	return data, nil
}

// Stats returns the statistics of p for year.
func (c *Client) Stats(ctx context.Context, p region.Profile, year int) (*region.StatsPayload, error) {
	q := url.Values{"year": []string{strconv.Itoa(year)}}
	stats, err := fetcher.GetJSON[region.StatsPayload](ctx, c.f, c.url(p.StatsPath, q))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: fetch %s stats for %d", p.Granularity, year)
	}
	return stats, nil
}

// DefaultYear picks PreferredYear when available, else the latest year.
// It reports false for an empty list.
func DefaultYear(years []int) (int, bool) {
	if len(years) == 0 {
		return 0, false
	}
	if slices.Contains(years, PreferredYear) {
		return PreferredYear, true
	}
	return slices.Max(years), true
}
