package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	errs "istanbul-explorer/pkg/errors"
)

// Searcher fetches candidate image URLs for a query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// UnsplashClient searches the Unsplash photo API.
type UnsplashClient struct {
	accessKey  string
	httpClient *http.Client
}

func NewUnsplashClient(accessKey string) *UnsplashClient {
	return &UnsplashClient{
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *UnsplashClient) Name() string { return "unsplash" }

func (c *UnsplashClient) Search(ctx context.Context, query string, count int) ([]string, error) {
	if c.accessKey == "" {
		return nil, errs.NewExternal("unsplash.Search", "unsplash", "access key not configured", nil)
	}
	if count <= 0 {
		count = 10
	}

	endpoint := fmt.Sprintf("https://api.unsplash.com/search/photos?query=%s&per_page=%d&orientation=landscape",
		url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.NewExternal("unsplash.Search", "unsplash", "build request", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewExternal("unsplash.Search", "unsplash", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewExternal("unsplash.Search", "unsplash",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var raw unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errs.NewExternal("unsplash.Search", "unsplash", "decode response", err)
	}

	urls := make([]string, 0, len(raw.Results))
	for _, r := range raw.Results {
		if r.Urls.Regular != "" {
			urls = append(urls, r.Urls.Regular)
		}
	}
	return urls, nil
}

type unsplashResponse struct {
	Results []struct {
		Urls struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// PexelsClient searches the Pexels photo API.
type PexelsClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewPexelsClient(apiKey string) *PexelsClient {
	return &PexelsClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *PexelsClient) Name() string { return "pexels" }

func (c *PexelsClient) Search(ctx context.Context, query string, count int) ([]string, error) {
	if c.apiKey == "" {
		return nil, errs.NewExternal("pexels.Search", "pexels", "api key not configured", nil)
	}
	if count <= 0 {
		count = 10
	}

	endpoint := fmt.Sprintf("https://api.pexels.com/v1/search?query=%s&per_page=%d&orientation=landscape",
		url.QueryEscape(query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.NewExternal("pexels.Search", "pexels", "build request", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.NewExternal("pexels.Search", "pexels", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.NewExternal("pexels.Search", "pexels",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var raw pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errs.NewExternal("pexels.Search", "pexels", "decode response", err)
	}

	urls := make([]string, 0, len(raw.Photos))
	for _, p := range raw.Photos {
		if p.Src.Large != "" {
			urls = append(urls, p.Src.Large)
		}
	}
	return urls, nil
}

type pexelsResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// FallbackSearcher tries each provider in order and returns the first
// non-empty result set. All providers failing is an error; a provider
// returning zero results falls through to the next one.
type FallbackSearcher struct {
	providers []Searcher
}

func NewFallbackSearcher(providers ...Searcher) *FallbackSearcher {
	return &FallbackSearcher{providers: providers}
}

func (f *FallbackSearcher) Name() string { return "fallback" }

func (f *FallbackSearcher) Search(ctx context.Context, query string, count int) ([]string, error) {
	var lastErr error
	for _, p := range f.providers {
		urls, err := p.Search(ctx, query, count)
		if err != nil {
			lastErr = err
			continue
		}
		if len(urls) > 0 {
			return urls, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errs.NewExternal("images.Search", "images", "no providers returned results", nil)
}
