package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	logModule = "SEARCH"
	userAgent = "Mozilla/5.0 (compatible; Blueprint/1.0; +https://github.com/blueprint)"

	DefaultTavilyURL     = "https://api.tavily.com/search"
	DefaultSerperURL     = "https://google.serper.dev/search"
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
)

var errProvider = errors.New("search provider failed")

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type Config struct {
	TavilyAPIKey  string
	SerperAPIKey  string
	TavilyURL     string
	SerperURL     string
	DuckDuckGoURL string
	Client        *http.Client
}

// Searcher queries Tavily, then Serper, then the DuckDuckGo HTML page.
// A provider without an API key is skipped.
type Searcher struct {
	cfg        Config
	client     *http.Client
	ddgLimiter *rate.Limiter
	log        logger.ILogger
}

func NewSearcher(cfg Config, log logger.ILogger) *Searcher {
	if cfg.TavilyURL == "" {
		cfg.TavilyURL = DefaultTavilyURL
	}
	if cfg.SerperURL == "" {
		cfg.SerperURL = DefaultSerperURL
	}
	if cfg.DuckDuckGoURL == "" {
		cfg.DuckDuckGoURL = DefaultDuckDuckGoURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Searcher{
		cfg:        cfg,
		client:     client,
		ddgLimiter: rate.NewLimiter(rate.Limit(1), 1),
		log:        log,
	}
}

type provider struct {
	name string
	run  func(ctx context.Context, query string, limit int) ([]Result, error)
}

// Search never fails. It returns an empty list when every provider fails.
func (s *Searcher) Search(ctx context.Context, query string, limit int) []Result {
	start := time.Now()
	providers := make([]provider, 0, 3)
	if s.cfg.TavilyAPIKey != "" {
		providers = append(providers, provider{"tavily", s.tavily})
	}
	if s.cfg.SerperAPIKey != "" {
		providers = append(providers, provider{"serper", s.serper})
	}
	providers = append(providers, provider{"ddg", s.duckDuckGo})

	var lastErr error
	for _, p := range providers {
		results, err := p.run(ctx, query, limit)
		if err != nil {
			lastErr = err
			s.log.Warn(logModule, "search provider failed, trying fallback", map[string]interface{}{
				"provider": p.name,
				"error":    err.Error(),
			})
			continue
		}
		s.log.Info(logModule, "search completed", map[string]interface{}{
			"provider":      p.name,
			"results_count": len(results),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return results
	}

	s.log.Error(logModule, "search failed", map[string]interface{}{
		"provider":    "all",
		"query":       query,
		"error":       fmt.Sprint(lastErr),
		"error_code":  errcode.New(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return []Result{}
}

// SearchReddit restricts the query to reddit.com.
func (s *Searcher) SearchReddit(ctx context.Context, query string, limit int) []Result {
	return s.Search(ctx, "site:reddit.com "+query, limit)
}

func (s *Searcher) postJSON(ctx context.Context, endpoint string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", errProvider, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", errProvider, err)
	}
	return nil
}

func (s *Searcher) tavily(ctx context.Context, query string, limit int) ([]Result, error) {
	var data struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	body := map[string]interface{}{
		"api_key":      s.cfg.TavilyAPIKey,
		"query":        query,
		"max_results":  limit,
		"search_depth": "basic",
	}
	if err := s.postJSON(ctx, s.cfg.TavilyURL, nil, body, &data); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(data.Results))
	for _, r := range data.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

func (s *Searcher) serper(ctx context.Context, query string, limit int) ([]Result, error) {
	var data struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	headers := map[string]string{"X-API-KEY": s.cfg.SerperAPIKey}
	body := map[string]interface{}{"q": query, "num": limit}
	if err := s.postJSON(ctx, s.cfg.SerperURL, headers, body, &data); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(data.Organic))
	for _, r := range data.Organic {
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}

func (s *Searcher) duckDuckGo(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := s.ddgLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errProvider, err)
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.DuckDuckGoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: duckduckgo returned %s", errProvider, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", errProvider, err)
	}
	return parseDuckDuckGo(doc, limit), nil
}

func parseDuckDuckGo(doc *goquery.Document, limit int) []Result {
	results := make([]Result, 0, limit)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveDuckDuckGoLink(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})
	return results
}

// resolveDuckDuckGoLink unwraps the /l/?uddg= redirect DuckDuckGo puts on result links.
func resolveDuckDuckGoLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
