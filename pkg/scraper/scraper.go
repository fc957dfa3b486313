package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"blueprint-research-be/internal/pkg/errcode"
	"blueprint-research-be/internal/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/semaphore"
)

const (
	logModule = "SCRAPER"
	userAgent = "Mozilla/5.0 (compatible; Blueprint/1.0; +https://github.com/blueprint)"

	DefaultJinaURL  = "https://r.jina.ai/"
	DefaultMaxChars = 15000

	// maxBodyBytes caps how much of a response is read before extraction.
	maxBodyBytes = 5 << 20
)

// ErrScrape means every scrape method failed for a URL.
var ErrScrape = errors.New("scrape failed")

type Config struct {
	JinaAPIKey    string
	JinaURL       string
	MaxConcurrent int64
	MaxChars      int
	Client        *http.Client
}

// Scraper fetches page text through the Jina reader and falls back to parsing the HTML itself.
type Scraper struct {
	cfg    Config
	client *http.Client
	sem    *semaphore.Weighted
	log    logger.ILogger
}

func NewScraper(cfg Config, log logger.ILogger) *Scraper {
	if cfg.JinaURL == "" {
		cfg.JinaURL = DefaultJinaURL
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		cfg:    cfg,
		client: client,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		log:    log,
	}
}

// Scrape returns the readable text of pageURL, truncated at a sentence boundary.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", ErrScrape, err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	content, err := s.jina(ctx, pageURL)
	if err == nil {
		s.log.Info(logModule, "scrape completed", map[string]interface{}{
			"url":            pageURL,
			"method":         "jina",
			"content_length": len(content),
			"duration_ms":    time.Since(start).Milliseconds(),
		})
		return Truncate(content, s.cfg.MaxChars), nil
	}
	s.log.Warn(logModule, "scrape failed, trying fallback", map[string]interface{}{
		"url":    pageURL,
		"method": "jina",
		"error":  err.Error(),
	})

	content, err = s.html(ctx, pageURL)
	if err != nil {
		s.log.Error(logModule, "scrape failed all methods", map[string]interface{}{
			"url":        pageURL,
			"error":      err.Error(),
			"error_code": errcode.New(),
		})
		return "", fmt.Errorf("%w: %s: %v", ErrScrape, pageURL, err)
	}
	s.log.Info(logModule, "scrape completed", map[string]interface{}{
		"url":            pageURL,
		"method":         "html",
		"content_length": len(content),
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	return Truncate(content, s.cfg.MaxChars), nil
}

func (s *Scraper) get(ctx context.Context, target string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (s *Scraper) jina(ctx context.Context, pageURL string) (string, error) {
	headers := map[string]string{"Accept": "text/markdown"}
	if s.cfg.JinaAPIKey != "" {
		headers["Authorization"] = "Bearer " + s.cfg.JinaAPIKey
	}
	body, err := s.get(ctx, s.cfg.JinaURL+pageURL, headers)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", errors.New("jina returned empty content")
	}
	return content, nil
}

func (s *Scraper) html(ctx context.Context, pageURL string) (string, error) {
	body, err := s.get(ctx, pageURL, nil)
	if err != nil {
		return "", err
	}

	if parsed, perr := url.Parse(pageURL); perr == nil {
		article, rerr := readability.FromReader(strings.NewReader(string(body)), parsed)
		if rerr == nil {
			if text := cleanWhitespace(article.TextContent); text != "" {
				return text, nil
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style, nav, footer, header").Remove()
	text := cleanWhitespace(doc.Text())
	if text == "" {
		return "", errors.New("page has no text content")
	}
	return text, nil
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	spaces     = regexp.MustCompile(` +`)
)

func cleanWhitespace(text string) string {
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = spaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Truncate cuts content to maxChars characters. It keeps the last full sentence
// when that sentence ends past the halfway mark.
func Truncate(content string, maxChars int) string {
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	cut := runes[:maxChars]
	for i := len(cut) - 1; i > maxChars/2; i-- {
		switch cut[i] {
		case '.', '!', '?':
			return strings.TrimSpace(string(cut[:i+1]))
		}
	}
	return strings.TrimSpace(string(cut))
}
