// Package scrape fetches article URLs from a news sitemap and extracts
// their readable text.
package scrape

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsrag/models"
)

const (
	defaultUserAgent = "newsrag-scraper/1.0 (+contact@example.com)"
	maxCharsDefault  = 20000
	fetchAttempts    = 2
)

// Scraper walks a sitemap and turns each entry into an article. Pages whose
// static HTML yields no text can optionally be rendered headlessly first.
type Scraper struct {
	httpClient  *http.Client
	logger      *log.Logger
	userAgent   string
	maxArticles int
	maxChars    int
	render      bool
}

func New(maxArticles int, render bool, timeout time.Duration, logger *log.Logger) *Scraper {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPE] ", log.LstdFlags)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		userAgent:   defaultUserAgent,
		maxArticles: maxArticles,
		maxChars:    maxCharsDefault,
		render:      render,
	}
}

// Run fetches the sitemap and scrapes up to maxArticles entries. Individual
// page failures are logged and skipped; only a dead sitemap is fatal.
func (s *Scraper) Run(ctx context.Context, sitemapURL string) ([]models.Article, error) {
	locs, err := s.fetchSitemap(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetching sitemap %s: %w", sitemapURL, err)
	}
	total := len(locs)
	if s.maxArticles > 0 && len(locs) > s.maxArticles {
		locs = locs[:s.maxArticles]
	}
	s.logger.Printf("sitemap lists %d urls, scraping %d", total, len(locs))

	var articles []models.Article
	for _, loc := range locs {
		var article models.Article
		var fetchErr error
		for attempt := 1; attempt <= fetchAttempts; attempt++ {
			article, fetchErr = s.fetchArticle(ctx, loc)
			if fetchErr == nil {
				break
			}
		}
		if fetchErr != nil {
			s.logger.Printf("skipping %s: %v", loc, fetchErr)
			continue
		}
		articles = append(articles, article)
	}
	s.logger.Printf("scraped %d/%d articles", len(articles), len(locs))
	return articles, nil
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

func (s *Scraper) fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parsing sitemap: %w", err)
	}

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

func (s *Scraper) fetchArticle(ctx context.Context, pageURL string) (models.Article, error) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return models.Article{}, fmt.Errorf("invalid url: %w", err)
	}

	body, err := s.get(ctx, pageURL)
	if err != nil {
		return models.Article{}, err
	}

	title, text, err := extract(string(body), parsed)
	if err == nil && text == "" && s.render {
		// Static HTML carried no content; try a headless render.
		html, renderErr := renderHTML(ctx, pageURL, s.userAgent)
		if renderErr != nil {
			s.logger.Printf("render %s: %v", pageURL, renderErr)
		} else {
			title, text, err = extract(html, parsed)
		}
	}
	if err != nil {
		return models.Article{}, err
	}
	if text == "" {
		return models.Article{}, fmt.Errorf("no readable text")
	}

	if runes := []rune(text); len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}
	return models.Article{Title: title, Text: text, URL: pageURL}, nil
}

func (s *Scraper) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
