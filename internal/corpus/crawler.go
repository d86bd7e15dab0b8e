package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"hakimi/internal/logging"
	"hakimi/internal/textutil"
)

const (
	defaultMaxPages  = 50
	defaultUserAgent = "Mozilla/5.0 (compatible; HakimiBot/0.1; +https://example.com/bot-info)"

	fetchTimeout  = 10 * time.Second
	minCrawlDelay = 1 * time.Second
	maxCrawlDelay = 3 * time.Second

	// Tag texts shorter than this are menu entries and icon labels, not
	// sentences worth keeping.
	minContainerRunes = 5
)

// textContainers are the elements scanned for keyword sentences.
var textContainers = map[string]struct{}{
	"p":    {},
	"span": {},
	"div":  {},
	"li":   {},
}

// CrawlConfig tunes a crawl run.
type CrawlConfig struct {
	SeedURLs       []string
	AllowedDomains []string
	Keywords       []string
	MaxPages       int
	UserAgent      string
}

// CrawlStats reports what a crawl run accomplished.
type CrawlStats struct {
	PagesFetched  int
	PagesFailed   int
	SnippetsSaved int
}

// Crawler walks allow-listed pages breadth-first and appends keyword-bearing
// sentences to a corpus store. Fetch failures are logged and skipped; the
// page budget counts only successful fetches.
type Crawler struct {
	store      *Store
	cfg        CrawlConfig
	httpClient *http.Client
	logger     *slog.Logger
	sleeper    func(time.Duration)
}

// CrawlerOption customizes crawler construction.
type CrawlerOption func(*Crawler)

// WithCrawlHTTPClient overrides the default HTTP client.
func WithCrawlHTTPClient(client *http.Client) CrawlerOption {
	return func(c *Crawler) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCrawlLogger attaches a logger to the crawler.
func WithCrawlLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCrawlSleeper overrides the polite inter-page delay (useful for tests).
func WithCrawlSleeper(sleeper func(time.Duration)) CrawlerOption {
	return func(c *Crawler) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewCrawler builds a crawler over the store using the supplied config.
func NewCrawler(store *Store, cfg CrawlConfig, opts ...CrawlerOption) *Crawler {
	cleaned := make([]string, 0, len(cfg.Keywords))
	for _, keyword := range cfg.Keywords {
		if keyword = textutil.NormalizeText(keyword); keyword != "" {
			cleaned = append(cleaned, keyword)
		}
	}
	cfg.Keywords = cleaned
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}

	crawler := &Crawler{
		store:      store,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(crawler)
	}
	return crawler
}

// Crawl runs one breadth-first pass from the configured seeds. Snippets are
// appended to the store as each page is processed, so an interrupted crawl
// keeps what it found.
func (c *Crawler) Crawl(ctx context.Context) (CrawlStats, error) {
	var stats CrawlStats

	seeds := make([]string, 0, len(c.cfg.SeedURLs))
	for _, seed := range c.cfg.SeedURLs {
		if seed = strings.TrimSpace(seed); seed != "" {
			seeds = append(seeds, seed)
		}
	}
	if len(seeds) == 0 {
		return stats, errors.New("corpus crawl: no seed urls configured")
	}
	if len(c.cfg.Keywords) == 0 {
		return stats, errors.New("corpus crawl: no keywords configured")
	}

	c.logger.Info("corpus crawl starting",
		"seeds", len(seeds),
		"max_pages", c.cfg.MaxPages,
		"keywords", len(c.cfg.Keywords))

	visited := make(map[string]struct{})
	seen := make(map[string]struct{})
	queue := append([]string(nil), seeds...)

	for len(queue) > 0 && stats.PagesFetched < c.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		current := queue[0]
		queue = queue[1:]
		if _, ok := visited[current]; ok {
			continue
		}
		visited[current] = struct{}{}

		parsed, err := url.Parse(current)
		if err != nil || !hostAllowed(parsed.Hostname(), c.cfg.AllowedDomains) {
			c.logger.Debug("skipping url outside allow-list", "url", current)
			continue
		}

		doc, err := c.fetchPage(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.PagesFailed++
			c.logger.Warn("page fetch failed", "url", current, logging.Error(err))
			continue
		}
		stats.PagesFetched++

		snippets := extractSnippets(doc, current, c.cfg.Keywords, seen)
		if len(snippets) > 0 {
			if err := c.store.Append(snippets); err != nil {
				return stats, fmt.Errorf("corpus crawl: %w", err)
			}
			stats.SnippetsSaved += len(snippets)
			c.logger.Info("snippets saved", "url", current, "count", len(snippets))
		} else {
			c.logger.Debug("no keyword hits", "url", current)
		}

		for _, link := range extractLinks(doc, parsed, c.cfg.AllowedDomains) {
			if _, ok := visited[link]; !ok {
				queue = append(queue, link)
			}
		}

		if err := c.politeDelay(ctx); err != nil {
			return stats, err
		}
	}

	c.logger.Info("corpus crawl finished",
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed,
		"snippets_saved", stats.SnippetsSaved)
	return stats, nil
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	// Chinese meme sites still serve GBK; sniff before parsing.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (c *Crawler) politeDelay(ctx context.Context) error {
	delay := minCrawlDelay + rand.N(maxCrawlDelay-minCrawlDelay)
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// extractSnippets walks container elements, normalizes their text, and keeps
// keyword-bearing sentences. seen dedupes across the whole crawl because nav
// and footer boilerplate repeats on every page of a site.
func extractSnippets(doc *html.Node, pageURL string, keywords []string, seen map[string]struct{}) []Snippet {
	var snippets []Snippet
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := textContainers[n.Data]; ok {
				text := textutil.NormalizeText(elementText(n))
				if utf8.RuneCountInString(text) >= minContainerRunes && len(matchKeywords(text, keywords)) > 0 {
					for _, sentence := range textutil.SplitSentences(text) {
						hits := matchKeywords(sentence, keywords)
						if len(hits) == 0 {
							continue
						}
						if _, dup := seen[sentence]; dup {
							continue
						}
						seen[sentence] = struct{}{}
						snippets = append(snippets, Snippet{URL: pageURL, Text: sentence, Keywords: hits})
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return snippets
}

// elementText concatenates the text nodes under n, skipping script and style
// bodies.
func elementText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// extractLinks returns absolute, allow-listed page links in document order,
// deduped within the page.
func extractLinks(doc *html.Node, base *url.URL, domains []string) []string {
	var links []string
	pageSeen := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				href := strings.TrimSpace(attr.Val)
				if href == "" || strings.HasPrefix(href, "#") {
					break
				}
				ref, err := url.Parse(href)
				if err != nil {
					break
				}
				resolved := base.ResolveReference(ref)
				if resolved.Scheme != "http" && resolved.Scheme != "https" {
					break
				}
				if !hostAllowed(resolved.Hostname(), domains) {
					break
				}
				link := resolved.String()
				if _, ok := pageSeen[link]; !ok {
					pageSeen[link] = struct{}{}
					links = append(links, link)
				}
				break
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return links
}

// hostAllowed matches a hostname against the domain allow-list. A leading
// www. is stripped, then the host must equal an allowed domain or end with
// ".{domain}" so that lookalike registrations do not pass.
func hostAllowed(host string, domains []string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return false
	}
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func matchKeywords(text string, keywords []string) []string {
	var hits []string
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits = append(hits, keyword)
		}
	}
	return hits
}
