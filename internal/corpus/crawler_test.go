package corpus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func newTestCrawler(t *testing.T, cfg CrawlConfig) (*Crawler, *Store) {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "corpus.jsonl"))
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = []string{"哈基米"}
	}
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = []string{"127.0.0.1"}
	}
	crawler := NewCrawler(store, cfg, WithCrawlSleeper(func(time.Duration) {}))
	return crawler, store
}

func TestCrawlerExtractsKeywordSentences(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<p>哈基米冲刺是最棒的梗。完全无关的句子。</p>
			<div>菜单</div>
			<li>没有关键词在这里。</li>
			<a href="/second">more</a>
		</body></html>`)
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>大家都在唱哈基米！</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler, store := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/start"},
		MaxPages: 10,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", stats.PagesFetched)
	}
	if stats.SnippetsSaved != 2 {
		t.Fatalf("expected 2 snippets saved, got %d", stats.SnippetsSaved)
	}

	snippets, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected 2 stored snippets, got %d", len(snippets))
	}
	if snippets[0].Text != "哈基米冲刺是最棒的梗" {
		t.Fatalf("unexpected first snippet text %q", snippets[0].Text)
	}
	if snippets[0].URL != server.URL+"/start" {
		t.Fatalf("unexpected first snippet url %q", snippets[0].URL)
	}
	if len(snippets[0].Keywords) != 1 || snippets[0].Keywords[0] != "哈基米" {
		t.Fatalf("unexpected first snippet keywords %v", snippets[0].Keywords)
	}
	if snippets[1].Text != "大家都在唱哈基米" {
		t.Fatalf("unexpected second snippet text %q", snippets[1].Text)
	}
}

func TestCrawlerHonorsPageBudget(t *testing.T) {
	var mu sync.Mutex
	var served int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		n := served
		mu.Unlock()
		fmt.Fprintf(w, `<html><body><p>哈基米第%d次出现。</p><a href="/next-%d">go</a></body></html>`, n, n)
	}))
	defer server.Close()

	crawler, store := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/start"},
		MaxPages: 3,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 3 {
		t.Fatalf("expected 3 pages fetched, got %d", stats.PagesFetched)
	}
	mu.Lock()
	total := served
	mu.Unlock()
	if total != 3 {
		t.Fatalf("expected exactly 3 requests, got %d", total)
	}

	snippets, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snippets) != 3 {
		t.Fatalf("expected 3 snippets, got %d", len(snippets))
	}
}

func TestCrawlerSkipsDisallowedLinks(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		fmt.Fprint(w, `<html><body>
			<a href="http://lookalike-127.0.0.1.evil.example/x">bad</a>
			<a href="#section">frag</a>
			<a href="mailto:cat@example.com">mail</a>
			<a href="/ok">good</a>
		</body></html>`)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		fmt.Fprint(w, `<html><body><p>哈基米好极了。</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler, _ := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/start"},
		MaxPages: 10,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", stats.PagesFetched)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/start" || paths[1] != "/ok" {
		t.Fatalf("unexpected request paths %v", paths)
	}
}

func TestCrawlerSkipsDisallowedSeedsWithoutFetching(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>哈基米在这里。</p></body></html>`)
	}))
	defer server.Close()

	crawler, _ := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{"http://203.0.113.9/never", server.URL + "/start"},
		MaxPages: 10,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 1 {
		t.Fatalf("expected 1 page fetched, got %d", stats.PagesFetched)
	}
	if stats.PagesFailed != 0 {
		t.Fatalf("expected disallowed seed to be skipped, not fetched: %+v", stats)
	}
}

func TestCrawlerDedupesRepeatedSentences(t *testing.T) {
	mux := http.NewServeMux()
	// The div wraps the p, so the same sentence surfaces from both containers.
	boiler := `<div><p>同一句哈基米台词。</p></div>`
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>`+boiler+`<a href="/b">next</a></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>`+boiler+`</body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler, store := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/a"},
		MaxPages: 10,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", stats.PagesFetched)
	}
	if stats.SnippetsSaved != 1 {
		t.Fatalf("expected 1 snippet after dedupe, got %d", stats.SnippetsSaved)
	}

	snippets, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Text != "同一句哈基米台词" {
		t.Fatalf("unexpected snippets %+v", snippets)
	}
}

func TestCrawlerContinuesPastFetchFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/bad">one</a><a href="/good">two</a></body></html>`)
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>失败之后还有哈基米。</p></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	crawler, store := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/start"},
		MaxPages: 10,
	})
	stats, err := crawler.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}
	if stats.PagesFetched != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", stats.PagesFetched)
	}
	if stats.PagesFailed != 1 {
		t.Fatalf("expected 1 failed page, got %d", stats.PagesFailed)
	}

	snippets, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Text != "失败之后还有哈基米" {
		t.Fatalf("unexpected snippets %+v", snippets)
	}
}

func TestCrawlerDecodesGBKPages(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(
		`<html><body><p>哈基米真棒。</p></body></html>`)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		fmt.Fprint(w, encoded)
	}))
	defer server.Close()

	crawler, store := newTestCrawler(t, CrawlConfig{
		SeedURLs: []string{server.URL + "/page"},
		MaxPages: 1,
	})
	if _, err := crawler.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl returned error: %v", err)
	}

	snippets, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Text != "哈基米真棒" {
		t.Fatalf("expected decoded GBK snippet, got %+v", snippets)
	}
}

func TestCrawlerRequiresSeeds(t *testing.T) {
	crawler, _ := newTestCrawler(t, CrawlConfig{})
	if _, err := crawler.Crawl(context.Background()); err == nil {
		t.Fatal("expected error without seed urls")
	}
}

func TestCrawlerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>哈基米最后一页。</p><a href="/more">go</a></body></html>`)
	}))
	defer server.Close()

	store := NewStore(filepath.Join(t.TempDir(), "corpus.jsonl"))
	crawler := NewCrawler(store, CrawlConfig{
		SeedURLs:       []string{server.URL + "/start"},
		AllowedDomains: []string{"127.0.0.1"},
		Keywords:       []string{"哈基米"},
		MaxPages:       10,
	}, WithCrawlSleeper(func(time.Duration) { cancel() }))

	stats, err := crawler.Crawl(ctx)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stats.PagesFetched != 1 {
		t.Fatalf("expected crawl to stop after 1 page, got %d", stats.PagesFetched)
	}
}

func TestHostAllowed(t *testing.T) {
	domains := []string{"sohu.com", "bilibili.com"}
	tests := []struct {
		host string
		want bool
	}{
		{"sohu.com", true},
		{"www.sohu.com", true},
		{"m.sohu.com", true},
		{"BILIBILI.com", true},
		{"evilsohu.com", false},
		{"sohu.com.evil.net", false},
		{"example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := hostAllowed(tt.host, domains); got != tt.want {
			t.Fatalf("hostAllowed(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
