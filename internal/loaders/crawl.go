package loaders

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/notevanta/backend/internal/utils"
)

// DefaultMaxPages bounds how many pages one crawl may ingest.
const DefaultMaxPages = 50

// DefaultCrawlConcurrency bounds simultaneous page fetches.
const DefaultCrawlConcurrency = 4

// excludedPathPrefixes are administrative/API paths a crawl skips.
var excludedPathPrefixes = []string{
	"/api", "/admin", "/login", "/logout", "/signin", "/signup",
	"/wp-admin", "/wp-login", "/cdn-cgi",
}

// CrawlLoader performs a bounded breadth-first traversal of
// same-origin links starting at the seed URL. The crawl is
// best-effort: pages that fail to fetch are recorded as failures and
// never abort documents already collected.
type CrawlLoader struct {
	client      *http.Client
	log         *logrus.Logger
	maxPages    int
	concurrency int
}

func NewCrawlLoader(client *http.Client, log *logrus.Logger) *CrawlLoader {
	return &CrawlLoader{
		client:      client,
		log:         log,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultCrawlConcurrency,
	}
}

func (l *CrawlLoader) Load(ctx context.Context, src Source) (*Result, error) {
	const op = "CrawlLoader.Load"

	seed, err := url.Parse(src.URL)
	if err != nil || seed.Host == "" {
		return nil, utils.E(utils.CodeFetchFailed, op, "invalid crawl url: "+src.URL, err)
	}

	var (
		mu      sync.Mutex
		res     = &Result{}
		visited = map[string]bool{canonical(seed): true}
		wave    = []*url.URL{seed}
	)

	for len(wave) > 0 && len(res.Documents) < l.maxPages {
		next := make([][]*url.URL, len(wave))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)
		for i, u := range wave {
			g.Go(func() error {
				body, ferr := fetchPage(gctx, l.client, u.String())
				if ferr != nil {
					mu.Lock()
					res.Failures = append(res.Failures, PageFailure{URL: u.String(), Err: ferr.Error()})
					mu.Unlock()
					l.log.WithFields(logrus.Fields{"url": u.String(), "error": ferr.Error()}).
						Warn("crawl page fetch failed")
					return nil // best-effort: never abort the crawl
				}

				mu.Lock()
				if doc := pageDocument(u.String(), body); doc != nil && len(res.Documents) < l.maxPages {
					res.Documents = append(res.Documents, *doc)
				}
				mu.Unlock()

				next[i] = l.extractLinks(seed, u, body)
				return nil
			})
		}
		// Workers only return nil; Wait surfaces context cancellation.
		if err := g.Wait(); err != nil {
			break
		}

		wave = wave[:0]
		for _, links := range next {
			for _, u := range links {
				key := canonical(u)
				if visited[key] {
					continue
				}
				visited[key] = true
				wave = append(wave, u)
			}
		}
	}

	if len(res.Documents) == 0 {
		return nil, utils.E(utils.CodeFetchFailed, op, "crawl fetched no pages from "+src.URL, nil)
	}
	return res, nil
}

// extractLinks returns same-origin, non-excluded links found on a page.
func (l *CrawlLoader) extractLinks(seed, base *url.URL, body string) []*url.URL {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var out []*url.URL
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		u.Fragment = ""
		if u.Scheme != seed.Scheme || u.Host != seed.Host {
			return
		}
		if excludedPath(u.Path) {
			return
		}
		out = append(out, u)
	})
	return out
}

func excludedPath(path string) bool {
	for _, prefix := range excludedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	s := c.String()
	return strings.TrimSuffix(s, "/")
}
