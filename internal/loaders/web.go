package loaders

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

const userAgent = "notevanta-bot/1.0"

// maxPageBytes caps how much of a page body is read.
const maxPageBytes = 4 << 20

// WebLoader fetches exactly one page and extracts its readable text.
type WebLoader struct {
	Client *http.Client
}

func (l *WebLoader) Load(ctx context.Context, src Source) (*Result, error) {
	const op = "WebLoader.Load"

	body, err := fetchPage(ctx, l.Client, src.URL)
	if err != nil {
		return nil, utils.E(utils.CodeFetchFailed, op, "failed to fetch "+src.URL, err)
	}

	doc := pageDocument(src.URL, body)
	if doc == nil {
		return nil, utils.E(utils.CodeFetchFailed, op, "page has no readable text: "+src.URL, nil)
	}
	return &Result{Documents: []models.RawDocument{*doc}}, nil
}

// fetchPage GETs a URL and returns the body, bounded by maxPageBytes.
func fetchPage(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", &httpStatusError{url: url, status: resp.Status}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// pageDocument converts a fetched HTML body into a raw document, or
// nil when the page yields no text.
func pageDocument(url, body string) *models.RawDocument {
	text := stripHTML(body)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	md := map[string]any{"source": url, "url": url}
	if title := extractTitle(body); title != "" {
		md["title"] = title
	}
	return &models.RawDocument{PageContent: text, Metadata: md}
}

type httpStatusError struct {
	url    string
	status string
}

func (e *httpStatusError) Error() string {
	return "GET " + e.url + ": " + e.status
}
