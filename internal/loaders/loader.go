// Package loaders normalizes uploaded sources into raw text documents.
package loaders

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// Kind tags the declared type of an uploaded source.
type Kind string

const (
	KindPDF    Kind = "pdf"
	KindText   Kind = "text"
	KindCSV    Kind = "csv"
	KindSingle Kind = "single" // one web page
	KindCrawl  Kind = "crawl"  // same-origin site crawl
)

// Source is the tagged union of everything an upload can carry.
// Exactly one of Data, Text, URL is expected, matched to Kind.
type Source struct {
	Kind     Kind
	Filename string
	Data     []byte
	Text     string
	URL      string
}

// PageFailure records one URL a crawl could not fetch.
type PageFailure struct {
	URL string `json:"url"`
	Err string `json:"error"`
}

// Result carries the documents a load produced plus any per-page
// failures. A crawl is best-effort: it returns whatever pages it
// completed, and the failures are surfaced instead of swallowed.
type Result struct {
	Documents []models.RawDocument
	Failures  []PageFailure
}

// Loader normalizes one kind of source into raw documents.
type Loader interface {
	Load(ctx context.Context, src Source) (*Result, error)
}

// Adapter dispatches a source to the loader registered for its kind.
type Adapter struct {
	loaders map[Kind]Loader
}

// NewAdapter builds the default loader registry. The HTTP client is
// shared by the web loaders; pass nil for a sane default.
func NewAdapter(client *http.Client, log *logrus.Logger) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Adapter{
		loaders: map[Kind]Loader{
			KindPDF:    &PDFLoader{},
			KindText:   &TextLoader{},
			KindCSV:    &CSVLoader{},
			KindSingle: &WebLoader{Client: client},
			KindCrawl:  NewCrawlLoader(client, log),
		},
	}
}

// Load validates the source payload and dispatches by kind.
func (a *Adapter) Load(ctx context.Context, src Source) (*Result, error) {
	const op = "Adapter.Load"

	l, ok := a.loaders[src.Kind]
	if !ok {
		return nil, utils.E(utils.CodeUnsupportedSource, op, "unsupported source type: "+string(src.Kind), nil)
	}

	switch src.Kind {
	case KindPDF, KindCSV:
		if len(src.Data) == 0 {
			return nil, utils.E(utils.CodeUnsupportedSource, op, "a file is required for type "+string(src.Kind), nil)
		}
	case KindText:
		if src.Text == "" && len(src.Data) == 0 {
			return nil, utils.E(utils.CodeUnsupportedSource, op, "text content is required", nil)
		}
	case KindSingle, KindCrawl:
		if src.URL == "" {
			return nil, utils.E(utils.CodeUnsupportedSource, op, "a url is required for type "+string(src.Kind), nil)
		}
	}

	return l.Load(ctx, src)
}
