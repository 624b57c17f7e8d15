package loaders

import (
	"context"

	"github.com/notevanta/backend/internal/models"
)

// TextLoader wraps raw text (or a plain-text file) verbatim as a
// single document.
type TextLoader struct{}

func (l *TextLoader) Load(_ context.Context, src Source) (*Result, error) {
	text := src.Text
	if text == "" {
		text = string(src.Data)
	}

	md := map[string]any{}
	if src.Filename != "" {
		md["source"] = src.Filename
	}

	return &Result{
		Documents: []models.RawDocument{{PageContent: text, Metadata: md}},
	}, nil
}
