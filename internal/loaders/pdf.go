package loaders

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// PDFLoader extracts text page by page, one document per page, so
// chunks can cite the page the answer came from.
type PDFLoader struct{}

func (l *PDFLoader) Load(_ context.Context, src Source) (*Result, error) {
	const op = "PDFLoader.Load"

	r, err := pdf.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to parse pdf", err)
	}

	res := &Result{}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not lose the rest.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		res.Documents = append(res.Documents, models.RawDocument{
			PageContent: text,
			Metadata: map[string]any{
				"source": src.Filename,
				"page":   i,
			},
		})
	}
	return res, nil
}
