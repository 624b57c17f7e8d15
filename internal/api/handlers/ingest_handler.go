package handlers

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/notevanta/backend/internal/loaders"
	"github.com/notevanta/backend/internal/services"
	"github.com/notevanta/backend/internal/utils"
)

const maxUploadBytes = 20 << 20

type IngestHandler struct {
	svc services.IngestService
}

func NewIngestHandler(svc services.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Upload ingests one source. Multipart form fields:
//
//	type     pdf | text | csv | website
//	file     the uploaded file (pdf, csv, or a plain-text file)
//	text     raw text, as an alternative to file for type=text
//	url      page address for type=website
//	mode     single (default) | crawl, for type=website
//	filename display name override; defaults to the file or host name
func (h *IngestHandler) Upload(c *gin.Context) {
	const op = "IngestHandler.Upload"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	src, err := h.parseSource(c)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.svc.Ingest(c.Request.Context(), userID, *src)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *IngestHandler) parseSource(c *gin.Context) (*loaders.Source, error) {
	const op = "IngestHandler.Upload"

	kind := strings.ToLower(strings.TrimSpace(c.PostForm("type")))
	src := &loaders.Source{Filename: strings.TrimSpace(c.PostForm("filename"))}

	switch kind {
	case "pdf":
		src.Kind = loaders.KindPDF
	case "csv":
		src.Kind = loaders.KindCSV
	case "text", "txt":
		src.Kind = loaders.KindText
	case "website", "single", "crawl":
		mode := strings.ToLower(strings.TrimSpace(c.PostForm("mode")))
		if kind == "crawl" || mode == "crawl" {
			src.Kind = loaders.KindCrawl
		} else {
			src.Kind = loaders.KindSingle
		}
	default:
		return nil, utils.E(utils.CodeUnsupportedSource, op, "unsupported source type: "+kind, nil)
	}

	switch src.Kind {
	case loaders.KindPDF, loaders.KindCSV, loaders.KindText:
		if fh, err := c.FormFile("file"); err == nil {
			if fh.Size <= 0 || fh.Size > maxUploadBytes {
				return nil, utils.E(utils.CodeInvalidArgument, op, "file too large (max 20MB)", nil)
			}
			f, err := fh.Open()
			if err != nil {
				return nil, utils.E(utils.CodeInternal, op, "failed to open upload", err)
			}
			defer f.Close()

			data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
			if err != nil {
				return nil, utils.E(utils.CodeInternal, op, "failed to read upload", err)
			}
			src.Data = data
			if src.Filename == "" {
				src.Filename = fh.Filename
			}
		} else if src.Kind == loaders.KindText {
			src.Text = c.PostForm("text")
			if src.Filename == "" {
				src.Filename = "pasted-text.txt"
			}
		}

	case loaders.KindSingle, loaders.KindCrawl:
		raw := strings.TrimSpace(c.PostForm("url"))
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, utils.E(utils.CodeInvalidArgument, op, "a valid http(s) url is required", nil)
		}
		src.URL = u.String()
		if src.Filename == "" {
			src.Filename = u.Host
		}
	}

	return src, nil
}
