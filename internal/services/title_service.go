package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
)

const (
	// DefaultTitle names a conversation with no usable user text.
	DefaultTitle = "New Chat"

	titleMaxLen  = 50
	titleTimeout = 15 * time.Second
)

// TextGenerator is the one-shot completion a title is generated with.
// The Gemini provider satisfies it.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// TitleService produces a short conversation title from the opening
// exchange. Model failures never surface to the caller: the fallback
// is a truncation of the first user message.
type TitleService interface {
	Generate(ctx context.Context, messages []models.Message) string
}

type titleService struct {
	gen TextGenerator
	log *logrus.Logger
}

func NewTitleService(gen TextGenerator, log *logrus.Logger) TitleService {
	return &titleService{gen: gen, log: log}
}

func (s *titleService) Generate(ctx context.Context, messages []models.Message) string {
	first := firstUserText(messages)
	if strings.TrimSpace(first) == "" {
		return DefaultTitle
	}

	if s.gen != nil {
		ctx, cancel := context.WithTimeout(ctx, titleTimeout)
		defer cancel()

		out, err := s.gen.GenerateText(ctx, titlePrompt(first))
		if err == nil {
			if t := cleanTitle(out); t != "" {
				return t
			}
		} else {
			s.log.WithField("error", err.Error()).Warn("title generation failed, using fallback")
		}
	}

	return truncateTitle(first)
}

func titlePrompt(first string) string {
	return "Generate a short title (at most 6 words, plain text, no quotes) " +
		"for a conversation that starts with this message:\n\n" + first
}

// cleanTitle normalizes model output into a single short line.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"'`)
	return truncateTitle(s)
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= titleMaxLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:titleMaxLen]))
}

func firstUserText(messages []models.Message) string {
	for _, m := range messages {
		if m.Role == "user" {
			return m.TextOf()
		}
	}
	return ""
}
