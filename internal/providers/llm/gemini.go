package llm

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/notevanta/backend/internal/models"
)

// DefaultGeminiModel answers chat turns and generates titles.
const DefaultGeminiModel = "gemini-2.5-flash-lite"

type Gemini struct {
	client    *genai.Client
	modelName string
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &Gemini{client: c, modelName: modelName}, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

func (g *Gemini) StreamAnswer(ctx context.Context, system string, messages []models.Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	model := g.client.GenerativeModel(g.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	history, last := splitHistory(messages)
	cs := model.StartChat()
	cs.History = history

	go func() {
		defer close(out)
		defer close(errs)

		it := cs.SendMessageStream(ctx, genai.Text(last))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(genai.Text); ok && string(t) != "" {
						select {
						case out <- string(t):
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return out, errs
}

// GenerateText runs a one-shot non-streaming completion; used for
// conversation title generation.
func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t), nil
			}
		}
	}
	return "", nil
}

// splitHistory converts the conversation into Gemini chat history plus
// the latest user utterance, which is sent as the streamed message.
func splitHistory(messages []models.Message) ([]*genai.Content, string) {
	last := ""
	end := len(messages)
	if end > 0 && messages[end-1].Role == "user" {
		last = messages[end-1].TextOf()
		end--
	}

	history := make([]*genai.Content, 0, end)
	for _, m := range messages[:end] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		text := m.TextOf()
		if text == "" {
			continue
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}
	return history, last
}
