package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/notevanta/backend/internal/models"
)

// DefaultGroqModel is the OpenAI-compatible model served by Groq.
const DefaultGroqModel = "openai/gpt-oss-120b"

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// Groq streams chat completions from Groq's OpenAI-compatible API.
type Groq struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// GroqConfig configures the Groq chat client.
type GroqConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGroq(cfg GroqConfig) *Groq {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Groq{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *Groq) Close() error { return nil }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *Groq) StreamAnswer(ctx context.Context, system string, messages []models.Message) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		payload := map[string]any{
			"model":    g.model,
			"messages": g.wireMessages(system, messages),
			"stream":   true,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			errs <- err
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Accept", "text/event-stream")

		resp, err := g.client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			errs <- fmt.Errorf("groq chat completions failed: %s", resp.Status)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var event struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue // skip malformed keep-alive frames
			}
			for _, ch := range event.Choices {
				if ch.Delta.Content != "" {
					select {
					case out <- ch.Delta.Content:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return out, errs
}

func (g *Groq) wireMessages(system string, messages []models.Message) []groqMessage {
	out := make([]groqMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, groqMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		text := m.TextOf()
		if text == "" {
			continue
		}
		role := m.Role
		if role != "user" && role != "assistant" {
			role = "user"
		}
		out = append(out, groqMessage{Role: role, Content: text})
	}
	return out
}
