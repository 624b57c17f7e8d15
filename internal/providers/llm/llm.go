// Package llm wraps the chat model backends behind a streaming contract.
package llm

import (
	"context"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

// Provider streams a model response for a conversation. Both channels
// close when the stream ends; errs carries at most one terminal error.
// Canceling ctx aborts the underlying model call.
type Provider interface {
	StreamAnswer(ctx context.Context, system string, messages []models.Message) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Model choices accepted by the chat entry point. "openai" is the
// historical name the UI sends for the Groq-hosted model.
const (
	ChoiceGemini = "google"
	ChoiceGroq   = "openai"
)

// Registry maps a model choice to its provider. It is populated at
// startup and injected into the orchestrator, so model selection is a
// lookup rather than an ad-hoc switch.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}, fallback: ChoiceGemini}
}

func (r *Registry) Register(choice string, p Provider) {
	r.providers[choice] = p
}

// Resolve returns the provider for a choice, falling back to the
// default backend for unknown values.
func (r *Registry) Resolve(choice string) (Provider, error) {
	if p, ok := r.providers[choice]; ok {
		return p, nil
	}
	if p, ok := r.providers[r.fallback]; ok {
		return p, nil
	}
	return nil, utils.E(utils.CodeInternal, "llm.Registry.Resolve", "no chat model registered", nil)
}

// Close closes every registered provider.
func (r *Registry) Close() {
	seen := map[Provider]bool{}
	for _, p := range r.providers {
		if !seen[p] {
			seen[p] = true
			_ = p.Close()
		}
	}
}
