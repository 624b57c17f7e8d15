package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
	"github.com/notevanta/backend/internal/vectorindex"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memQuotaRepo mirrors the production counter semantics: the check and
// the increment happen under one lock, so concurrent gates can never
// both pass on the last remaining message.
type memQuotaRepo struct {
	mu     sync.Mutex
	counts map[string]int
	calls  int
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{counts: map[string]int{}}
}

func (r *memQuotaRepo) key(userID string) string {
	return userID + "_" + time.Now().UTC().Format("2006-01-02")
}

func (r *memQuotaRepo) CheckAndIncrement(_ context.Context, userID string, limit int) (*models.QuotaRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	id := r.key(userID)
	if r.counts[id] >= limit {
		return &models.QuotaRecord{ID: id, UserID: userID, Count: r.counts[id]}, false, nil
	}
	r.counts[id]++
	return &models.QuotaRecord{ID: id, UserID: userID, Count: r.counts[id]}, true, nil
}

func (r *memQuotaRepo) Peek(_ context.Context, userID string) (*models.QuotaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.key(userID)
	return &models.QuotaRecord{ID: id, UserID: userID, Count: r.counts[id]}, nil
}

// fakeEmbedder counts calls and can be told to fail.
type fakeEmbedder struct {
	mu        sync.Mutex
	docCalls  int
	qryCalls  int
	err       error
	dimension int
}

func (f *fakeEmbedder) vector() []float32 {
	dim := f.dimension
	if dim == 0 {
		dim = 4
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = 0.1
	}
	return v
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.docCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector()
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	f.qryCalls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.vector(), nil
}

// fakeIndex records upserts and serves canned query results.
type fakeIndex struct {
	mu       sync.Mutex
	upserted []vectorindex.Point
	results  []models.ScoredChunk
	queryErr error
	queries  int
	deleted  []string
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, points []vectorindex.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, points...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ string, _ []float32, _ int) ([]models.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.results, nil
}

func (f *fakeIndex) DeleteByFilename(_ context.Context, _ string, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, filename)
	return nil
}

// fakeProvider streams a fixed token list and captures the system
// prompt it was handed.
type fakeProvider struct {
	mu     sync.Mutex
	tokens []string
	calls  int
	system string
}

func (f *fakeProvider) StreamAnswer(_ context.Context, system string, _ []models.Message) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.calls++
	f.system = system
	f.mu.Unlock()

	out := make(chan string, len(f.tokens))
	errs := make(chan error, 1)
	for _, t := range f.tokens {
		out <- t
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeProvider) Close() error { return nil }

// memDocRepo is an in-memory document table.
type memDocRepo struct {
	mu   sync.Mutex
	rows []models.Document
}

func (r *memDocRepo) Insert(_ context.Context, d *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *d)
	return nil
}

func (r *memDocRepo) ListByUser(_ context.Context, userID string) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Document
	for _, d := range r.rows {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDocRepo) DeleteByFilename(_ context.Context, userID, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, d := range r.rows {
		if d.UserID != userID || d.Filename != filename {
			kept = append(kept, d)
		}
	}
	r.rows = kept
	return nil
}

// memChatRepo is an in-memory chat store keyed by chat id.
type memChatRepo struct {
	mu   sync.Mutex
	recs map[string]*models.ChatRecord
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{recs: map[string]*models.ChatRecord{}}
}

func (r *memChatRepo) Create(_ context.Context, rec *models.ChatRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	cp := *rec
	r.recs[rec.ChatID] = &cp
	return nil
}

func (r *memChatRepo) Get(_ context.Context, userID, chatID string) (*models.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[chatID]
	if !ok || rec.UserID != userID {
		return nil, utils.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memChatRepo) ListByUser(_ context.Context, userID string, _ int) ([]models.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatRecord
	for _, rec := range r.recs {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memChatRepo) UpdateMessages(_ context.Context, userID, chatID string, messages []models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[chatID]
	if !ok || rec.UserID != userID {
		return utils.ErrNotFound
	}
	rec.Messages = messages
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memChatRepo) SetTitle(_ context.Context, userID, chatID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[chatID]; ok && rec.UserID == userID {
		rec.Title = title
	}
	return nil
}

func (r *memChatRepo) Delete(_ context.Context, userID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.recs[chatID]; ok && rec.UserID == userID {
		delete(r.recs, chatID)
	}
	return nil
}

// fakeGen is a scriptable TextGenerator.
type fakeGen struct {
	out   string
	err   error
	calls int
}

func (g *fakeGen) GenerateText(_ context.Context, _ string) (string, error) {
	g.calls++
	return g.out, g.err
}

func userMsg(text string) models.Message {
	return models.Message{Role: "user", Parts: []models.MessagePart{{Type: "text", Text: text}}}
}

func assistantMsg(text string) models.Message {
	return models.Message{Role: "assistant", Parts: []models.MessagePart{{Type: "text", Text: text}}}
}
