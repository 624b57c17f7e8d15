// Package vectorindex owns the per-user partition of the vector store.
package vectorindex

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"regexp"

	"github.com/notevanta/backend/internal/models"
)

// Point is one chunk ready for indexing: vector plus payload.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Index is the per-user vector store. The collection is the tenant
// isolation boundary: it is named deterministically from the user id,
// created lazily on first upsert, and never merged across users.
type Index interface {
	// Upsert writes points into the user's collection, creating it on
	// first write. Idempotent per point id; re-ingesting the same
	// filename adds points rather than replacing them.
	Upsert(ctx context.Context, userID string, points []Point) error

	// Query returns the k nearest points by decreasing similarity.
	// Querying a user with no ingested content returns a
	// COLLECTION_NOT_FOUND error; callers treat that as zero results.
	Query(ctx context.Context, userID string, vector []float32, k int) ([]models.ScoredChunk, error)

	// DeleteByFilename removes every point whose metadata filename
	// matches. Idempotent: deleting an absent filename is a no-op.
	DeleteByFilename(ctx context.Context, userID, filename string) error
}

const collectionPrefix = "notevanta_"

var safeUserID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// CollectionName derives the user's collection name. User ids are
// opaque strings from the identity provider, so anything outside a
// conservative identifier alphabet is hashed rather than interpolated
// into a store identifier.
func CollectionName(userID string) string {
	if safeUserID.MatchString(userID) {
		return collectionPrefix + userID
	}
	sum := sha1.Sum([]byte(userID))
	return collectionPrefix + hex.EncodeToString(sum[:])
}
