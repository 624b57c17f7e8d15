package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

func newHistoryFixture(gen *fakeGen) (ChatHistoryService, *memChatRepo) {
	repo := newMemChatRepo()
	titles := NewTitleService(gen, discardLogger())
	return NewChatHistoryService(repo, titles, discardLogger()), repo
}

func waitForTitle(t *testing.T, repo *memChatRepo, userID, chatID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := repo.Get(context.Background(), userID, chatID)
		require.NoError(t, err)
		if rec.Title == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("title never became %q", want)
}

func TestChatHistoryService_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("first save creates the chat and titles it in the background", func(t *testing.T) {
		svc, repo := newHistoryFixture(&fakeGen{out: "Optics Homework"})

		id, err := svc.Save(ctx, "u1", "", []models.Message{userMsg("help with my optics homework")})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := repo.Get(ctx, "u1", id)
		require.NoError(t, err)
		assert.Len(t, rec.Messages, 1)

		waitForTitle(t, repo, "u1", id, "Optics Homework")
	})

	t.Run("subsequent saves replace the messages and keep the title", func(t *testing.T) {
		gen := &fakeGen{out: "Optics Homework"}
		svc, repo := newHistoryFixture(gen)

		id, err := svc.Save(ctx, "u1", "", []models.Message{userMsg("first")})
		require.NoError(t, err)
		waitForTitle(t, repo, "u1", id, "Optics Homework")

		msgs := []models.Message{userMsg("first"), assistantMsg("answer"), userMsg("second")}
		got, err := svc.Save(ctx, "u1", id, msgs)
		require.NoError(t, err)
		assert.Equal(t, id, got)

		rec, err := repo.Get(ctx, "u1", id)
		require.NoError(t, err)
		assert.Len(t, rec.Messages, 3)
		assert.Equal(t, "Optics Homework", rec.Title)
		assert.Equal(t, 1, gen.calls)
	})

	t.Run("save under an unknown client id creates the record", func(t *testing.T) {
		svc, repo := newHistoryFixture(&fakeGen{out: "Fresh"})

		id, err := svc.Save(ctx, "u1", "client-generated-id", []models.Message{userMsg("hi")})
		require.NoError(t, err)
		assert.Equal(t, "client-generated-id", id)

		_, err = repo.Get(ctx, "u1", id)
		assert.NoError(t, err)
	})
}

func TestChatHistoryService_GetListDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newHistoryFixture(&fakeGen{out: "T"})

	idA, err := svc.Save(ctx, "u1", "", []models.Message{userMsg("a")})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u1", "", []models.Message{userMsg("b")})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u2", "", []models.Message{userMsg("c")})
	require.NoError(t, err)

	rows, err := svc.List(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Users cannot read each other's chats.
	_, err = svc.Get(ctx, "u2", idA)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, "u1", idA))
	_, err = svc.Get(ctx, "u1", idA)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestChatHistoryService_Retitle(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{out: "Old"}
	svc, repo := newHistoryFixture(gen)

	id, err := svc.Save(ctx, "u1", "", []models.Message{userMsg("rename me")})
	require.NoError(t, err)
	waitForTitle(t, repo, "u1", id, "Old")

	gen.out = "New Descriptive Title"
	title, err := svc.Retitle(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "New Descriptive Title", title)

	rec, err := repo.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Equal(t, "New Descriptive Title", rec.Title)

	_, err = svc.Retitle(ctx, "u1", "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}
