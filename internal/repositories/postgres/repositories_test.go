package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"chat-relay/internal/database"
	"chat-relay/internal/models"
	"chat-relay/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_POSTGRES_URI, skipping when no database is available.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	uri := os.Getenv("TEST_POSTGRES_URI")
	if uri == "" {
		t.Skip("TEST_POSTGRES_URI not set, skipping postgres repository tests")
	}
	db, err := database.NewPostgresConnection(uri)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	return db
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestUserRepositoryRejectsDuplicateUsername(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	name := uniqueName("user")

	require.NoError(t, repo.Create(ctx, &models.User{Username: name, Password: "hash"}))
	err := repo.Create(ctx, &models.User{Username: name, Password: "hash"})
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)

	found, err := repo.FindByUsername(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, name, found.Username)

	_, err = repo.FindByUsername(ctx, uniqueName("missing"))
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestMessageRepositoryDeleteLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	channel := uniqueName("chan")

	first, err := repo.Save(ctx, "alice", channel, "hi")
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	_, err = repo.Save(ctx, "bob", channel, "hello")
	require.NoError(t, err)

	_, err = repo.Delete(ctx, first.ID, "bob")
	assert.ErrorIs(t, err, repositories.ErrForbidden)

	deleted, err := repo.Delete(ctx, first.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, channel, deleted.Channel)

	_, err = repo.Delete(ctx, first.ID, "alice")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	msgs, err := repo.ListRecent(ctx, channel, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestChannelRepositoryEnsureIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewChannelRepository(db)
	ctx := context.Background()
	name := uniqueName("catalog")

	require.NoError(t, repo.Ensure(ctx, name, name))
	require.NoError(t, repo.Ensure(ctx, name))

	names, err := repo.List(ctx)
	require.NoError(t, err)
	count := 0
	for _, n := range names {
		if n == name {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
