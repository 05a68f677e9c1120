package repository

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRepository_LikeIsIdempotent(t *testing.T) {
	db := openSQLite(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	fan := seedUser(t, db, "fan")
	post := &models.Post{Title: "p", Body: "b", UserID: author.ID}
	require.NoError(t, db.Create(post).Error)

	require.NoError(t, repo.Like(ctx, fan.ID, post.ID))
	// Second like hits ON CONFLICT DO NOTHING instead of erroring.
	require.NoError(t, repo.Like(ctx, fan.ID, post.ID))

	count, err := repo.LikeCount(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	liked, err := repo.IsLiked(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestEngagementRepository_Unlike(t *testing.T) {
	db := openSQLite(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	fan := seedUser(t, db, "fan")
	post := &models.Post{Title: "p", Body: "b", UserID: author.ID}
	require.NoError(t, db.Create(post).Error)

	require.NoError(t, repo.Like(ctx, fan.ID, post.ID))
	require.NoError(t, repo.Unlike(ctx, fan.ID, post.ID))

	liked, err := repo.IsLiked(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	// Removing an absent like is not an error.
	require.NoError(t, repo.Unlike(ctx, fan.ID, post.ID))
}

func TestEngagementRepository_MembershipSets(t *testing.T) {
	db := openSQLite(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	fan := seedUser(t, db, "fan")
	p1 := &models.Post{Title: "p1", Body: "b", UserID: author.ID}
	p2 := &models.Post{Title: "p2", Body: "b", UserID: author.ID}
	require.NoError(t, db.Create(p1).Error)
	require.NoError(t, db.Create(p2).Error)

	require.NoError(t, repo.Like(ctx, fan.ID, p1.ID))
	require.NoError(t, repo.Like(ctx, fan.ID, p2.ID))
	require.NoError(t, repo.Bookmark(ctx, fan.ID, p2.ID))
	require.NoError(t, repo.Bookmark(ctx, fan.ID, p2.ID))

	likedIDs, err := repo.LikedPostIDs(ctx, fan.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{p1.ID, p2.ID}, likedIDs)

	bookmarkedIDs, err := repo.BookmarkedPostIDs(ctx, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{p2.ID}, bookmarkedIDs)

	bookmarked, err := repo.IsBookmarked(ctx, fan.ID, p2.ID)
	require.NoError(t, err)
	assert.True(t, bookmarked)

	require.NoError(t, repo.Unbookmark(ctx, fan.ID, p2.ID))
	bookmarked, err = repo.IsBookmarked(ctx, fan.ID, p2.ID)
	require.NoError(t, err)
	assert.False(t, bookmarked)

	// Likes from other users never leak into this user's set.
	likedIDs, err = repo.LikedPostIDs(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, likedIDs)
}
