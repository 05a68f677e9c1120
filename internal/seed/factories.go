// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. All seeded accounts use
// the password "Password123!seed" so they can be logged into during demos.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("Password123!seed"), bcrypt.DefaultCost)
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Password: string(hashedPassword),
		Bio:      gofakeit.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a sample post for the given user.
// Roughly one in five seeded posts stays a draft.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:     gofakeit.Sentence(5),
		Body:      gofakeit.Paragraph(3, 4, 8, "\n\n"),
		UserID:    user.ID,
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID()),
		IsDraft:   f.rand.Intn(5) == 0,
		ViewCount: int64(f.rand.Intn(5000)),
	}

	// realistic created_at spread over the last 90 days
	daysBack := f.rand.Intn(90)
	hoursBack := f.rand.Intn(24)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a top-level comment on the post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: gofakeit.Sentence(12),
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateReply persists a reply under the given top-level comment.
func (f *Factory) CreateReply(user *models.User, parent *models.Comment) (*models.Comment, error) {
	if parent.IsReply() {
		return nil, fmt.Errorf("seed: cannot reply to a reply (comment %d)", parent.ID)
	}
	reply := &models.Comment{
		PostID:          parent.PostID,
		UserID:          user.ID,
		Content:         gofakeit.Sentence(8),
		ParentCommentID: &parent.ID,
	}
	if err := f.db.Create(reply).Error; err != nil {
		return nil, err
	}
	return reply, nil
}

// CreateLike records a like, ignoring duplicates.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	err := f.db.Create(like).Error
	if err != nil && isDuplicateErr(err) {
		return nil
	}
	return err
}

// CreateBookmark records a bookmark, ignoring duplicates.
func (f *Factory) CreateBookmark(user *models.User, post *models.Post) error {
	bookmark := &models.Bookmark{UserID: user.ID, PostID: post.ID}
	err := f.db.Create(bookmark).Error
	if err != nil && isDuplicateErr(err) {
		return nil
	}
	return err
}

func isDuplicateErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
