package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Seeder orchestrates demo-data creation.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:      db,
		factory: NewFactory(db),
	}
}

// ClearAll truncates every seeded table. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []any{
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.Post{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("clear %T: %w", table, err)
		}
	}
	return nil
}

// Run seeds users, posts, comments with replies, likes, and bookmarks.
func (s *Seeder) Run(numUsers, numPosts int) error {
	log.Println("Starting database seeding...")

	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Created %d users", len(users))

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		author := users[s.factory.rand.Intn(len(users))]
		post, err := s.factory.CreatePost(author)
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)
	}
	log.Printf("Created %d posts", len(posts))

	commentCount := 0
	for _, post := range posts {
		if post.IsDraft {
			continue
		}
		for i := 0; i < s.factory.rand.Intn(6); i++ {
			commenter := users[s.factory.rand.Intn(len(users))]
			comment, err := s.factory.CreateComment(commenter, post)
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			commentCount++
			if s.factory.rand.Intn(3) == 0 {
				replier := users[s.factory.rand.Intn(len(users))]
				if _, err := s.factory.CreateReply(replier, comment); err != nil {
					return fmt.Errorf("create reply: %w", err)
				}
				commentCount++
			}
		}
	}
	log.Printf("Created %d comments", commentCount)

	engagements := 0
	for _, post := range posts {
		if post.IsDraft {
			continue
		}
		for _, user := range users {
			if s.factory.rand.Intn(4) == 0 {
				if err := s.factory.CreateLike(user, post); err != nil {
					return fmt.Errorf("create like: %w", err)
				}
				engagements++
			}
			if s.factory.rand.Intn(8) == 0 {
				if err := s.factory.CreateBookmark(user, post); err != nil {
					return fmt.Errorf("create bookmark: %w", err)
				}
				engagements++
			}
		}
	}
	log.Printf("Created %d likes/bookmarks", engagements)

	log.Println("Seeding complete")
	return nil
}
