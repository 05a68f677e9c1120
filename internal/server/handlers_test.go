package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testPassword = "Sup3rSecret!123"

// newTestServer wires a Server against an in-memory sqlite DB. No Redis, no
// Prometheus middleware; rate limiting fails open.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{
		JWTSecret: "test-secret-test-secret-test-secret",
		Port:      "0",
		Env:       "test",
		UploadDir: t.TempDir(),
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	s := &Server{
		config:            cfg,
		db:                db,
		userRepo:          userRepo,
		postRepo:          postRepo,
		commentRepo:       commentRepo,
		engagementRepo:    engagementRepo,
		postService:       service.NewPostService(postRepo, engagementRepo),
		commentService:    service.NewCommentService(commentRepo, postRepo),
		engagementService: service.NewEngagementService(engagementRepo, postRepo),
		generateService:   service.NewGenerateService("", "http://localhost:1", "test-model"),
		uploadService:     service.NewUploadService(cfg.UploadDir, 1),
	}

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hashed, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func authToken(t *testing.T, s *Server, user *models.User) string {
	t.Helper()
	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestSignupLoginFlow(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "writer",
		"email":    "writer@example.com",
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}
	var signupBody struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(t, resp, &signupBody)
	if signupBody.Token == "" {
		t.Fatal("signup: missing token")
	}

	// Duplicate email conflicts.
	resp = doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "writer2",
		"email":    "writer@example.com",
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "writer@example.com",
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var loginBody struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &loginBody)

	resp = doJSON(t, app, http.MethodGet, "/api/users/me", loginBody.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("users/me: expected 200, got %d", resp.StatusCode)
	}
	var me models.User
	decodeBody(t, resp, &me)
	if me.Username != "writer" {
		t.Fatalf("users/me: expected writer, got %q", me.Username)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("users/me without token: expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "writer@example.com",
		"password": "wrong-password-entirely",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestDraftVisibility(t *testing.T) {
	t.Parallel()
	s, app, db := newTestServer(t)

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")
	authorToken := authToken(t, s, author)
	readerToken := authToken(t, s, reader)

	resp := doJSON(t, app, http.MethodPost, "/api/posts", authorToken, map[string]any{
		"title":    "Unfinished thoughts",
		"body":     "draft body",
		"is_draft": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d", resp.StatusCode)
	}
	var draft models.Post
	decodeBody(t, resp, &draft)
	if !draft.IsDraft {
		t.Fatal("expected created post to be a draft")
	}

	// The public feed hides drafts.
	resp = doJSON(t, app, http.MethodGet, "/api/posts", "", nil)
	var feed []models.Post
	decodeBody(t, resp, &feed)
	if len(feed) != 0 {
		t.Fatalf("public feed: expected 0 posts, got %d", len(feed))
	}

	// Another user gets 404, indistinguishable from a missing post.
	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", draft.ID), readerToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("draft as reader: expected 404, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// The owner sees it.
	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", draft.ID), authorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("draft as owner: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// Drafts listing for the owner.
	resp = doJSON(t, app, http.MethodGet, "/api/posts/mine?drafts=true", authorToken, nil)
	var mine []models.Post
	decodeBody(t, resp, &mine)
	if len(mine) != 1 {
		t.Fatalf("posts/mine: expected 1, got %d", len(mine))
	}

	// Publish, then it appears publicly.
	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/posts/%d", draft.ID), authorToken, map[string]any{
		"is_draft": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d", resp.StatusCode)
	}
	var published models.Post
	decodeBody(t, resp, &published)
	if published.IsDraft {
		t.Fatal("expected published post")
	}
	if published.Title != "Unfinished thoughts" {
		t.Fatalf("publish must not clobber title, got %q", published.Title)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/posts", "", nil)
	decodeBody(t, resp, &feed)
	if len(feed) != 1 {
		t.Fatalf("public feed after publish: expected 1 post, got %d", len(feed))
	}
}

func TestPostOwnership(t *testing.T) {
	t.Parallel()
	s, app, db := newTestServer(t)

	author := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "intruder")
	otherToken := authToken(t, s, other)

	post := &models.Post{Title: "mine", Body: "body", UserID: author.ID}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), otherToken, map[string]any{
		"title": "stolen",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("update by non-owner: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete by non-owner: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestLikeAndBookmarkFlow(t *testing.T) {
	t.Parallel()
	s, app, db := newTestServer(t)

	author := createTestUser(t, db, "poster")
	fan := createTestUser(t, db, "fan")
	fanToken := authToken(t, s, fan)

	post := &models.Post{Title: "popular", Body: "body", UserID: author.ID}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	likePath := fmt.Sprintf("/api/posts/%d/like", post.ID)
	resp := doJSON(t, app, http.MethodPost, likePath, fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("like: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	// Liking again is a harmless no-op.
	resp = doJSON(t, app, http.MethodPost, likePath, fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("double like: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), fanToken, nil)
	var fetched models.Post
	decodeBody(t, resp, &fetched)
	if fetched.LikeCount != 1 {
		t.Fatalf("like_count: expected 1, got %d", fetched.LikeCount)
	}
	if !fetched.Liked {
		t.Fatal("expected liked=true for the fan")
	}

	resp = doJSON(t, app, http.MethodGet, "/api/likes/me", fanToken, nil)
	var likes struct {
		PostIDs []uint `json:"post_ids"`
	}
	decodeBody(t, resp, &likes)
	if len(likes.PostIDs) != 1 || likes.PostIDs[0] != post.ID {
		t.Fatalf("likes/me: expected [%d], got %v", post.ID, likes.PostIDs)
	}

	resp = doJSON(t, app, http.MethodDelete, likePath, fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlike: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), fanToken, nil)
	decodeBody(t, resp, &fetched)
	if fetched.LikeCount != 0 || fetched.Liked {
		t.Fatalf("after unlike: expected count 0 liked=false, got %d/%v", fetched.LikeCount, fetched.Liked)
	}

	// Bookmarks don't affect like counts.
	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/bookmark", post.ID), fanToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bookmark: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/bookmarks/me", fanToken, nil)
	var bookmarks struct {
		PostIDs []uint `json:"post_ids"`
	}
	decodeBody(t, resp, &bookmarks)
	if len(bookmarks.PostIDs) != 1 {
		t.Fatalf("bookmarks/me: expected 1, got %v", bookmarks.PostIDs)
	}
}

func TestCommentThreading(t *testing.T) {
	t.Parallel()
	s, app, db := newTestServer(t)

	author := createTestUser(t, db, "blogger")
	commenter := createTestUser(t, db, "commenter")
	commenterToken := authToken(t, s, commenter)

	post := &models.Post{Title: "discuss", Body: "body", UserID: author.ID}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	commentsPath := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	resp := doJSON(t, app, http.MethodPost, commentsPath, commenterToken, map[string]any{
		"content": "first!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("comment: expected 201, got %d", resp.StatusCode)
	}
	var top models.Comment
	decodeBody(t, resp, &top)
	if top.ID == 0 || top.ParentCommentID != nil {
		t.Fatalf("unexpected top-level comment: %+v", top)
	}

	resp = doJSON(t, app, http.MethodPost, commentsPath, commenterToken, map[string]any{
		"content":           "replying",
		"parent_comment_id": top.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("reply: expected 201, got %d", resp.StatusCode)
	}
	var reply models.Comment
	decodeBody(t, resp, &reply)
	if reply.ParentCommentID == nil || *reply.ParentCommentID != top.ID {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// Two levels max.
	resp = doJSON(t, app, http.MethodPost, commentsPath, commenterToken, map[string]any{
		"content":           "too deep",
		"parent_comment_id": reply.ID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reply-to-reply: expected 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, commentsPath, "", nil)
	var thread []models.Comment
	decodeBody(t, resp, &thread)
	if len(thread) != 2 {
		t.Fatalf("thread: expected 2 comments, got %d", len(thread))
	}

	// Only the comment author can delete.
	authorTok := authToken(t, s, author)
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath, top.ID), authorTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete by post author: expected 403, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/%d", commentsPath, top.ID), commenterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete by comment author: expected 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestViewCount(t *testing.T) {
	t.Parallel()
	_, app, db := newTestServer(t)

	author := createTestUser(t, db, "viewee")
	post := &models.Post{Title: "counted", Body: "body", UserID: author.ID}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	viewPath := fmt.Sprintf("/api/posts/%d/view", post.ID)
	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodPost, viewPath, "", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("view: expected 204, got %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	var reloaded models.Post
	if err := db.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.ViewCount != 3 {
		t.Fatalf("view_count: expected 3, got %d", reloaded.ViewCount)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	t.Parallel()
	s, app, db := newTestServer(t)

	user := createTestUser(t, db, "aiwriter")
	token := authToken(t, s, user)

	resp := doJSON(t, app, http.MethodPost, "/api/generate", token, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty topic: expected 400, got %d", resp.StatusCode)
	}
	var badReq struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &badReq)
	if badReq.Error != "Topic is required" {
		t.Fatalf("unexpected error message: %q", badReq.Error)
	}

	// No API key configured: the failure response says so.
	resp = doJSON(t, app, http.MethodPost, "/api/generate", token, map[string]string{"topic": "go testing"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("no key: expected 500, got %d", resp.StatusCode)
	}
	var failure struct {
		Error      string `json:"error"`
		KeyPresent bool   `json:"keyPresent"`
	}
	decodeBody(t, resp, &failure)
	if failure.Error != "Failed to generate content" {
		t.Fatalf("unexpected error: %q", failure.Error)
	}
	if failure.KeyPresent {
		t.Fatal("keyPresent should be false")
	}

	// The endpoint is open; anonymous callers get the same treatment.
	resp = doJSON(t, app, http.MethodPost, "/api/generate", "", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("anon empty topic: expected 400, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/generate", "", map[string]string{"topic": "x"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("anon generate: expected 500, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestNewAppConfig(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestServer(t)

	app := s.newApp()
	cfg := app.Config()
	if cfg.BodyLimit != 10*1024*1024 {
		t.Fatalf("body limit: expected 10MB, got %d", cfg.BodyLimit)
	}
	if cfg.AppName != "Inkwell API" {
		t.Fatalf("app name: %q", cfg.AppName)
	}
	if cfg.ErrorHandler == nil {
		t.Fatal("error handler not set")
	}
}
