// Package client implements store.Remote over the blog's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"inkwell/pkg/store"
)

// Client talks to the API server and satisfies store.Remote. The zero value
// is not usable; construct with New.
type Client struct {
	baseURL    string
	httpClient *http.Client
	events     chan *store.User

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken seeds an existing bearer token, e.g. one restored from storage.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		events: make(chan *store.User, 8),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// IdentityEvents yields the new user on sign-in and nil on sign-out, so an
// attached store can track sessions started through this client.
func (c *Client) IdentityEvents() <-chan *store.User {
	return c.events
}

// notifyIdentity never blocks; a full buffer drops the event, and the store
// reconciles on its next refresh.
func (c *Client) notifyIdentity(user *store.User) {
	select {
	case c.events <- user:
	default:
	}
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.Unmarshal(respBody, &envelope)
		return &apiError{
			Status:  resp.StatusCode,
			Code:    envelope.Code,
			Message: envelope.Error,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("client: decode response: %w", err)
		}
	}
	return nil
}

type authResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

// Signup registers an account and signs the client in.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*store.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	c.notifyIdentity(&resp.User)
	return &resp.User, nil
}

// Login authenticates and stores the bearer token for subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*store.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	c.notifyIdentity(&resp.User)
	return &resp.User, nil
}

// CurrentUser resolves the signed-in user, or (nil, nil) when no token is
// held or the token is no longer valid.
func (c *Client) CurrentUser(ctx context.Context) (*store.User, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var user store.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		if IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) FetchPosts(ctx context.Context) ([]store.Post, error) {
	var posts []store.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

type postIDsResponse struct {
	PostIDs []uint `json:"post_ids"`
}

func (c *Client) LikedPostIDs(ctx context.Context) ([]uint, error) {
	var resp postIDsResponse
	if err := c.do(ctx, http.MethodGet, "/api/likes/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.PostIDs, nil
}

func (c *Client) BookmarkedPostIDs(ctx context.Context) ([]uint, error) {
	var resp postIDsResponse
	if err := c.do(ctx, http.MethodGet, "/api/bookmarks/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.PostIDs, nil
}

func (c *Client) CreatePost(ctx context.Context, in store.PostInput) (*store.Post, error) {
	var post store.Post
	if err := c.do(ctx, http.MethodPost, "/api/posts", in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id uint, patch store.PostPatch) (*store.Post, error) {
	var post store.Post
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/posts/%d", id), patch, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d", id), nil, nil)
}

func (c *Client) Like(ctx context.Context, postID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), nil, nil)
}

func (c *Client) Unlike(ctx context.Context, postID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/like", postID), nil, nil)
}

func (c *Client) Bookmark(ctx context.Context, postID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/bookmark", postID), nil, nil)
}

func (c *Client) Unbookmark(ctx context.Context, postID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/bookmark", postID), nil, nil)
}

func (c *Client) FetchComments(ctx context.Context, postID uint) ([]store.Comment, error) {
	var comments []store.Comment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) AddComment(ctx context.Context, postID uint, content string, parentCommentID *uint) (*store.Comment, error) {
	var comment store.Comment
	body := map[string]any{"content": content}
	if parentCommentID != nil {
		body["parent_comment_id"] = *parentCommentID
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID), nil, nil)
}

func (c *Client) RecordView(ctx context.Context, postID uint) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/posts/%d/view", postID), nil, nil)
}

// SignOut revokes the token server-side and drops it locally either way.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setToken("")
	c.notifyIdentity(nil)
	return err
}

// Generate asks the server's AI proxy to draft post content for a topic.
func (c *Client) Generate(ctx context.Context, topic string) (string, error) {
	var resp struct {
		Content string `json:"content"`
		Error   string `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/generate", map[string]string{"topic": topic}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("client: generate: %s", resp.Error)
	}
	return resp.Content, nil
}

var (
	_ store.Remote           = (*Client)(nil)
	_ store.IdentityNotifier = (*Client)(nil)
)
