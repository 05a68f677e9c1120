// Package store keeps a client-side projection of the blog's posts and the
// signed-in user's like/bookmark membership, synchronized against a Remote.
//
// The store resolves the user's identity once at startup, then applies every
// mutation remote-first: the local projection changes only after the server
// accepted the operation. There are no retries; a failed call leaves the
// projection untouched and returns the error to the caller.
package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Remote is the server surface the store synchronizes against.
type Remote interface {
	CurrentUser(ctx context.Context) (*User, error)
	FetchPosts(ctx context.Context) ([]Post, error)
	LikedPostIDs(ctx context.Context) ([]uint, error)
	BookmarkedPostIDs(ctx context.Context) ([]uint, error)

	CreatePost(ctx context.Context, in PostInput) (*Post, error)
	UpdatePost(ctx context.Context, id uint, patch PostPatch) (*Post, error)
	DeletePost(ctx context.Context, id uint) error

	Like(ctx context.Context, postID uint) error
	Unlike(ctx context.Context, postID uint) error
	Bookmark(ctx context.Context, postID uint) error
	Unbookmark(ctx context.Context, postID uint) error

	FetchComments(ctx context.Context, postID uint) ([]Comment, error)
	AddComment(ctx context.Context, postID uint, content string, parentCommentID *uint) (*Comment, error)
	DeleteComment(ctx context.Context, postID, commentID uint) error

	RecordView(ctx context.Context, postID uint) error
	SignOut(ctx context.Context) error
}

// IdentityNotifier is an optional Remote extension. When implemented, the
// store subscribes to it on Start and flips between Anonymous and
// Authenticated as sessions begin and end elsewhere in the process, e.g. a
// Login call made directly on the client.
type IdentityNotifier interface {
	// IdentityEvents yields the new user on sign-in and nil on sign-out.
	IdentityEvents() <-chan *User
}

// IdentityState tracks where the store is in resolving who the user is.
type IdentityState int

const (
	// IdentityResolving is the initial state while the first CurrentUser
	// call is in flight.
	IdentityResolving IdentityState = iota
	// IdentityAnonymous means no user is signed in.
	IdentityAnonymous
	// IdentityAuthenticated means a user is signed in and membership sets
	// have been loaded.
	IdentityAuthenticated
)

// ErrNotAuthenticated is returned by operations that require a signed-in user.
var ErrNotAuthenticated = errors.New("store: not authenticated")

const defaultIdentityTimeout = 5 * time.Second

// Option configures a Store.
type Option func(*Store)

// WithIdentityTimeout bounds the initial identity resolution. When it
// elapses the store proceeds as Anonymous; a late resolution still lands and
// overrides the state. Tests use this to avoid real 5s waits.
func WithIdentityTimeout(d time.Duration) Option {
	return func(s *Store) { s.identityTimeout = d }
}

// Store is safe for concurrent use.
type Store struct {
	remote          Remote
	identityTimeout time.Duration

	mu         sync.Mutex
	state      IdentityState
	user       *User
	posts      []Post
	comments   map[uint][]Comment
	liked      map[uint]struct{}
	bookmarked map[uint]struct{}

	identityDone chan struct{}
	timedOut     chan struct{}
	startOnce    sync.Once
}

func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:          remote,
		identityTimeout: defaultIdentityTimeout,
		state:           IdentityResolving,
		comments:        make(map[uint][]Comment),
		liked:           make(map[uint]struct{}),
		bookmarked:      make(map[uint]struct{}),
		identityDone:    make(chan struct{}),
		timedOut:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resolves identity and kicks off the initial fetch of posts and
// their comment threads. The fetch is deliberately not awaited; callers
// observe it through Posts() or force one with Refresh(). Start is
// idempotent.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.resolveIdentity(ctx)
		go s.enforceIdentityTimeout()
		go func() {
			_ = s.Refresh(ctx)
		}()
		if notifier, ok := s.remote.(IdentityNotifier); ok {
			go s.watchIdentity(ctx, notifier.IdentityEvents())
		}
	})
}

// enforceIdentityTimeout moves a still-resolving store to Anonymous once the
// bounded wait elapses, so callers never block on a slow identity check. The
// in-flight resolution keeps running and overrides the state when it lands.
func (s *Store) enforceIdentityTimeout() {
	select {
	case <-s.identityDone:
		return
	case <-time.After(s.identityTimeout):
	}
	s.mu.Lock()
	if s.state == IdentityResolving {
		s.state = IdentityAnonymous
	}
	s.mu.Unlock()
	close(s.timedOut)
}

// watchIdentity applies sign-in and sign-out events from the remote.
func (s *Store) watchIdentity(ctx context.Context, events <-chan *User) {
	for {
		select {
		case <-ctx.Done():
			return
		case user, ok := <-events:
			if !ok {
				return
			}
			if user == nil {
				s.becomeAnonymous()
				continue
			}
			s.becomeAuthenticated(ctx, user)
		}
	}
}

func (s *Store) becomeAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = IdentityAnonymous
	s.user = nil
	s.liked = make(map[uint]struct{})
	s.bookmarked = make(map[uint]struct{})
	for i := range s.posts {
		s.posts[i].Liked = false
		s.posts[i].Bookmarked = false
	}
}

func (s *Store) becomeAuthenticated(ctx context.Context, user *User) {
	liked, likedErr := s.remote.LikedPostIDs(ctx)
	bookmarked, bookmarkedErr := s.remote.BookmarkedPostIDs(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = IdentityAuthenticated
	s.user = user
	s.liked = make(map[uint]struct{})
	s.bookmarked = make(map[uint]struct{})
	if likedErr == nil {
		for _, id := range liked {
			s.liked[id] = struct{}{}
		}
	}
	if bookmarkedErr == nil {
		for _, id := range bookmarked {
			s.bookmarked[id] = struct{}{}
		}
	}
}

func (s *Store) resolveIdentity(ctx context.Context) {
	defer close(s.identityDone)

	user, err := s.remote.CurrentUser(ctx)
	if err != nil || user == nil {
		s.mu.Lock()
		s.state = IdentityAnonymous
		s.mu.Unlock()
		return
	}
	s.becomeAuthenticated(ctx, user)
}

// waitForIdentity blocks until the initial identity resolution finishes or
// times out (leaving the store Anonymous), or the context is cancelled.
func (s *Store) waitForIdentity(ctx context.Context) error {
	select {
	case <-s.identityDone:
		return nil
	case <-s.timedOut:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// requireUser waits for identity and fails unless a user is signed in.
func (s *Store) requireUser(ctx context.Context) error {
	if err := s.waitForIdentity(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != IdentityAuthenticated {
		return ErrNotAuthenticated
	}
	return nil
}

// State returns the current identity state.
func (s *Store) State() IdentityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentUser returns the signed-in user, or nil.
func (s *Store) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Posts returns a snapshot of the projection.
func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Post looks up a post in the projection by id.
func (s *Store) Post(id uint) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == id {
			return p, true
		}
	}
	return Post{}, false
}

// IsLiked reports whether the signed-in user has liked the post.
func (s *Store) IsLiked(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liked[postID]
	return ok
}

// IsBookmarked reports whether the signed-in user has bookmarked the post.
func (s *Store) IsBookmarked(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bookmarked[postID]
	return ok
}

// LikeCount returns the projected like count, zero for unknown posts.
func (s *Store) LikeCount(postID uint) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.posts {
		if p.ID == postID {
			return p.LikeCount
		}
	}
	return 0
}

// LikedPostIDs reports the liked-set membership.
func (s *Store) LikedPostIDs() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.liked)
}

// BookmarkedPostIDs reports the bookmarked-set membership.
func (s *Store) BookmarkedPostIDs() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.bookmarked)
}

// BookmarkedPosts filters the projection down to bookmarked posts.
func (s *Store) BookmarkedPosts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Post
	for _, p := range s.posts {
		if _, ok := s.bookmarked[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Refresh replaces the posts projection with the server's current listing
// and reloads every post's comment thread. A thread that fails to fetch is
// left empty until the next Refresh; reads never surface fetch errors.
func (s *Store) Refresh(ctx context.Context) error {
	posts, err := s.remote.FetchPosts(ctx)
	if err != nil {
		return err
	}
	threads := make(map[uint][]Comment, len(posts))
	for _, p := range posts {
		comments, err := s.remote.FetchComments(ctx, p.ID)
		if err != nil {
			continue
		}
		threads[p.ID] = comments
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
	s.comments = threads
	return nil
}

// AddPost creates the post remotely, then prepends the server's record.
func (s *Store) AddPost(ctx context.Context, in PostInput) (*Post, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	created, err := s.remote.CreatePost(ctx, in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]Post{*created}, s.posts...)
	return created, nil
}

// UpdatePost applies the patch remotely and swaps the server's record into
// the projection. Publishing a draft is just a patch with IsDraft=false.
func (s *Store) UpdatePost(ctx context.Context, id uint, patch PostPatch) (*Post, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	updated, err := s.remote.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i] = *updated
			break
		}
	}
	return updated, nil
}

// DeletePost removes the post remotely first. On failure the projection
// keeps the post so the UI never shows a deletion the server rejected.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.DeletePost(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			break
		}
	}
	delete(s.liked, id)
	delete(s.bookmarked, id)
	return nil
}

// Like records the like remotely, then adjusts the projection: membership,
// the Liked flag, and a +1 on the visible count.
func (s *Store) Like(ctx context.Context, postID uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.Like(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, already := s.liked[postID]; already {
		return nil
	}
	s.liked[postID] = struct{}{}
	s.adjustLikeCount(postID, 1, true)
	return nil
}

// Unlike is the inverse of Like. The visible count never goes below zero.
func (s *Store) Unlike(ctx context.Context, postID uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.Unlike(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.liked[postID]; !present {
		return nil
	}
	delete(s.liked, postID)
	s.adjustLikeCount(postID, -1, false)
	return nil
}

// adjustLikeCount must be called with mu held.
func (s *Store) adjustLikeCount(postID uint, delta int64, liked bool) {
	for i := range s.posts {
		if s.posts[i].ID != postID {
			continue
		}
		s.posts[i].LikeCount += delta
		if s.posts[i].LikeCount < 0 {
			s.posts[i].LikeCount = 0
		}
		s.posts[i].Liked = liked
		return
	}
}

// Bookmark records the bookmark remotely, then updates membership.
func (s *Store) Bookmark(ctx context.Context, postID uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.Bookmark(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarked[postID] = struct{}{}
	s.setBookmarked(postID, true)
	return nil
}

// Unbookmark is the inverse of Bookmark.
func (s *Store) Unbookmark(ctx context.Context, postID uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.Unbookmark(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookmarked, postID)
	s.setBookmarked(postID, false)
	return nil
}

// setBookmarked must be called with mu held.
func (s *Store) setBookmarked(postID uint, bookmarked bool) {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			s.posts[i].Bookmarked = bookmarked
			return
		}
	}
}

// Comments returns the top-level comments of a post's thread. Threads load
// during Refresh and stay current through AddComment and DeleteComment, so
// this is a pure projection read.
func (s *Store) Comments(postID uint) []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var topLevel []Comment
	for _, c := range s.comments[postID] {
		if c.ParentCommentID == nil {
			topLevel = append(topLevel, c)
		}
	}
	return topLevel
}

// Replies returns the replies under one top-level comment.
func (s *Store) Replies(postID, parentCommentID uint) []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var replies []Comment
	for _, c := range s.comments[postID] {
		if c.ParentCommentID != nil && *c.ParentCommentID == parentCommentID {
			replies = append(replies, c)
		}
	}
	return replies
}

// AddComment creates the comment remotely and returns the server's record,
// which carries the id, author, and timestamp. The projection's comment
// count is bumped on success.
func (s *Store) AddComment(ctx context.Context, postID uint, content string, parentCommentID *uint) (*Comment, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}
	created, err := s.remote.AddComment(ctx, postID, content, parentCommentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[postID] = append(s.comments[postID], *created)
	s.adjustCommentCount(postID, 1)
	return created, nil
}

// DeleteComment removes the comment remotely, then decrements the count.
func (s *Store) DeleteComment(ctx context.Context, postID, commentID uint) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	if err := s.remote.DeleteComment(ctx, postID, commentID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.comments[postID]; ok {
		kept := make([]Comment, 0, len(cached))
		for _, c := range cached {
			if c.ID != commentID {
				kept = append(kept, c)
			}
		}
		s.comments[postID] = kept
	}
	s.adjustCommentCount(postID, -1)
	return nil
}

// adjustCommentCount must be called with mu held.
func (s *Store) adjustCommentCount(postID uint, delta int64) {
	for i := range s.posts {
		if s.posts[i].ID != postID {
			continue
		}
		s.posts[i].CommentCount += delta
		if s.posts[i].CommentCount < 0 {
			s.posts[i].CommentCount = 0
		}
		return
	}
}

// RecordView reports a view to the server, then bumps the local copy.
// The local bump is a plain read-then-write of the projection; concurrent
// viewers may disagree with the server until the next Refresh, which is
// acceptable for a best-effort counter.
func (s *Store) RecordView(ctx context.Context, postID uint) error {
	if err := s.remote.RecordView(ctx, postID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == postID {
			s.posts[i].ViewCount = s.posts[i].ViewCount + 1
			return nil
		}
	}
	return nil
}

// SignOut ends the session. Membership sets and the user are cleared; the
// posts projection stays so the public feed keeps rendering, with per-post
// flags reset.
func (s *Store) SignOut(ctx context.Context) error {
	if err := s.remote.SignOut(ctx); err != nil {
		return err
	}
	s.becomeAnonymous()
	return nil
}

func setToSlice(set map[uint]struct{}) []uint {
	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
