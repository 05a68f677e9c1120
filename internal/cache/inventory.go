package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix  = "post:%d"
	PostsListKey   = "posts:list"
	UserKeyPrefix  = "user:%d"
	BlacklistKeyPF = "blacklist:%s"
)

const (
	PostTTL = 30 * time.Minute
	ListTTL = 1 * time.Minute
	UserTTL = 5 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPF, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidatePostsList(ctx context.Context) {
	Invalidate(ctx, PostsListKey)
}
