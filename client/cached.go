package client

import (
	"context"
	"fmt"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-topgg/core"
	"github.com/goliatone/go-topgg/snowflake"
)

const userCacheKeyPrefix = "go-topgg::user::v1"

type UserFetcher interface {
	GetUser(ctx context.Context, id any) (core.User, error)
}

// CachedUsers memoizes user lookups in a go-repository-cache service.
// Lookup errors from the base fetcher are returned unchanged.
type CachedUsers struct {
	base  UserFetcher
	cache repositorycache.CacheService
}

func NewCachedUsers(base UserFetcher, cacheService repositorycache.CacheService) (*CachedUsers, error) {
	if base == nil {
		return nil, fmt.Errorf("client: base user fetcher is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("client: user cache service is required")
	}
	return &CachedUsers{base: base, cache: cacheService}, nil
}

func UserCacheKey(id snowflake.ID) string {
	return userCacheKeyPrefix + "::" + id.String()
}

func (c *CachedUsers) GetUser(ctx context.Context, id any) (core.User, error) {
	if c == nil || c.base == nil || c.cache == nil {
		return core.User{}, fmt.Errorf("client: cached users is not configured")
	}
	target, err := snowflake.Resolve(id)
	if err != nil {
		return core.User{}, err
	}
	user, err := repositorycache.GetOrFetch(ctx, c.cache, UserCacheKey(target), func(ctx context.Context) (core.User, error) {
		return c.base.GetUser(ctx, target)
	})
	if err != nil {
		return core.User{}, err
	}
	return cloneUser(user), nil
}

// Forget drops a cached user so the next lookup refetches it.
func (c *CachedUsers) Forget(ctx context.Context, id any) error {
	if c == nil || c.cache == nil {
		return nil
	}
	target, err := snowflake.Resolve(id)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, UserCacheKey(target))
}

func cloneUser(user core.User) core.User {
	cloned := user
	if user.Socials != nil {
		socials := *user.Socials
		cloned.Socials = &socials
	}
	return cloned
}

var (
	_ UserFetcher = (*Client)(nil)
	_ UserFetcher = (*CachedUsers)(nil)
)
