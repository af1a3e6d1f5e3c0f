package bulletin

import (
	"sync"
	"time"
)

// FrontPageCache holds the first page of posts and the total post count.
// The index is by far the hottest page; every other page goes straight to
// the store. Writers invalidate it so a freshly created post shows up on
// the redirect that follows.
type FrontPageCache struct {
	mu      sync.RWMutex
	posts   []Post
	total   int
	fetched time.Time
	ttl     time.Duration
	store   *Store
	size    int
}

// NewFrontPageCache creates a FrontPageCache backed by the given Store,
// caching size posts for at most ttl.
func NewFrontPageCache(s *Store, size int, ttl time.Duration) *FrontPageCache {
	return &FrontPageCache{store: s, size: size, ttl: ttl}
}

func (c *FrontPageCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FrontPageCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.total = 0
	c.mu.Unlock()
}

// FrontPage returns the newest posts and the total post count.
func (c *FrontPageCache) FrontPage() ([]Post, int, error) {
	c.mu.RLock()
	if c.valid() {
		posts, total := c.posts, c.total
		c.mu.RUnlock()
		return posts, total, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, c.total, nil
	}
	posts, err := c.store.ListPosts(c.size, 0)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.store.CountPosts()
	if err != nil {
		return nil, 0, err
	}
	c.posts = posts
	c.total = total
	c.fetched = time.Now()
	return posts, total, nil
}
