// Package bulletin is a small forum application: authenticated users write
// posts, other users comment on them, and profile pages list each user's
// activity. Handlers enforce a strict check order (authentication,
// permission, ownership, cookie probe, session rate limit, validation)
// and every failure turns into a flash message plus a redirect or
// re-render, never an unhandled fault.
package bulletin

import (
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/labstack/echo/v4"
)

// App wires together the store, caches, limiter, middleware and routes.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *FrontPageCache

	loginLimiter *LoginLimiter
	stats        *gocache.Cache
}

// New creates an App with the given configuration. Call Init before serving.
func New(cfg SiteConfig) *App {
	cfg.setDefaults()
	return &App{
		Config: cfg,
		Echo:   echo.New(),
	}
}

// Init opens the database and sets up caches, middleware and routes without
// starting the listener. Start calls it; tests use it directly.
func (a *App) Init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("bulletin: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("bulletin: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewFrontPageCache(store, postsPerPage, a.Config.FrontPageTTL)
	a.stats = gocache.New(a.Config.StatsTTL, 5*time.Minute)
	a.loginLimiter = NewLoginLimiter(10, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start initializes the app and serves HTTP until shutdown.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", "public")
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleIndex)
	e.GET("/about/", a.handleAbout)
	e.GET("/tos/", a.handleTOS)
	e.GET("/view/:id/", a.handleView)
	e.GET("/user/:key/", a.handleUser)

	e.GET("/create/", a.handleCreateForm)
	e.POST("/create/", a.handleCreate)
	e.GET("/edit/:id/", a.handleEditForm)
	e.POST("/edit/:id/", a.handleEdit)

	e.GET("/comment/:id/", a.handleCommentForm)
	e.POST("/comment/:id/", a.handleComment)
	e.POST("/comment/delete/:comment_id/:post_id/", a.handleDeleteComment)

	e.GET("/login/", a.handleLoginForm)
	e.POST("/login/", a.handleLogin)
	e.POST("/logout/", a.handleLogout)
	e.GET("/reset_password/", a.handleResetPasswordForm)
	e.POST("/reset_password/", a.handleResetPassword)
}

// authorStats are the cached profile totals for one user.
type authorStats struct {
	posts    int
	comments int
}

func statsKey(userID int64) string {
	return fmt.Sprintf("stats:%d", userID)
}

// profileStats returns a user's total post and comment counts, cached with a
// short TTL and invalidated on writes by that user.
func (a *App) profileStats(userID int64) (authorStats, error) {
	key := statsKey(userID)
	if v, ok := a.stats.Get(key); ok {
		return v.(authorStats), nil
	}
	posts, err := a.Store.CountPostsByAuthor(userID)
	if err != nil {
		return authorStats{}, err
	}
	comments, err := a.Store.CountCommentsByAuthor(userID)
	if err != nil {
		return authorStats{}, err
	}
	stats := authorStats{posts: posts, comments: comments}
	a.stats.Set(key, stats, gocache.DefaultExpiration)
	return stats, nil
}

// invalidatePostCaches drops the front page and the author's profile stats
// after a post mutation. Deleting a post can orphan other users' comment
// counts in the stats cache; the TTL covers that within a minute.
func (a *App) invalidatePostCaches(authorID int64) {
	a.Cache.Invalidate()
	a.stats.Delete(statsKey(authorID))
}
