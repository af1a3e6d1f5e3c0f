package bulletin

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested user, post or comment does not exist.
var ErrNotFound = sql.ErrNoRows

// Store wraps a SQLite database and provides CRUD operations for users,
// posts and comments.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write access, busy_timeout so writers wait
	// instead of returning SQLITE_BUSY, and foreign_keys so deleting a post
	// cascades to its comments.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash BLOB NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS user_permissions (
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    permission TEXT NOT NULL,
    PRIMARY KEY (user_id, permission)
);
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    source TEXT NOT NULL,
    body TEXT NOT NULL,
    pub_date INTEGER NOT NULL,
    author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
    author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    body TEXT NOT NULL,
    pub_date INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_pub_date ON posts(pub_date DESC);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id, pub_date);
`)
	return err
}

// Timestamps are stored as unix nanoseconds so ordering is total even for
// posts created within the same second.

// CreatePost inserts a new post with pub_date set to now. Source is the
// author's markup and body the HTML rendered from it.
func (s *Store) CreatePost(authorID int64, title, source, body string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO posts (title, source, body, pub_date, author_id) VALUES (?, ?, ?, ?, ?)`,
		title, source, body, time.Now().UnixNano(), authorID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPost returns a single post by id, including the author's username.
func (s *Store) GetPost(id int64) (Post, error) {
	var p Post
	var pub int64
	err := s.db.QueryRow(`
		SELECT p.id, p.title, p.source, p.body, p.pub_date, p.author_id, u.username
		FROM posts p JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Source, &p.Body, &pub, &p.AuthorID, &p.AuthorName)
	if err != nil {
		return Post{}, err
	}
	p.PubDate = time.Unix(0, pub)
	return p, nil
}

// UpdatePost replaces a post's title, source and body and refreshes pub_date,
// which serves as the last-modified timestamp.
func (s *Store) UpdatePost(id int64, title, source, body string) error {
	res, err := s.db.Exec(`UPDATE posts SET title = ?, source = ?, body = ?, pub_date = ? WHERE id = ?`,
		title, source, body, time.Now().UnixNano(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post. Its comments go with it via the foreign key
// cascade.
func (s *Store) DeletePost(id int64) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPosts returns posts ordered by pub_date descending, newest first.
func (s *Store) ListPosts(limit, offset int) ([]Post, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.title, p.source, p.body, p.pub_date, p.author_id, u.username
		FROM posts p JOIN users u ON u.id = p.author_id
		ORDER BY p.pub_date DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// ListPostsByAuthor returns the author's most recent posts, newest first.
func (s *Store) ListPostsByAuthor(authorID int64, limit int) ([]Post, error) {
	rows, err := s.db.Query(`
		SELECT p.id, p.title, p.source, p.body, p.pub_date, p.author_id, u.username
		FROM posts p JOIN users u ON u.id = p.author_id
		WHERE p.author_id = ?
		ORDER BY p.pub_date DESC
		LIMIT ?`, authorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		var p Post
		var pub int64
		if err := rows.Scan(&p.ID, &p.Title, &p.Source, &p.Body, &pub, &p.AuthorID, &p.AuthorName); err != nil {
			return nil, err
		}
		p.PubDate = time.Unix(0, pub)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountPosts returns the total number of posts.
func (s *Store) CountPosts() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

// CountPostsByAuthor returns the author's total post count.
func (s *Store) CountPostsByAuthor(authorID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}

// CreateComment inserts a new comment on the given post with pub_date set to
// now. The post must exist; the foreign key rejects orphan comments.
func (s *Store) CreateComment(postID, authorID int64, body string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO comments (post_id, author_id, body, pub_date) VALUES (?, ?, ?, ?)`,
		postID, authorID, body, time.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetComment returns a single comment by id.
func (s *Store) GetComment(id int64) (Comment, error) {
	var cm Comment
	var pub int64
	err := s.db.QueryRow(`
		SELECT c.id, c.post_id, c.author_id, u.username, c.body, c.pub_date
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.id = ?`, id).
		Scan(&cm.ID, &cm.PostID, &cm.AuthorID, &cm.AuthorName, &cm.Body, &pub)
	if err != nil {
		return Comment{}, err
	}
	cm.PubDate = time.Unix(0, pub)
	return cm, nil
}

// DeleteComment removes a comment by id.
func (s *Store) DeleteComment(id int64) error {
	res, err := s.db.Exec(`DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListComments returns a post's comments ordered by pub_date ascending,
// oldest first.
func (s *Store) ListComments(postID int64, limit, offset int) ([]Comment, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.post_id, c.author_id, u.username, c.body, c.pub_date
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.pub_date ASC
		LIMIT ? OFFSET ?`, postID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var cm Comment
		var pub int64
		if err := rows.Scan(&cm.ID, &cm.PostID, &cm.AuthorID, &cm.AuthorName, &cm.Body, &pub); err != nil {
			return nil, err
		}
		cm.PubDate = time.Unix(0, pub)
		comments = append(comments, cm)
	}
	return comments, rows.Err()
}

// CountComments returns the total number of comments on a post, independent
// of pagination.
func (s *Store) CountComments(postID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&n)
	return n, err
}

// CountCommentsByAuthor returns the author's total comment count across all
// posts.
func (s *Store) CountCommentsByAuthor(authorID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM comments WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}
