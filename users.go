package bulletin

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateUsername is returned when creating a user whose username
	// is already taken.
	ErrDuplicateUsername = errors.New("duplicate username")
	// ErrInvalidCredentials is returned when a username/password pair does
	// not match an active account.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const bcryptCost = 12

// CreateUser inserts a new active user with a bcrypt-hashed password and the
// given permission grants, in one transaction.
func (s *Store) CreateUser(username, password string, perms ...Permission) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(`INSERT INTO users (username, password_hash, active, created_at) VALUES (?, ?, 1, ?)`,
		username, hash, now.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, p := range perms {
		if _, err := tx.Exec(`INSERT INTO user_permissions (user_id, permission) VALUES (?, ?)`, id, string(p)); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &User{ID: id, Username: username, Active: true, CreatedAt: now, Permissions: perms}, nil
}

// GetUserByID returns a user and their permissions by numeric id.
func (s *Store) GetUserByID(id int64) (*User, error) {
	return s.getUser(`SELECT id, username, active, created_at FROM users WHERE id = ?`, id)
}

// GetUserByUsername returns a user and their permissions by username.
func (s *Store) GetUserByUsername(username string) (*User, error) {
	return s.getUser(`SELECT id, username, active, created_at FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(query string, arg any) (*User, error) {
	var u User
	var active int
	var created int64
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Username, &active, &created)
	if err != nil {
		return nil, err
	}
	u.Active = active == 1
	u.CreatedAt = time.Unix(0, created)

	rows, err := s.db.Query(`SELECT permission FROM user_permissions WHERE user_id = ?`, u.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		u.Permissions = append(u.Permissions, Permission(p))
	}
	return &u, rows.Err()
}

// Authenticate verifies a username/password pair against the stored bcrypt
// hash. Unknown usernames, wrong passwords and deactivated accounts all
// return ErrInvalidCredentials so callers cannot tell them apart.
func (s *Store) Authenticate(username, password string) (*User, error) {
	var id int64
	var hash []byte
	var active int
	err := s.db.QueryRow(`SELECT id, password_hash, active FROM users WHERE username = ?`, username).
		Scan(&id, &hash, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if active != 1 {
		return nil, ErrInvalidCredentials
	}
	return s.GetUserByID(id)
}

// SetPassword replaces a user's stored credential with a bcrypt hash of the
// new password.
func (s *Store) SetPassword(userID int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
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

// isUniqueViolation matches sqlite's unique constraint error by message; the
// pure-Go driver does not export a typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
