package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bidcycle/bidcycle/internal/model"
)

const userColumns = `id, name, email, password_hash, role, phone, address, bio, is_banned, created_at, last_login`

// CreateUser creates a new user.
func CreateUser(ctx context.Context, q Querier, name, email, passwordHash, role string) (*model.User, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		id, name, email, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id string) (*model.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	)
	return scanUser(row)
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	)
	return scanUser(row)
}

// ListUsers returns users matching the search term (name or email), newest
// first, with optional limit/offset pagination (limit <= 0 disables
// pagination). An empty search matches everyone.
func ListUsers(ctx context.Context, q Querier, search string, limit, offset int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any

	if search != "" {
		query += ` AND (name LIKE ? OR email LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users matching the search term.
func CountUsers(ctx context.Context, q Querier, search string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE 1=1`
	var args []any

	if search != "" {
		query += ` AND (name LIKE ? OR email LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// UpdateUserProfile updates a user's display fields.
func UpdateUserProfile(ctx context.Context, q Querier, id, name, phone, address, bio string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET name = ?, phone = ?, address = ?, bio = ? WHERE id = ?`,
		name, phone, address, bio, id,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// UpdateUserRole updates a user's role.
func UpdateUserRole(ctx context.Context, q Querier, id, role string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}
	return nil
}

// SetUserBanned sets or clears a user's ban flag.
func SetUserBanned(ctx context.Context, q Querier, id string, banned bool) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET is_banned = ? WHERE id = ?`,
		banned, id,
	)
	if err != nil {
		return fmt.Errorf("setting user ban flag: %w", err)
	}
	return nil
}

// UpdateLastLogin records a successful login time.
func UpdateLastLogin(ctx context.Context, q Querier, id string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*model.User, error) {
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUserRow(s rowScanner) (*model.User, error) {
	u := &model.User{}
	var phone, address, bio sql.NullString
	var lastLogin sql.NullTime
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&phone, &address, &bio, &u.IsBanned, &u.CreatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Phone = phone.String
	u.Address = address.String
	u.Bio = bio.String
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}
