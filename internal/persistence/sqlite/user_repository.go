package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/facility-booking/internal/persistence"
)

const userColumns = `id, passport_id, display_name, password_hash, is_admin, face_registered, created_at, updated_at`

// CreateUser stores a new user. A passport ID already in use yields ErrDuplicate.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || strings.TrimSpace(user.PassportID) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		strings.TrimSpace(user.PassportID),
		user.DisplayName,
		user.PasswordHash,
		boolToInt(user.IsAdmin),
		boolToInt(user.FaceRegistered),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return mapError(err)
}

// UpdateUser replaces the mutable fields of an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = ?, password_hash = ?, is_admin = ?, face_registered = ?, updated_at = ?
		WHERE id = ?
	`,
		user.DisplayName,
		user.PasswordHash,
		boolToInt(user.IsAdmin),
		boolToInt(user.FaceRegistered),
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return rowsAffected(result)
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByPassportID retrieves a user by passport ID, ignoring case.
func (s *Storage) GetUserByPassportID(ctx context.Context, passportID string) (persistence.User, error) {
	passportID = strings.TrimSpace(passportID)
	if passportID == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE passport_id = ?`, passportID)
	return scanUser(row)
}

// ListUsers returns all users, newest first.
func (s *Storage) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// SaveFaceData stores the registration image and flags the user as registered
// in one transaction. A second call replaces the stored image.
func (s *Storage) SaveFaceData(ctx context.Context, data persistence.FaceData) error {
	if data.UserID == "" || len(data.Image) == 0 {
		return persistence.ErrConstraintViolation
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE users SET face_registered = 1, updated_at = ? WHERE id = ?
		`, formatTime(data.UpdatedAt), data.UserID)
		if err != nil {
			return mapError(err)
		}
		if err := rowsAffected(result); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO face_data (user_id, image, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET image = excluded.image, updated_at = excluded.updated_at
		`, data.UserID, data.Image, formatTime(data.CreatedAt), formatTime(data.UpdatedAt))
		return mapError(err)
	})
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var isAdmin, faceRegistered int
	var createdAt, updatedAt string
	if err := row.Scan(
		&user.ID,
		&user.PassportID,
		&user.DisplayName,
		&user.PasswordHash,
		&isAdmin,
		&faceRegistered,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, mapError(err)
	}
	user.IsAdmin = isAdmin != 0
	user.FaceRegistered = faceRegistered != 0

	var err error
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
