package sqlstore

import (
	"context"

	"github.com/shaibs3/geoadmin/internal/model"
)

// FindUserByEmail returns the account registered with email
func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.read(ctx, "find_user_by_email", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`
			SELECT id, name, email, password_hash, role
			FROM users WHERE email = ?`), email).
			Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role)
	})
	u.Role = model.Role(role)
	return u, err
}

// CreateUser inserts an account and returns its id. An existing email
// fails with store.ErrDuplicateKey.
func (s *Store) CreateUser(ctx context.Context, user model.User) (int64, error) {
	var id int64
	err := s.write(ctx, "create_user", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO users (name, email, password_hash, role)
			VALUES (?, ?, ?, ?) RETURNING id`),
			user.Name, user.Email, user.PasswordHash, string(user.Role)).
			Scan(&id)
	})
	return id, err
}
