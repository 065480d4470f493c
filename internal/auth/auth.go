package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/store"
	"go.uber.org/zap"
)

// RegisterInput is the registration form
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Service registers and authenticates accounts
type Service struct {
	users  store.UserStore
	hasher Hasher
	logger *zap.Logger
	// dummy is compared against when the email is unknown so both failure
	// paths do the same work
	dummy string
}

// NewService creates a credential service over users
func NewService(users store.UserStore, hasher Hasher, logger *zap.Logger) (*Service, error) {
	dummy, err := hasher.Hash("placeholder-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger.Named("auth"),
		dummy:  dummy,
	}, nil
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validAddress reports whether email is a bare addr-spec. Display-name
// forms such as "Bob <bob@x.hu>" parse but are rejected.
func validAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates an account with role registered
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.Principal, error) {
	if in.Password != in.Confirm {
		return model.Principal{}, ErrPasswordMismatch
	}

	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	switch {
	case name == "":
		return model.Principal{}, &ValidationError{Field: "nev", Message: "name is required"}
	case email == "":
		return model.Principal{}, &ValidationError{Field: "email", Message: "email is required"}
	case in.Password == "":
		return model.Principal{}, &ValidationError{Field: "jelszo", Message: "password is required"}
	}
	if !validAddress(email) {
		return model.Principal{}, &ValidationError{Field: "email", Message: "email is malformed"}
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return model.Principal{}, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return model.Principal{}, fmt.Errorf("failed to look up email: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.Principal{}, err
	}

	user := model.User{Name: name, Email: email, PasswordHash: digest, Role: model.RoleRegistered}
	user.ID, err = s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return model.Principal{}, ErrEmailTaken
		}
		return model.Principal{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user.Principal(), nil
}

// Authenticate verifies an email and password and returns the session
// projection of the account
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.Principal, error) {
	user, err := s.users.FindUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummy)
			return model.Principal{}, ErrInvalidCredentials
		}
		return model.Principal{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return model.Principal{}, ErrInvalidCredentials
	}
	return user.Principal(), nil
}

// EnsureAdmin creates an admin account unless one with email exists.
// An existing account with another role is left untouched and reported.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return &ValidationError{Field: "email", Message: "admin email and password are required"}
	}
	if !validAddress(email) {
		return &ValidationError{Field: "email", Message: "admin email is malformed"}
	}
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != model.RoleAdmin {
			return fmt.Errorf("%w: %s has role %s", ErrAdminEmailInUse, email, existing.Role)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = "Admin"
	}
	id, err := s.users.CreateUser(ctx, model.User{Name: name, Email: email, PasswordHash: digest, Role: model.RoleAdmin})
	if errors.Is(err, store.ErrDuplicateKey) {
		// created concurrently; the next start verifies its role
		s.logger.Warn("admin account created concurrently", zap.String("email", email))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	s.logger.Info("admin account created", zap.Int64("user_id", id))
	return nil
}
