package inbox

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/store"
	"go.uber.org/zap"
)

// ErrForbidden is returned when an anonymous caller asks for messages
var ErrForbidden = errors.New("messages require an authenticated viewer")

// FieldError reports a missing or malformed contact form field
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid contact field: %s", e.Field)
}

// SubmitInput is the contact form
type SubmitInput struct {
	Name  string
	Email string
	Body  string
}

// Service stores contact messages and applies the visibility rules
type Service struct {
	messages store.MessageStore
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the submission clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(messages store.MessageStore, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		messages: messages,
		logger:   logger.Named("inbox"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores a message. The email is normalized the same way account
// emails are, so a message matches its sender's account.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (model.Message, error) {
	msg := model.Message{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Body:        strings.TrimSpace(in.Body),
		SubmittedAt: s.now().UTC(),
	}
	switch {
	case msg.Name == "":
		return model.Message{}, &FieldError{Field: "nev"}
	case msg.Email == "":
		return model.Message{}, &FieldError{Field: "email"}
	case msg.Body == "":
		return model.Message{}, &FieldError{Field: "uzenet"}
	}
	if addr, err := mail.ParseAddress(msg.Email); err != nil || addr.Address != msg.Email {
		return model.Message{}, &FieldError{Field: "email"}
	}

	id, err := s.messages.CreateMessage(ctx, msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to store message: %w", err)
	}
	msg.ID = id
	s.logger.Debug("message stored", zap.Int64("message_id", id))
	return msg, nil
}

// Visible returns the messages viewer may read, newest first
func (s *Service) Visible(ctx context.Context, viewer model.Principal) ([]model.Message, error) {
	if viewer.IsZero() {
		return nil, ErrForbidden
	}
	msgs, err := s.messages.ListMessages(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
